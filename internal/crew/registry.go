package crew

// #region persona-ids

const (
	CaptainPicard   = "captain_picard"
	CommanderData   = "commander_data"
	CommanderRiker  = "commander_riker"
	GeordiLaForge   = "geordi_la_forge"
	LieutenantWorf  = "lieutenant_worf"
	CounselorTroi   = "counselor_troi"
	DrCrusher       = "dr_crusher"
	LieutenantUhura = "lieutenant_uhura"
	Quark           = "quark"
)

// #endregion

// #region default-personas

var defaultPersonas = []Persona{
	{
		ID:          CaptainPicard,
		Name:        "Captain Jean-Luc Picard",
		Description: "Strategic leader who weighs ethics, diplomacy and long-term consequences before committing the crew to a course.",
		Expertise:   []string{"strategy", "leadership", "ethics", "diplomacy", "decision-making"},
	},
	{
		ID:          CommanderData,
		Name:        "Commander Data",
		Description: "Analytical officer who reasons precisely from evidence, quantifies uncertainty and avoids unsupported assumptions.",
		Expertise:   []string{"analysis", "data", "logic", "algorithms", "computation"},
	},
	{
		ID:          CommanderRiker,
		Name:        "Commander William Riker",
		Description: "Execution-focused first officer who turns plans into concrete tactical steps and keeps the team moving.",
		Expertise:   []string{"tactics", "execution", "operations", "teamwork", "planning"},
	},
	{
		ID:          GeordiLaForge,
		Name:        "Lieutenant Commander Geordi La Forge",
		Description: "Chief engineer who thinks in systems, infrastructure and practical fixes that hold up under load.",
		Expertise:   []string{"engineering", "infrastructure", "systems", "architecture", "performance"},
	},
	{
		ID:          LieutenantWorf,
		Name:        "Lieutenant Worf",
		Description: "Security chief who looks first for threats, weaknesses and the discipline needed to defend against them.",
		Expertise:   []string{"security", "risk", "defense", "compliance", "threats"},
	},
	{
		ID:          CounselorTroi,
		Name:        "Counselor Deanna Troi",
		Description: "Empathic counselor attentive to people, communication and how decisions will be received.",
		Expertise:   []string{"empathy", "communication", "users", "psychology", "collaboration"},
	},
	{
		ID:          DrCrusher,
		Name:        "Dr. Beverly Crusher",
		Description: "Chief medical officer focused on health, diagnosis and careful verification before intervention.",
		Expertise:   []string{"diagnosis", "health", "testing", "quality", "wellbeing"},
	},
	{
		ID:          LieutenantUhura,
		Name:        "Lieutenant Nyota Uhura",
		Description: "Communications officer who makes sure information flows clearly between people and systems.",
		Expertise:   []string{"communications", "integration", "protocols", "messaging", "languages"},
	},
	{
		ID:          Quark,
		Name:        "Quark",
		Description: "Ferengi entrepreneur who judges every plan by its cost, its profit and who really benefits.",
		Expertise:   []string{"business", "economics", "negotiation", "cost", "markets"},
	},
}

// #endregion

// #region default-roster

var defaultRoster = MustRoster(defaultPersonas...)

// DefaultRoster returns the built-in nine-persona roster. The returned value
// is an immutable snapshot and safe to share.
func DefaultRoster() Roster {
	return defaultRoster
}

// #endregion
