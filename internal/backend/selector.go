package backend

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/agent"
	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

// #endregion

// #region errors

var (
	// ErrUnknownPersona is returned when a selection is requested for a
	// persona outside the selector's roster.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrNoBackend is returned when no route resolves to a backend id.
	ErrNoBackend = errors.New("no backend configured")
)

// PersonaPlaceholder in a route is replaced by the persona id, so one route
// such as "scripted:{persona}" can address a different backend per persona.
const PersonaPlaceholder = "{persona}"

// #endregion

// #region routes

// Routes maps selection inputs to backend ids. Lookup order is persona,
// then category, then Default.
type Routes struct {
	Default    string
	ByCategory map[Category]string
	ByPersona  map[string]string
}

func (r Routes) resolve(personaID string, cat Category) (backendID, via string) {
	if id := r.ByPersona[personaID]; id != "" {
		return expand(id, personaID), "persona route"
	}
	if id := r.ByCategory[cat]; id != "" {
		return expand(id, personaID), string(cat) + " route"
	}
	return expand(r.Default, personaID), "default route"
}

func expand(route, personaID string) string {
	return strings.ReplaceAll(route, PersonaPlaceholder, personaID)
}

// #endregion

// #region confidence

const (
	baseConfidence      = 0.5
	categoryBonus       = 0.1
	expertiseBonus      = 0.1
	maxSelectConfidence = 0.95
)

// #endregion

// #region selector

// HeuristicSelector picks a backend by classifying the input and matching
// it against the persona's expertise. No model call.
type HeuristicSelector struct {
	roster crew.Roster
	routes Routes
}

// NewHeuristicSelector creates a selector over roster.
func NewHeuristicSelector(roster crew.Roster, routes Routes) *HeuristicSelector {
	return &HeuristicSelector{roster: roster, routes: routes}
}

// Select implements agent.Selector.
func (s *HeuristicSelector) Select(ctx context.Context, personaID, input string) (agent.Selection, error) {
	if err := ctx.Err(); err != nil {
		return agent.Selection{}, err
	}
	persona, ok := s.roster.Get(personaID)
	if !ok {
		return agent.Selection{}, fmt.Errorf("select for %q: %w", personaID, ErrUnknownPersona)
	}

	cat := Classify(input)
	backendID, via := s.routes.resolve(personaID, cat)
	if backendID == "" {
		return agent.Selection{}, fmt.Errorf("select for %q (%s): %w", personaID, cat, ErrNoBackend)
	}

	matched := ExpertiseMatches(persona, input)
	conf := baseConfidence + expertiseBonus*float64(len(matched))
	if cat != CategoryConversational {
		conf += categoryBonus
	}
	conf = min(conf, maxSelectConfidence)

	reasoning := fmt.Sprintf("%s input, %s", cat, via)
	if len(matched) > 0 {
		reasoning += fmt.Sprintf("; matches %s expertise: %s", persona.Name, strings.Join(matched, ", "))
	}
	return agent.Selection{BackendID: backendID, Confidence: conf, Reasoning: reasoning}, nil
}

// ExpertiseMatches returns the persona expertise tags mentioned in input,
// in the persona's tag order.
func ExpertiseMatches(p crew.Persona, input string) []string {
	lower := strings.ToLower(input)
	words := wordSet(lower)
	var matched []string
	for _, tag := range p.Expertise {
		if mentions(lower, words, strings.ToLower(tag)) {
			matched = append(matched, tag)
		}
	}
	return matched
}

// #endregion
