package agent

// #region imports
import (
	"strings"

	"github.com/familiarcat/alex-ai-universal-sub002/internal/crew"
)

// #endregion

// #region build-prompt

// BuildPrompt wraps input in persona-flavored instructions.
func BuildPrompt(p crew.Persona, input string) string {
	var b strings.Builder
	name := p.Name
	if name == "" {
		name = p.ID
	}
	b.WriteString("You are ")
	b.WriteString(name)
	b.WriteString(".\n")
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	if len(p.Expertise) > 0 {
		b.WriteString("Your expertise: ")
		b.WriteString(strings.Join(p.Expertise, ", "))
		b.WriteString(".\n")
	}
	b.WriteString("\nRespond to the following request in your own voice and from your own perspective. ")
	b.WriteString("Be specific and actionable: name concrete steps, risks and trade-offs rather than generalities.\n\n")
	b.WriteString("Request:\n")
	b.WriteString(strings.TrimSpace(input))
	b.WriteString("\n")
	return b.String()
}

// #endregion

// #region truncate

// truncate keeps at most limit runes of s. A non-positive limit keeps everything.
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// #endregion
