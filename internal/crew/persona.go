package crew

// #region imports
import (
	"errors"
	"fmt"
	"strings"
)

// #endregion

// #region persona

// Persona is a named responder with a fixed profile. Values are immutable
// once placed in a Roster; Expertise is copied on the way in and out.
type Persona struct {
	ID          string
	Name        string
	Description string
	Expertise   []string
}

func (p Persona) clone() Persona {
	p.Expertise = append([]string(nil), p.Expertise...)
	return p
}

// #endregion

// #region roster

// ErrInvalidRoster is returned when a roster would contain an empty or duplicate identity.
var ErrInvalidRoster = errors.New("invalid roster")

// Roster is an immutable, ordered snapshot of unique personas. Mutating
// operations return a new Roster and leave the receiver untouched, so a
// Roster can be shared freely across concurrent activation cycles.
type Roster struct {
	personas []Persona
	index    map[string]int
}

// NewRoster builds a roster in the given order.
func NewRoster(personas ...Persona) (Roster, error) {
	r := Roster{
		personas: make([]Persona, 0, len(personas)),
		index:    make(map[string]int, len(personas)),
	}
	for _, p := range personas {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return Roster{}, fmt.Errorf("%w: persona with empty id", ErrInvalidRoster)
		}
		if _, dup := r.index[id]; dup {
			return Roster{}, fmt.Errorf("%w: duplicate persona %q", ErrInvalidRoster, id)
		}
		p.ID = id
		r.index[id] = len(r.personas)
		r.personas = append(r.personas, p.clone())
	}
	return r, nil
}

// MustRoster is NewRoster for static registries; it panics on invalid input.
func MustRoster(personas ...Persona) Roster {
	r, err := NewRoster(personas...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of personas.
func (r Roster) Len() int {
	return len(r.personas)
}

// Personas returns a copy of the personas in roster order.
func (r Roster) Personas() []Persona {
	out := make([]Persona, len(r.personas))
	for i, p := range r.personas {
		out[i] = p.clone()
	}
	return out
}

// IDs returns persona identities in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, len(r.personas))
	for i, p := range r.personas {
		ids[i] = p.ID
	}
	return ids
}

// Get looks up a persona by identity.
func (r Roster) Get(id string) (Persona, bool) {
	i, ok := r.index[id]
	if !ok {
		return Persona{}, false
	}
	return r.personas[i].clone(), true
}

// With returns a new roster with p appended, or p replacing the persona
// that already has the same identity (position preserved).
func (r Roster) With(p Persona) (Roster, error) {
	next := r.Personas()
	if i, ok := r.index[strings.TrimSpace(p.ID)]; ok {
		next[i] = p
	} else {
		next = append(next, p)
	}
	return NewRoster(next...)
}

// Without returns a new roster lacking the persona with the given identity.
func (r Roster) Without(id string) Roster {
	next := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		if p.ID != id {
			next = append(next, p)
		}
	}
	out, _ := NewRoster(next...)
	return out
}

// #endregion
