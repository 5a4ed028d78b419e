package crew

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoster_NineUniquePersonas(t *testing.T) {
	r := DefaultRoster()
	require.Equal(t, 9, r.Len())

	seen := map[string]bool{}
	for _, p := range r.Personas() {
		assert.False(t, seen[p.ID], "duplicate %s", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Description)
		assert.NotEmpty(t, p.Expertise)
	}
	assert.Equal(t, CaptainPicard, r.IDs()[0])
}

func TestNewRoster_RejectsInvalid(t *testing.T) {
	_, err := NewRoster(Persona{ID: "a"}, Persona{ID: " "})
	assert.True(t, errors.Is(err, ErrInvalidRoster))

	_, err = NewRoster(Persona{ID: "a"}, Persona{ID: "a"})
	assert.True(t, errors.Is(err, ErrInvalidRoster))
}

func TestRoster_WithAndWithoutReturnNewSnapshots(t *testing.T) {
	base := MustRoster(Persona{ID: "a", Name: "A"}, Persona{ID: "b", Name: "B"})

	added, err := base.With(Persona{ID: "c", Name: "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, added.IDs())
	assert.Equal(t, []string{"a", "b"}, base.IDs(), "original snapshot must not change")

	replaced, err := added.With(Persona{ID: "b", Name: "Bee"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, replaced.IDs())
	p, ok := replaced.Get("b")
	require.True(t, ok)
	assert.Equal(t, "Bee", p.Name)

	removed := added.Without("a")
	assert.Equal(t, []string{"b", "c"}, removed.IDs())
	assert.Equal(t, 3, added.Len())
}

func TestRoster_ExpertiseIsCopied(t *testing.T) {
	tags := []string{"x", "y"}
	r := MustRoster(Persona{ID: "a", Expertise: tags})
	tags[0] = "mutated"

	p, _ := r.Get("a")
	assert.Equal(t, "x", p.Expertise[0])

	p.Expertise[1] = "mutated"
	again, _ := r.Get("a")
	assert.Equal(t, "y", again.Expertise[1])
}

func TestRoster_GetMissing(t *testing.T) {
	_, ok := DefaultRoster().Get("nobody")
	assert.False(t, ok)
}
