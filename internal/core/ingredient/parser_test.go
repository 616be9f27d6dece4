package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"basic", "Egg, Tomato ,onion", []string{"egg", "onion", "tomato"}},
		{"duplicates collapse", "egg,EGG, egg ", []string{"egg"}},
		{"empty segments dropped", ",, rice,,", []string{"rice"}},
		{"inner spaces kept", "olive oil, green onion", []string{"green onion", "olive oil"}},
		{"empty", "", []string{}},
		{"whitespace only", "   ,  ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw).Sorted())
		})
	}
}

func TestOverlap(t *testing.T) {
	user := Parse("egg, tomato, onion")

	assert.Equal(t, 2, Overlap(user, Parse("tomato, egg, salt")))
	assert.Equal(t, 2, Overlap(Parse("tomato, egg, salt"), user))
	assert.Equal(t, 0, Overlap(user, Parse("beef, rice")))
	assert.Equal(t, 0, Overlap(Parse(""), user))
}

func TestSetHelpers(t *testing.T) {
	s := Parse("Salt, pepper")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("salt"))
	assert.False(t, s.Has("Salt"))
}
