package referrer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot_Apply(t *testing.T) {
	var s Slot
	_, ok := s.Current()
	assert.False(t, ok)

	s.Apply("google.com")
	got, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "google.com", got)

	s.Apply("")
	s.Apply("   ")
	got, _ = s.Current()
	assert.Equal(t, "google.com", got)

	s.Apply("bing.com")
	got, _ = s.Current()
	assert.Equal(t, "bing.com", got)
}

func TestSlot_Independent(t *testing.T) {
	var a, b Slot
	a.Apply("a.example")

	_, ok := b.Current()
	assert.False(t, ok)

	b.Apply("b.example")
	got, _ := a.Current()
	assert.Equal(t, "a.example", got)
}

func TestDetector_OncePerDistinctValue(t *testing.T) {
	var applied []string
	d := NewDetector(func(s string) { applied = append(applied, s) })

	assert.True(t, d.Observe("google.com"))
	assert.False(t, d.Observe("google.com"))
	assert.False(t, d.Observe(""))
	assert.True(t, d.Observe("bing.com"))
	assert.True(t, d.Observe("google.com"))

	assert.Equal(t, []string{"google.com", "bing.com", "google.com"}, applied)
}

func TestDetector_FeedsSlot(t *testing.T) {
	var s Slot
	d := NewDetector(s.Apply)
	d.Observe("search.example")

	got, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, "search.example", got)
}
