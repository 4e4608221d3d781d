package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_LoadBeforeStore(t *testing.T) {
	var s Snapshot[string]
	v, ok := s.Load()
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestSnapshot_LastWriteWins(t *testing.T) {
	var s Snapshot[string]
	s.Store("google.com")
	s.Store("bing.com")

	v, ok := s.Load()
	assert.True(t, ok)
	assert.Equal(t, "bing.com", v)
}

func TestSnapshot_StoresInterfaceTypes(t *testing.T) {
	// atomic.Value panics on inconsistent concrete types; boxing avoids it.
	var s Snapshot[any]
	s.Store(1)
	s.Store("one")

	v, ok := s.Load()
	assert.True(t, ok)
	assert.Equal(t, "one", v)
}
