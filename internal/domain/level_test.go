package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelCompatible(t *testing.T) {
	// A client may join plans at or below their own level.
	assert.True(t, LevelCompatible(LevelAvanzado, LevelPrincipiante))
	assert.True(t, LevelCompatible(LevelIntermedio, LevelIntermedio))
	assert.False(t, LevelCompatible(LevelPrincipiante, LevelIntermedio))
	assert.False(t, LevelCompatible(LevelIntermedio, LevelAvanzado))
}

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel(" Avanzado ")
	assert.True(t, ok)
	assert.Equal(t, LevelAvanzado, level)

	_, ok = ParseLevel("pro")
	assert.False(t, ok)
}
