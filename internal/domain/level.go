package domain

import "strings"

// Level classifies both clients and plans by training experience.
type Level string

const (
	LevelPrincipiante Level = "principiante"
	LevelIntermedio   Level = "intermedio"
	LevelAvanzado     Level = "avanzado"
)

// levelRank orders levels for the compatibility policy.
var levelRank = map[Level]int{
	LevelPrincipiante: 1,
	LevelIntermedio:   2,
	LevelAvanzado:     3,
}

// ParseLevel normalizes and validates a raw level string.
func ParseLevel(raw string) (Level, bool) {
	level := Level(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := levelRank[level]
	return level, ok
}

// LevelCompatible reports whether a client of the given level may join a
// plan of the given level. Policy: a client may join plans at or below
// their own level, so a principiante client only joins principiante plans
// while an avanzado client may join any.
func LevelCompatible(clientLevel, planLevel Level) bool {
	return levelRank[clientLevel] >= levelRank[planLevel]
}
