package model

import "time"

// Strictness is the filtering strictness directive published to the
// relevance-scoring collaborator. Levels are totally ordered.
type Strictness string

const (
	StrictnessVeryLenient Strictness = "very_lenient"
	StrictnessLenient     Strictness = "lenient"
	StrictnessModerate    Strictness = "moderate"
	StrictnessStrict      Strictness = "strict"
)

// strictnessOrder maps each level to its position in the ordering.
var strictnessOrder = map[Strictness]int{
	StrictnessVeryLenient: 0,
	StrictnessLenient:     1,
	StrictnessModerate:    2,
	StrictnessStrict:      3,
}

// ValidStrictness reports whether s names a known strictness level.
func ValidStrictness(s string) bool {
	_, ok := strictnessOrder[Strictness(s)]
	return ok
}

// Level returns the ordinal position of the strictness level, -1 if unknown.
func (s Strictness) Level() int {
	l, ok := strictnessOrder[s]
	if !ok {
		return -1
	}
	return l
}

// Tighten returns the next stricter level, clamped at strict.
func (s Strictness) Tighten() Strictness {
	switch s {
	case StrictnessVeryLenient:
		return StrictnessLenient
	case StrictnessLenient:
		return StrictnessModerate
	case StrictnessModerate:
		return StrictnessStrict
	default:
		return StrictnessStrict
	}
}

// Relax returns the next looser level, clamped at very_lenient.
func (s Strictness) Relax() Strictness {
	switch s {
	case StrictnessStrict:
		return StrictnessModerate
	case StrictnessModerate:
		return StrictnessLenient
	case StrictnessLenient:
		return StrictnessVeryLenient
	default:
		return StrictnessVeryLenient
	}
}

// StrategyState is the single persisted strategy record. Only the strategy
// controller writes it.
type StrategyState struct {
	Current            Strictness `json:"current_strictness"`
	LastChangedAt      time.Time  `json:"last_changed_at"`
	ConsecutiveSignals int        `json:"consecutive_same_direction_signals"`
	LastDirection      Direction  `json:"last_direction"`
	Version            int64      `json:"version"`
}

// InitialStrategyState is the cold-start strategy record.
func InitialStrategyState(now time.Time) StrategyState {
	return StrategyState{
		Current:       StrictnessModerate,
		LastChangedAt: now,
		LastDirection: DirectionFlat,
		Version:       1,
	}
}
