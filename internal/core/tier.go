package core

import (
	"fmt"
	"strings"
)

// Tier is the estimated difficulty of a case. It selects the recruitment path.
type Tier string

const (
	// TierLow is answered by a single generalist.
	TierLow Tier = "low"
	// TierModerate is answered by a flat panel of a lead and four consultants.
	TierModerate Tier = "moderate"
	// TierHigh is answered by three sequential sub-teams.
	TierHigh Tier = "high"
)

// AllTiers returns the tiers in ascending difficulty.
func AllTiers() []Tier {
	return []Tier{TierLow, TierModerate, TierHigh}
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierLow, TierModerate, TierHigh:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (t Tier) String() string {
	return string(t)
}

// ParseTier converts a user-facing name. "basic", "intermediate" and
// "advanced" are accepted as aliases.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "basic":
		return TierLow, nil
	case "moderate", "intermediate":
		return TierModerate, nil
	case "high", "advanced":
		return TierHigh, nil
	}
	return "", ErrValidation(CodeInvalidTier, fmt.Sprintf("unknown complexity tier %q", s))
}
