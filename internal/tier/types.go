package tier

// #region tier

// Tier is the deliberation level selected for a turn.
type Tier string

const (
	TierEfficiency Tier = "efficiency"
	TierLogic      Tier = "logic"
	TierSecurity   Tier = "security"
)

// Rank orders tiers by deliberation level, Efficiency lowest.
func (t Tier) Rank() int {
	switch t {
	case TierLogic:
		return 1
	case TierSecurity:
		return 2
	default:
		return 0
	}
}

// #endregion tier

// #region assessment

// Assessment is the full scoring output for one proposed action.
// All scores are in [0, 1].
type Assessment struct {
	Intent   float64
	Flow     float64
	Novelty  float64
	Combined float64
	Tier     Tier
}

// #endregion assessment
