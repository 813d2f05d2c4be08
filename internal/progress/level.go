package progress

// XPPerLevel is the number of experience points that make up one level.
const XPPerLevel = 500

// Tier names the icon shown next to a level.
type Tier string

const (
	TierZap    Tier = "zap"
	TierStar   Tier = "star"
	TierAward  Tier = "award"
	TierTrophy Tier = "trophy"
)

// Progress is the derived view of a cumulative XP total.
type Progress struct {
	XP              int     `json:"xp"`
	Level           int     `json:"level"`
	CurrentLevelXP  int     `json:"currentLevelXP"`
	XPPerLevel      int     `json:"xpPerLevel"`
	XPToNextLevel   int     `json:"xpToNextLevel"`
	ProgressPercent float64 `json:"progressPercent"`
	Tier            Tier    `json:"tier"`
}

// LevelFor returns the 1-based level for xp. Negative totals count as zero.
func LevelFor(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Compute derives level and intra-level progress from xp.
func Compute(xp int) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelFor(xp)
	current := xp % XPPerLevel
	return Progress{
		XP:              xp,
		Level:           level,
		CurrentLevelXP:  current,
		XPPerLevel:      XPPerLevel,
		XPToNextLevel:   XPPerLevel - current,
		ProgressPercent: float64(current) / float64(XPPerLevel) * 100,
		Tier:            TierFor(level),
	}
}

// TierFor maps a level onto its badge icon.
func TierFor(level int) Tier {
	switch {
	case level >= 10:
		return TierTrophy
	case level >= 5:
		return TierAward
	case level >= 3:
		return TierStar
	default:
		return TierZap
	}
}
