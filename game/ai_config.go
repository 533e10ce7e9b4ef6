package game

import "time"

// Difficulty is a bot skill level
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Personality is a bot play style archetype
type Personality string

const (
	PersonalityAggressive  Personality = "aggressive"
	PersonalityDefensive   Personality = "defensive"
	PersonalitySniper      Personality = "sniper"
	PersonalityFlanker     Personality = "flanker"
	PersonalityOpportunist Personality = "opportunist"
)

// Personalities lists every archetype, for random assignment
var Personalities = []Personality{
	PersonalityAggressive,
	PersonalityDefensive,
	PersonalitySniper,
	PersonalityFlanker,
	PersonalityOpportunist,
}

// DifficultyConfig is the base skill table of a difficulty
type DifficultyConfig struct {
	ReactionDelay    time.Duration // time between decisions
	AimAccuracy      float64       // 0..1, scales aim error down
	FireProbability  float64       // chance per decision to keep the trigger down
	DodgeProbability float64       // chance to react to an incoming bullet
	WallAwareness    float64       // 0..1, scales the obstacle probe
	PredictionSkill  float64       // 0..1, scales lead on a moving target
	Aggressiveness   float64       // 0..1, chance to stay in a losing fight
	RetreatRatio     float64       // own/opponent resource ratio counted as a disadvantage
}

var difficulties = map[Difficulty]DifficultyConfig{
	DifficultyEasy: {
		ReactionDelay: 600 * time.Millisecond, AimAccuracy: 0.45, FireProbability: 0.45,
		DodgeProbability: 0.1, WallAwareness: 0.3, PredictionSkill: 0.1,
		Aggressiveness: 0.3, RetreatRatio: 0.7,
	},
	DifficultyNormal: {
		ReactionDelay: 350 * time.Millisecond, AimAccuracy: 0.65, FireProbability: 0.65,
		DodgeProbability: 0.3, WallAwareness: 0.6, PredictionSkill: 0.4,
		Aggressiveness: 0.5, RetreatRatio: 0.6,
	},
	DifficultyHard: {
		ReactionDelay: 200 * time.Millisecond, AimAccuracy: 0.82, FireProbability: 0.8,
		DodgeProbability: 0.55, WallAwareness: 0.85, PredictionSkill: 0.7,
		Aggressiveness: 0.65, RetreatRatio: 0.5,
	},
	DifficultyExpert: {
		ReactionDelay: 100 * time.Millisecond, AimAccuracy: 0.95, FireProbability: 0.92,
		DodgeProbability: 0.8, WallAwareness: 1, PredictionSkill: 0.95,
		Aggressiveness: 0.75, RetreatRatio: 0.45,
	},
}

// PersonalityOverlay biases a difficulty toward a play style
type PersonalityOverlay struct {
	AggressionBias    float64       // added to Aggressiveness
	AccuracyBias      float64       // added to AimAccuracy
	FireBias          float64       // added to FireProbability
	ReactionScale     float64       // multiplies ReactionDelay
	PreferredDistance float64       // ideal range to the opponent
	DistanceTolerance float64       // half-width of the comfortable band
	FlankPeriod       time.Duration // forced flank cadence, 0 disables
	BoonBias          float64       // 0..1, widens boon seeking
	CoverBias         float64       // 0..1, chance to prefer cover over open retreat
}

var personalities = map[Personality]PersonalityOverlay{
	PersonalityAggressive: {
		AggressionBias: 0.25, FireBias: 0.1, ReactionScale: 0.9,
		PreferredDistance: 250, DistanceTolerance: 75,
	},
	PersonalityDefensive: {
		AggressionBias: -0.2, ReactionScale: 1,
		PreferredDistance: 450, DistanceTolerance: 100, CoverBias: 0.8,
	},
	PersonalitySniper: {
		AggressionBias: -0.1, AccuracyBias: 0.1, FireBias: -0.1, ReactionScale: 1.1,
		PreferredDistance: 650, DistanceTolerance: 120, CoverBias: 0.5,
	},
	PersonalityFlanker: {
		AggressionBias: 0.1, ReactionScale: 0.9,
		PreferredDistance: 320, DistanceTolerance: 90, FlankPeriod: 6 * time.Second, CoverBias: 0.3,
	},
	PersonalityOpportunist: {
		ReactionScale: 1,
		PreferredDistance: 380, DistanceTolerance: 100, BoonBias: 0.8, CoverBias: 0.4,
	},
}

// BotConfig is the resolved, immutable tuning of one bot
type BotConfig struct {
	Difficulty  Difficulty
	Personality Personality

	ReactionDelay     time.Duration
	AimAccuracy       float64
	FireProbability   float64
	DodgeProbability  float64
	WallAwareness     float64
	PredictionSkill   float64
	Aggressiveness    float64
	RetreatRatio      float64
	PreferredDistance float64
	DistanceTolerance float64
	FlankPeriod       time.Duration
	BoonBias          float64
	CoverBias         float64
}

// ParseDifficulty returns the named difficulty, defaulting to normal
func ParseDifficulty(name string) Difficulty {
	d := Difficulty(name)
	if _, ok := difficulties[d]; ok {
		return d
	}
	return DifficultyNormal
}

// ParsePersonality returns the named personality and whether it was known
func ParsePersonality(name string) (Personality, bool) {
	p := Personality(name)
	_, ok := personalities[p]
	return p, ok
}

// ResolveBotConfig composes a difficulty with a personality overlay
func ResolveBotConfig(d Difficulty, p Personality) BotConfig {
	base, ok := difficulties[d]
	if !ok {
		d, base = DifficultyNormal, difficulties[DifficultyNormal]
	}
	over, ok := personalities[p]
	if !ok {
		p, over = PersonalityAggressive, personalities[PersonalityAggressive]
	}
	scale := over.ReactionScale
	if scale <= 0 {
		scale = 1
	}
	return BotConfig{
		Difficulty:        d,
		Personality:       p,
		ReactionDelay:     time.Duration(float64(base.ReactionDelay) * scale),
		AimAccuracy:       Clamp(base.AimAccuracy+over.AccuracyBias, 0, 1),
		FireProbability:   Clamp(base.FireProbability+over.FireBias, 0, 1),
		DodgeProbability:  base.DodgeProbability,
		WallAwareness:     base.WallAwareness,
		PredictionSkill:   base.PredictionSkill,
		Aggressiveness:    Clamp(base.Aggressiveness+over.AggressionBias, 0, 1),
		RetreatRatio:      base.RetreatRatio,
		PreferredDistance: over.PreferredDistance,
		DistanceTolerance: over.DistanceTolerance,
		FlankPeriod:       over.FlankPeriod,
		BoonBias:          over.BoonBias,
		CoverBias:         over.CoverBias,
	}
}

// Shared AI thresholds
const (
	DangerRadius       = 260.0 // bullets closer than this are considered
	DangerMissDistance = CarSize
	DodgeDuration      = 400 * time.Millisecond
	CriticalHealth     = 0.35 // health fraction that makes a health boon urgent
	BoonSeekRange      = 450.0
	StuckWindow        = 1500 * time.Millisecond
	StuckDistance      = 25.0
	PatrolArrive       = 60.0
	PatrolMargin       = 120.0
	MemorySmoothing    = 0.3 // weight of the newest velocity sample
	MemoryTimeout      = 3 * time.Second
	CoverOffset        = 12.0 // gap between wall face and cover point
	CoverSearchRadius  = 600.0
	CoverArrive        = 25.0
	MaxAimError        = 0.35 // radians at zero accuracy
	FireCone           = 0.12 // radians off target still worth a shot
	LightRange         = 700.0
	HeavyRange         = 900.0
	WallProbe          = 140.0
	FlankDuration      = 2500 * time.Millisecond
	FlankOffset        = 300.0
	BoostDistance      = 500.0
)
