package game

import "slices"

type Phase string

const (
	PhaseTeamSelection = Phase("team_selection")
	PhaseTutorial      = Phase("tutorial")
	PhaseCountdown     = Phase("countdown")
	PhasePlaying       = Phase("playing")
	PhaseScoring       = Phase("scoring")
	PhaseResults       = Phase("results")
)

type Team string

const (
	TeamNone    = Team("")
	TeamGhana   = Team("ghana")
	TeamNigeria = Team("nigeria")
)

// Teams lists every selectable team in display order.
var Teams = []Team{TeamGhana, TeamNigeria}

func (t Team) Valid() bool {
	return t == TeamGhana || t == TeamNigeria
}

// ParseTeam accepts the stored string form of a team. The empty string maps to TeamNone.
func ParseTeam(s string) (Team, bool) {
	switch Team(s) {
	case TeamGhana, TeamNigeria, TeamNone:
		return Team(s), true
	}
	return TeamNone, false
}

type Config struct {
	RoundDuration     float64 `json:"roundDuration"`       // seconds
	CountdownDuration float64 `json:"countdownDuration"`   // seconds
	PerfectWindow     int     `json:"perfectTimingWindow"` // ms
	GoodWindow        int     `json:"goodTimingWindow"`    // ms
	ComboMultiplier   float64 `json:"comboMultiplier"`
}

func DefaultConfig() Config {
	return Config{
		RoundDuration:     30,
		CountdownDuration: 3,
		PerfectWindow:     300,
		GoodWindow:        700,
		ComboMultiplier:   0.1,
	}
}

type Score struct {
	Base            int `json:"baseScore"`
	TimingBonus     int `json:"timingBonus"`
	ComboBonus      int `json:"comboBonus"`
	AccuracyPenalty int `json:"accuracyPenalty"`
	Total           int `json:"totalScore"`
}

func (s Score) recompute() Score {
	s.Total = s.Base + s.TimingBonus + s.ComboBonus - s.AccuracyPenalty
	return s
}

// PlayerStats are carried across sessions and only change when a session ends,
// when an action is completed, or when state is loaded from the store.
type PlayerStats struct {
	HighScore      int      `json:"highScore"`
	TotalPlays     int      `json:"totalPlays"`
	PerfectActions int      `json:"perfectActions"`
	LongestCombo   int      `json:"longestCombo"`
	Badges         []string `json:"badges"`
}

// NoAction marks an exhausted or unset action queue.
const NoAction = -1

type State struct {
	Phase            Phase       `json:"phase"`
	Team             Team        `json:"team"`
	Timer            float64     `json:"timer"`
	Score            Score       `json:"score"`
	Combo            int         `json:"combo"`
	Actions          []Action    `json:"actions"`
	NextAction       int         `json:"nextAction"`
	CompletedActions int         `json:"completedActions"`
	Settings         Config      `json:"settings"`
	PlayerStats      PlayerStats `json:"playerStats"`
	TutorialComplete bool        `json:"tutorialComplete"`
}

// NewState returns fresh-session defaults for the given config.
func NewState(cfg Config) State {
	return State{
		Phase:       PhaseTeamSelection,
		Timer:       cfg.RoundDuration,
		Actions:     []Action{},
		NextAction:  NoAction,
		Settings:    cfg,
		PlayerStats: PlayerStats{Badges: []string{}},
	}
}

// Pending returns the action the player must perform next.
func (s State) Pending() (Action, bool) {
	if s.NextAction < 0 || s.NextAction >= len(s.Actions) {
		return Action{}, false
	}
	return s.Actions[s.NextAction], true
}

// Failures is the number of failed actions recorded in the current session.
func (s State) Failures() int {
	return s.Score.AccuracyPenalty / FailurePenalty
}

// Accuracy is the share of the queue not lost to failures, as a percentage in [0, 100].
func (s State) Accuracy() float64 {
	total := len(s.Actions)
	if total == 0 {
		return 0
	}
	acc := float64(total-s.Failures()) / float64(total) * 100
	if acc < 0 {
		return 0
	}
	if acc > 100 {
		return 100
	}
	return acc
}

// DisplayTotal never reports a negative score; Score.Total itself is left unclamped.
func (s State) DisplayTotal() int {
	if s.Score.Total < 0 {
		return 0
	}
	return s.Score.Total
}

// Persisted is the projection of the state that survives across sessions.
type Persisted struct {
	Team             Team        `json:"team"`
	PlayerStats      PlayerStats `json:"playerStats"`
	TutorialComplete bool        `json:"tutorialComplete"`
}

func (s State) Persisted() Persisted {
	return Persisted{Team: s.Team, PlayerStats: s.PlayerStats, TutorialComplete: s.TutorialComplete}
}

// Equal reports whether two projections would serialize identically.
func (p Persisted) Equal(o Persisted) bool {
	if p.Team != o.Team || p.TutorialComplete != o.TutorialComplete {
		return false
	}
	a, b := p.PlayerStats, o.PlayerStats
	return a.HighScore == b.HighScore && a.TotalPlays == b.TotalPlays &&
		a.PerfectActions == b.PerfectActions && a.LongestCombo == b.LongestCombo &&
		slices.Equal(a.Badges, b.Badges)
}
