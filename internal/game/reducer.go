package game

import (
	"errors"
	"math"
)

var ErrOutOfTurn = errors.New("no action is pending")
var ErrInvalidTeam = errors.New("invalid team")
var ErrInvalidTick = errors.New("tick delta must be a non-negative number")
var ErrInvalidAction = errors.New("invalid action")
var ErrWrongPhase = errors.New("event not allowed in the current phase")

const (
	BasePoints     = 100
	PerfectBonus   = 100
	GoodBonus      = 50
	LateBonus      = 25
	FailurePenalty = 50
)

// Validate reports caller contract violations before an event reaches Reduce.
// A nil error does not imply the event changes anything.
func Validate(s State, e Event) error {
	switch ev := e.(type) {
	case SelectTeam:
		if !ev.Team.Valid() {
			return ErrInvalidTeam
		}
		if !s.choosing() {
			return ErrWrongPhase
		}
	case SkipTutorial:
		if !s.choosing() {
			return ErrWrongPhase
		}
	case BeginPlaying:
		if s.Phase != PhaseCountdown {
			return ErrWrongPhase
		}
	case EndGame:
		if s.choosing() {
			return ErrWrongPhase
		}
	case Tick:
		if ev.Delta < 0 || math.IsNaN(ev.Delta) || math.IsInf(ev.Delta, 0) {
			return ErrInvalidTick
		}
	case PerformAction:
		if !validTarget(ev.Kind, ev.Value) {
			return ErrInvalidAction
		}
		if !s.acting() {
			return ErrOutOfTurn
		}
	case CompleteAction:
		if ev.Timing < 0 {
			return ErrInvalidAction
		}
		if !s.acting() {
			return ErrOutOfTurn
		}
	}
	return nil
}

// choosing reports whether the player is still picking a team or in the tutorial.
func (s State) choosing() bool {
	return s.Phase == PhaseTeamSelection || s.Phase == PhaseTutorial
}

// acting reports whether an action can be taken: the round is live and one is pending.
func (s State) acting() bool {
	if s.Phase != PhaseCountdown && s.Phase != PhasePlaying {
		return false
	}
	_, ok := s.Pending()
	return ok
}

// Reduce returns the state that follows s after e. It never fails: events that
// do not apply to s return s unchanged.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case SelectTeam:
		if !ev.Team.Valid() {
			return s
		}
		s.Team = ev.Team
		if s.TutorialComplete {
			s.Phase = PhaseCountdown
		} else {
			s.Phase = PhaseTutorial
		}
		return s

	case StartGame:
		s.Phase = PhaseCountdown
		s.Timer = s.Settings.CountdownDuration
		s.Actions = CookingActions()
		s.NextAction = 0
		s.Score = Score{}
		s.Combo = 0
		s.CompletedActions = 0
		return s

	case BeginPlaying:
		s.Phase = PhasePlaying
		s.Timer = s.Settings.RoundDuration
		return s

	case SkipTutorial:
		s.TutorialComplete = true
		s.Phase = PhaseCountdown
		return s

	case Tick:
		if ev.Delta < 0 || math.IsNaN(ev.Delta) {
			return s
		}
		return tick(s, ev.Delta)

	case PerformAction:
		return s

	case CompleteAction:
		if !s.acting() {
			return s
		}
		if !ev.Success {
			return failAction(s)
		}
		return completeAction(s, ev.Timing)

	case EndGame:
		if s.Phase == PhaseResults {
			return s
		}
		return finish(s)

	case ResetGame:
		next := NewState(s.Settings)
		next.Team = s.Team
		next.TutorialComplete = s.TutorialComplete
		next.PlayerStats = s.PlayerStats
		return next

	case LoadState:
		return ev.State

	default:
		return s
	}
}

func tick(s State, delta float64) State {
	remaining := s.Timer - delta
	if remaining <= 0 {
		switch s.Phase {
		case PhaseCountdown:
			s.Phase = PhasePlaying
			s.Timer = s.Settings.RoundDuration
			return s
		case PhasePlaying:
			s.Timer = 0
			return finish(s)
		}
	}
	s.Timer = math.Max(0, remaining)
	return s
}

func failAction(s State) State {
	s.Combo = 0
	s.Score.AccuracyPenalty += FailurePenalty
	s.Score = s.Score.recompute()
	return s
}

func completeAction(s State, timing int) State {
	switch {
	case timing <= s.Settings.PerfectWindow:
		s.Score.TimingBonus += PerfectBonus
		s.PlayerStats.PerfectActions++
	case timing <= s.Settings.GoodWindow:
		s.Score.TimingBonus += GoodBonus
	default:
		s.Score.TimingBonus += LateBonus
	}

	s.Combo++
	s.Score.ComboBonus += int(math.Floor(float64(s.Combo) * s.Settings.ComboMultiplier * 100))
	s.Score.Base += BasePoints
	s.Score = s.Score.recompute()
	s.PlayerStats.LongestCombo = max(s.PlayerStats.LongestCombo, s.Combo)

	s.CompletedActions++
	if s.CompletedActions < len(s.Actions) {
		s.NextAction = s.CompletedActions
	} else {
		s.NextAction = NoAction
		s.Phase = PhaseScoring
	}
	return s
}

// finish moves the session into Results and folds the round into the lifetime stats.
func finish(s State) State {
	s.Phase = PhaseResults
	s.PlayerStats.TotalPlays++
	s.PlayerStats.HighScore = max(s.PlayerStats.HighScore, s.Score.Total)
	s.PlayerStats.Badges = AwardBadges(s.PlayerStats)
	return s
}
