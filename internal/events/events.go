package events

import (
	"jollofwars/internal/game"
	"jollofwars/internal/leaderboard"
)

type ScoreSubmitted struct {
	Entry leaderboard.Entry
}

type GameFinished struct {
	SessionID string
	Team      game.Team
	Score     int
}

type Bus struct {
	Submissions chan ScoreSubmitted
	Finishes    chan GameFinished
}

func NewBus() *Bus {
	return &Bus{
		Submissions: make(chan ScoreSubmitted, 10),
		Finishes:    make(chan GameFinished, 10),
	}
}

// PublishSubmission never blocks; it reports false when the event was dropped.
func (b *Bus) PublishSubmission(e leaderboard.Entry) bool {
	if b == nil {
		return false
	}
	select {
	case b.Submissions <- ScoreSubmitted{Entry: e}:
		return true
	default:
		return false
	}
}

func (b *Bus) PublishFinish(ev GameFinished) bool {
	if b == nil {
		return false
	}
	select {
	case b.Finishes <- ev:
		return true
	default:
		return false
	}
}
