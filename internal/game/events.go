package game

// Event is an input to Reduce. The set is closed; unknown implementations are ignored.
type Event interface {
	eventName() string
}

type SelectTeam struct{ Team Team }

type StartGame struct{}

type BeginPlaying struct{}

type SkipTutorial struct{}

// Tick advances the session clock by Delta seconds.
type Tick struct{ Delta float64 }

// PerformAction registers an attempted input. Classification happens in the caller,
// which follows up with CompleteAction.
type PerformAction struct {
	Kind  ActionKind
	Value string
}

type CompleteAction struct {
	Success bool
	Timing  int // ms since the prompt appeared
}

type EndGame struct{}

type ResetGame struct{}

// LoadState replaces the whole state. It never merges.
type LoadState struct{ State State }

func (SelectTeam) eventName() string     { return "select_team" }
func (StartGame) eventName() string      { return "start_game" }
func (BeginPlaying) eventName() string   { return "begin_playing" }
func (SkipTutorial) eventName() string   { return "skip_tutorial" }
func (Tick) eventName() string           { return "tick" }
func (PerformAction) eventName() string  { return "perform_action" }
func (CompleteAction) eventName() string { return "complete_action" }
func (EndGame) eventName() string        { return "end_game" }
func (ResetGame) eventName() string      { return "reset_game" }
func (LoadState) eventName() string      { return "load_state" }

// EventName is the wire name of an event, used for logging and metrics labels.
func EventName(e Event) string {
	if e == nil {
		return "unknown"
	}
	return e.eventName()
}
