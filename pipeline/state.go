package pipeline

// State is a stage of the generate/validate/correct loop
type State string

const (
	StateExtractingIntent State = "extracting_intent"
	StateGenerating       State = "generating"
	StateValidating       State = "validating"
	StateCorrecting       State = "correcting"
	StateRendering        State = "rendering"
	StateSucceeded        State = "succeeded"
	StateFailed           State = "failed"
)

// Terminal reports whether no further transition follows
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// IsValidState returns true if s names a State
func IsValidState(s string) bool {
	switch State(s) {
	case StateExtractingIntent, StateGenerating, StateValidating,
		StateCorrecting, StateRendering, StateSucceeded, StateFailed:
		return true
	default:
		return false
	}
}

// Event is emitted to the Observer on every state transition
type Event struct {
	RunID   string
	State   State
	Attempt int    // current correction attempt, 0 before any correction
	Message string // validation error or failure reason, if any
}

// Observer receives state transitions. It is called synchronously.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

// OnEvent calls f
func (f ObserverFunc) OnEvent(ev Event) { f(ev) }
