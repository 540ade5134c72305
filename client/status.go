package client

import "sync"

// StatusState enumerates the initialization states of the client.
type StatusState int

const (
	// StatusInitializing is the state from construction until the engine
	// acknowledges the init request.
	StatusInitializing StatusState = iota
	// StatusReady means the engine accepted the init request.
	StatusReady
	// StatusError means initialization failed; the client stays usable but
	// calls that need a ready engine will fail engine-side.
	StatusError
)

// String returns the string representation of StatusState.
func (s StatusState) String() string {
	switch s {
	case StatusInitializing:
		return "INITIALIZING"
	case StatusReady:
		return "READY"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Status is one value of the initialization status stream.
type Status struct {
	State StatusState
	// Err carries the failure message when State is StatusError.
	Err string
}

// statusFeed is a broadcast-with-last-value primitive. A new subscriber
// immediately receives the current status, then every later transition.
// Ready and Error are terminal: once reached, no further value is emitted.
type statusFeed struct {
	mu       sync.Mutex
	current  Status
	terminal bool
	subs     []chan Status
}

func newStatusFeed() *statusFeed {
	return &statusFeed{
		current: Status{State: StatusInitializing},
	}
}

// load returns the latest status.
func (f *statusFeed) load() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// set publishes a transition. Ignored once a terminal state was reached.
func (f *statusFeed) set(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminal {
		return
	}
	f.current = s
	if s.State != StatusInitializing {
		f.terminal = true
	}

	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// subscribe returns a channel that first replays the latest status and then
// delivers future transitions. The channel is buffered; a subscriber that
// never drains it misses nothing of consequence since transitions stop at
// the terminal state.
func (f *statusFeed) subscribe() <-chan Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Status, 4)
	ch <- f.current
	if !f.terminal {
		f.subs = append(f.subs, ch)
	}
	return ch
}
