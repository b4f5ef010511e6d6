package captcha

import (
	"sync"

	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

// EventKind identifies a verification lifecycle notification.
type EventKind string

const (
	// EventPrompt fires once when the challenge is first delivered.
	EventPrompt EventKind = "prompt"
	// EventAnswer fires for every received response, before the match
	// decision.
	EventAnswer EventKind = "answer"
	// EventSuccess fires when a response matches the expected answer.
	EventSuccess EventKind = "success"
	// EventTimeout fires when no qualifying response arrives in time.
	EventTimeout EventKind = "timeout"
	// EventFailure fires when the member exhausts every attempt.
	EventFailure EventKind = "failure"
)

// Event is a verification lifecycle notification. Exactly one of
// success/timeout/failure is emitted per session, after which the session is
// over.
type Event struct {
	Kind          EventKind
	Member        platform.Member
	Responses     []string
	AttemptsTaken int
	Answer        string
	Config        Config
}

// Listener receives lifecycle events. Listeners are invoked synchronously in
// session order; a slow listener delays the session that emitted the event
// but no other session.
type Listener func(Event)

// notifier is a per-instance listener registry. Registration is append-only
// under the lock; dispatch takes a read lock so concurrent sessions can
// notify independently.
type notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (n *notifier) subscribe(fn Listener) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.listeners = append(n.listeners, fn)
	n.mu.Unlock()
}

func (n *notifier) emit(ev Event) {
	n.mu.RLock()
	listeners := n.listeners
	n.mu.RUnlock()

	for _, fn := range listeners {
		fn(ev)
	}
}
