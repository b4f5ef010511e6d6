package captcha

import "github.com/GalaxyBotTeam/captcha-gate/internal/domain"

// Session is the mutable state of one in-flight verification. It is owned by
// the engine round loop and never shared across members.
type Session struct {
	// AttemptsRemaining counts down from Config.Attempts on each wrong but
	// retriable answer.
	AttemptsRemaining int
	// AttemptsTaken counts up from 1 in lock-step with AttemptsRemaining.
	AttemptsTaken int
	// Responses holds every received response after normalization,
	// append-only, one entry per non-timeout response.
	Responses []string

	Outcome domain.Outcome
}

func newSession(cfg Config) *Session {
	return &Session{
		AttemptsRemaining: cfg.Attempts,
		AttemptsTaken:     1,
		Outcome:           domain.OutcomePending,
	}
}

// responses returns a copy of the history safe to hand to listeners.
func (s *Session) responses() []string {
	out := make([]string, len(s.Responses))
	copy(out, s.Responses)
	return out
}
