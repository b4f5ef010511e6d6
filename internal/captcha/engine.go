package captcha

import (
	"context"
	"fmt"
	"strings"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

// prompter re-renders the challenge prompt between rounds. Implemented by the
// orchestrator so the engine stays free of rendering and platform mutation.
type prompter interface {
	Reprompt(ctx context.Context, sess *Session) error
}

// engine drives the round loop for a single member's challenge: wait for one
// qualifying response bounded by the timeout, compare it against the expected
// answer, and either re-prompt or settle on a terminal outcome.
//
// The loop is bounded by Session.AttemptsRemaining; each iteration suspends
// exactly once, at AwaitResponse. A timeout is terminal regardless of
// remaining attempts.
type engine struct {
	cfg       Config
	challenge *domain.Challenge
	member    platform.Member
	dest      platform.Destination
	events    *notifier
	prompt    prompter
}

func (e *engine) run(ctx context.Context) (*Session, error) {
	sess := newSession(e.cfg)
	e.emit(EventPrompt, sess)

	for {
		msg, err := e.dest.AwaitResponse(ctx, e.qualifies, e.cfg.Timeout)
		if err != nil {
			return sess, fmt.Errorf("await response: %w", err)
		}
		if msg == nil {
			sess.Outcome = domain.OutcomeTimeout
			e.emit(EventTimeout, sess)
			return sess, nil
		}

		sess.Responses = append(sess.Responses, e.normalize(msg.Content))
		e.emit(EventAnswer, sess)

		if e.normalize(msg.Content) == e.normalize(e.challenge.Answer) {
			sess.Outcome = domain.OutcomeSuccess
			e.emit(EventSuccess, sess)
			return sess, nil
		}

		if sess.AttemptsRemaining <= 1 {
			sess.Outcome = domain.OutcomeExhausted
			e.emit(EventFailure, sess)
			return sess, nil
		}

		sess.AttemptsRemaining--
		sess.AttemptsTaken++
		if err := e.prompt.Reprompt(ctx, sess); err != nil {
			return sess, fmt.Errorf("re-prompt attempt %d: %w", sess.AttemptsTaken, err)
		}
	}
}

// qualifies accepts messages authored by the target member in the prompt's
// destination channel. Author identity disambiguates members sharing a text
// channel.
func (e *engine) qualifies(msg platform.Message) bool {
	return msg.AuthorID == e.member.ID() && msg.ChannelID == e.dest.ID()
}

// normalize lowercases when the session is case-insensitive. Applied to both
// sides of every comparison.
func (e *engine) normalize(s string) string {
	if e.cfg.CaseSensitive {
		return s
	}
	return strings.ToLower(s)
}

func (e *engine) emit(kind EventKind, sess *Session) {
	e.events.emit(Event{
		Kind:          kind,
		Member:        e.member,
		Responses:     sess.responses(),
		AttemptsTaken: sess.AttemptsTaken,
		Answer:        e.challenge.Answer,
		Config:        e.cfg,
	})
}
