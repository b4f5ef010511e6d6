// Package captcha implements the challenge-response verification flow: a
// member is shown an image challenge and must reply with its text within a
// bounded number of attempts before being granted a role, or be removed on
// failure.
package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

const (
	answerLength      = 6
	lowercaseAlphabet = "abcdefghijklmnopqrstuvwxyz"
)

var (
	ErrNoMember         = errors.New("member is required")
	ErrInvalidChallenge = errors.New("custom challenge needs an image and an answer")
)

// Generator produces a fresh challenge of the given answer length. exclude
// lists characters the answer must not contain; empty means no restriction.
type Generator interface {
	Generate(ctx context.Context, length int, exclude string) (*domain.Challenge, error)
}

// Captcha presents verification challenges to members and executes the
// terminal side effects (role grant, kick) the engine decides on.
type Captcha struct {
	cfg      Config
	gen      Generator
	resolver platform.Resolver
	events   *notifier
	logger   *slog.Logger
}

// New validates the configuration and builds a Captcha. An invalid config is
// rejected here, before any presentation can start.
func New(cfg Config, gen Generator, resolver platform.Resolver, logger *slog.Logger) (*Captcha, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("captcha config: %w", err)
	}
	if gen == nil {
		return nil, errors.New("captcha: generator is required")
	}
	if resolver == nil {
		return nil, errors.New("captcha: resolver is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Captcha{
		cfg:      cfg,
		gen:      gen,
		resolver: resolver,
		events:   &notifier{},
		logger:   logger,
	}, nil
}

// Notify registers a lifecycle listener. Listeners should be registered
// during setup, before the first presentation.
func (c *Captcha) Notify(fn Listener) {
	c.events.subscribe(fn)
}

// Present generates a challenge and starts a verification session for the
// member. It returns once the prompt is delivered and the session is running;
// the outcome is observed through lifecycle events. ctx must outlive the
// session: it bounds every round of the response wait.
func (c *Captcha) Present(ctx context.Context, member platform.Member, opts ...Option) error {
	return c.present(ctx, member, nil, opts)
}

// PresentChallenge is Present with a caller-supplied challenge instead of a
// generated one.
func (c *Captcha) PresentChallenge(ctx context.Context, member platform.Member, ch *domain.Challenge, opts ...Option) error {
	if !ch.Valid() {
		return ErrInvalidChallenge
	}
	return c.present(ctx, member, ch, opts)
}

func (c *Captcha) present(ctx context.Context, member platform.Member, ch *domain.Challenge, opts []Option) error {
	if member == nil {
		return ErrNoMember
	}

	cfg := c.cfg.with(opts)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("presentation config: %w", err)
	}

	if ch == nil {
		exclude := ""
		if !cfg.CaseSensitive {
			exclude = lowercaseAlphabet
		}
		generated, err := c.gen.Generate(ctx, answerLength, exclude)
		if err != nil {
			return fmt.Errorf("generate challenge: %w", err)
		}
		ch = generated
	}

	p := &presentation{c: c, cfg: cfg, member: member, challenge: ch}
	if err := p.deliver(ctx); err != nil {
		c.logger.Error("challenge delivery failed",
			"member_id", member.ID(),
			"username", member.Username(),
			"error", err)
		return err
	}

	// One task per presentation; unrelated members verify concurrently.
	go p.run(ctx)
	return nil
}

// presentation is the per-session effectful shell around the engine: it owns
// the destination, the live prompt message, and the terminal side effects.
type presentation struct {
	c         *Captcha
	cfg       Config
	member    platform.Member
	challenge *domain.Challenge
	dest      platform.Destination
	promptRef platform.MessageRef
}

// deliver resolves the destination and sends the initial prompt. When direct
// delivery is rejected by the platform and a text channel is configured, it
// falls back to the channel before giving up.
func (p *presentation) deliver(ctx context.Context) error {
	out := promptMessage(p.cfg, p.member, p.challenge, newSession(p.cfg))

	dest, err := p.c.resolver.Resolve(ctx, p.cfg.SendToTextChannel, p.cfg.ChannelID, p.member)
	if err == nil {
		var ref platform.MessageRef
		ref, err = dest.Send(ctx, out)
		if err == nil {
			p.dest = dest
			p.promptRef = ref
			return nil
		}
	}

	if !p.canFallBack(err) {
		return err
	}

	p.c.logger.Warn("direct delivery unavailable, falling back to text channel",
		"member_id", p.member.ID(),
		"channel_id", p.cfg.ChannelID,
		"error", err)

	dest, rerr := p.c.resolver.Resolve(ctx, true, p.cfg.ChannelID, p.member)
	if rerr != nil {
		return fmt.Errorf("fallback destination: %w", rerr)
	}
	ref, serr := dest.Send(ctx, out)
	if serr != nil {
		return fmt.Errorf("fallback delivery: %w", serr)
	}
	p.dest = dest
	p.promptRef = ref
	return nil
}

// canFallBack reports whether a failed direct delivery may retry on the
// configured text channel.
func (p *presentation) canFallBack(err error) bool {
	if p.cfg.SendToTextChannel || p.cfg.ChannelID == "" {
		return false
	}
	return errors.Is(err, platform.ErrDeliveryRejected) ||
		errors.Is(err, platform.ErrDestinationUnavailable)
}

func (p *presentation) run(ctx context.Context) {
	eng := &engine{
		cfg:       p.cfg,
		challenge: p.challenge,
		member:    p.member,
		dest:      p.dest,
		events:    p.c.events,
		prompt:    p,
	}

	sess, err := eng.run(ctx)
	if err != nil {
		p.c.logger.Error("verification session aborted",
			"member_id", p.member.ID(),
			"attempts_taken", sess.AttemptsTaken,
			"error", err)
		return
	}

	switch sess.Outcome {
	case domain.OutcomeSuccess:
		p.finishSuccess(ctx)
	case domain.OutcomeTimeout, domain.OutcomeExhausted:
		p.finishFailure(ctx, sess.Outcome)
	}
}

// Reprompt re-renders the prompt for the next round, editing the existing
// message when the destination supports it.
func (p *presentation) Reprompt(ctx context.Context, sess *Session) error {
	out := promptMessage(p.cfg, p.member, p.challenge, sess)

	if editor, ok := p.dest.(platform.MessageEditor); ok && !p.promptRef.Zero() {
		return editor.EditMessage(ctx, p.promptRef, out)
	}

	ref, err := p.dest.Send(ctx, out)
	if err != nil {
		return err
	}
	p.promptRef = ref
	return nil
}

func (p *presentation) finishSuccess(ctx context.Context) {
	if p.cfg.AddRoleOnSuccess {
		if err := p.member.AddRole(ctx, p.cfg.RoleID); err != nil {
			p.c.logger.Error("failed to grant role",
				"member_id", p.member.ID(),
				"role_id", p.cfg.RoleID,
				"error", err)
		}
	}

	if _, err := p.dest.Send(ctx, successMessage(p.cfg, p.member)); err != nil {
		p.c.logger.Warn("failed to send success message",
			"member_id", p.member.ID(), "error", err)
	}

	p.deletePrompt(ctx)

	p.c.logger.Info("member verified",
		"member_id", p.member.ID(),
		"username", p.member.Username())
}

func (p *presentation) finishFailure(ctx context.Context, outcome domain.Outcome) {
	p.deletePrompt(ctx)

	if _, err := p.dest.Send(ctx, failureMessage(p.cfg, p.member)); err != nil {
		p.c.logger.Warn("failed to send failure message",
			"member_id", p.member.ID(), "error", err)
	}

	if p.cfg.KickOnFailure {
		if err := p.member.Kick(ctx, "failed captcha verification"); err != nil {
			p.c.logger.Error("failed to kick member",
				"member_id", p.member.ID(), "error", err)
		}
	}

	p.c.logger.Info("member failed verification",
		"member_id", p.member.ID(),
		"username", p.member.Username(),
		"outcome", string(outcome))
}

func (p *presentation) deletePrompt(ctx context.Context) {
	deleter, ok := p.dest.(platform.MessageDeleter)
	if !ok || p.promptRef.Zero() {
		return
	}
	if err := deleter.DeleteMessage(ctx, p.promptRef); err != nil {
		p.c.logger.Debug("failed to delete prompt message",
			"member_id", p.member.ID(), "error", err)
	}
}
