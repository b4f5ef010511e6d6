package captcha

import (
	"errors"
	"fmt"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

// Defaults applied by DefaultConfig.
const (
	DefaultAttempts = 1
	DefaultTimeout  = 60 * time.Second
)

var (
	ErrAttemptsTooLow    = errors.New("attempts must be at least 1")
	ErrTimeoutTooLow     = errors.New("timeout must be at least 1ms")
	ErrChannelIDRequired = errors.New("channel id required when sending to a text channel")
	ErrRoleIDRequired    = errors.New("role id required when adding a role on success")
)

// Config holds the settings for verification sessions. A Config is resolved
// once (process defaults overlaid with per-call options), validated, and then
// immutable for the lifetime of a session.
type Config struct {
	// RoleID is granted on success when AddRoleOnSuccess is set.
	RoleID string
	// ChannelID is the shared text channel used when SendToTextChannel is
	// set, and the fallback destination when direct delivery is rejected.
	ChannelID string

	SendToTextChannel bool
	AddRoleOnSuccess  bool
	KickOnFailure     bool
	CaseSensitive     bool

	// Attempts is the number of answers a member may submit.
	Attempts int
	// Timeout bounds the wait for each response.
	Timeout time.Duration

	// ShowAttemptCount adds an "Attempt N of M" footer to the prompt when
	// more than one attempt is allowed.
	ShowAttemptCount bool

	// Optional embed overrides. When set they replace the built-in
	// prompt/success/failure embeds.
	PromptEmbed  *platform.Embed
	SuccessEmbed *platform.Embed
	FailureEmbed *platform.Embed
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		AddRoleOnSuccess: true,
		KickOnFailure:    true,
		CaseSensitive:    true,
		Attempts:         DefaultAttempts,
		Timeout:          DefaultTimeout,
		ShowAttemptCount: true,
	}
}

// Validate checks option combinations. An invalid Config is a construction
// error: no presentation may start from it.
func (c Config) Validate() error {
	if c.Attempts < 1 {
		return fmt.Errorf("%w: got %d", ErrAttemptsTooLow, c.Attempts)
	}
	if c.Timeout < time.Millisecond {
		return fmt.Errorf("%w: got %s", ErrTimeoutTooLow, c.Timeout)
	}
	if c.SendToTextChannel && c.ChannelID == "" {
		return ErrChannelIDRequired
	}
	if c.AddRoleOnSuccess && c.RoleID == "" {
		return ErrRoleIDRequired
	}
	return nil
}

// Option overrides one Config field for a single presentation.
type Option func(*Config)

// WithAttempts overrides the allowed number of answers.
func WithAttempts(n int) Option {
	return func(c *Config) { c.Attempts = n }
}

// WithTimeout overrides the per-response wait bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithCaseSensitive overrides answer case sensitivity.
func WithCaseSensitive(v bool) Option {
	return func(c *Config) { c.CaseSensitive = v }
}

// WithRole overrides the role granted on success.
func WithRole(roleID string) Option {
	return func(c *Config) { c.RoleID = roleID }
}

// WithChannel overrides the shared text channel and forces delivery to it.
func WithChannel(channelID string) Option {
	return func(c *Config) {
		c.ChannelID = channelID
		c.SendToTextChannel = true
	}
}

// WithKickOnFailure overrides whether failed members are removed.
func WithKickOnFailure(v bool) Option {
	return func(c *Config) { c.KickOnFailure = v }
}

// WithPromptEmbed replaces the built-in prompt embed.
func WithPromptEmbed(e *platform.Embed) Option {
	return func(c *Config) { c.PromptEmbed = e }
}

// WithSuccessEmbed replaces the built-in success embed.
func WithSuccessEmbed(e *platform.Embed) Option {
	return func(c *Config) { c.SuccessEmbed = e }
}

// WithFailureEmbed replaces the built-in failure embed.
func WithFailureEmbed(e *platform.Embed) Option {
	return func(c *Config) { c.FailureEmbed = e }
}

func (c Config) with(opts []Option) Config {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
