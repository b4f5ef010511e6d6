package captcha

import (
	"fmt"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

const (
	colorPrompt  = 0x5865F2
	colorSuccess = 0x57F287
	colorFailure = 0xED4245

	attachmentName = "captcha.png"
)

// promptMessage renders the challenge prompt with the image attached and,
// when enabled, the attempt-count footer for the current round.
func promptMessage(cfg Config, member platform.Member, ch *domain.Challenge, sess *Session) platform.Outgoing {
	embed := &platform.Embed{
		Title: "Verification required",
		Description: fmt.Sprintf(
			"Welcome %s! Reply with the text shown in the image below to verify you are human.",
			member.Mention(),
		),
		Color: colorPrompt,
	}
	if cfg.PromptEmbed != nil {
		clone := *cfg.PromptEmbed
		embed = &clone
	}
	embed.ImageAttached = true
	if footer := attemptFooter(cfg, sess); footer != "" {
		embed.Footer = footer
	}

	return platform.Outgoing{
		Embed:      embed,
		Attachment: &platform.Attachment{Name: attachmentName, Data: ch.Image},
	}
}

// attemptFooter returns "Attempt N of M", or empty when disabled or when only
// one attempt is allowed.
func attemptFooter(cfg Config, sess *Session) string {
	if !cfg.ShowAttemptCount || cfg.Attempts <= 1 {
		return ""
	}
	return fmt.Sprintf("Attempt %d of %d", sess.AttemptsTaken, cfg.Attempts)
}

func successMessage(cfg Config, member platform.Member) platform.Outgoing {
	embed := &platform.Embed{
		Title:       "Verification passed",
		Description: fmt.Sprintf("%s, you are verified. Welcome aboard!", member.Mention()),
		Color:       colorSuccess,
	}
	if cfg.SuccessEmbed != nil {
		clone := *cfg.SuccessEmbed
		embed = &clone
	}
	return platform.Outgoing{Embed: embed}
}

func failureMessage(cfg Config, member platform.Member) platform.Outgoing {
	embed := &platform.Embed{
		Title:       "Verification failed",
		Description: fmt.Sprintf("%s did not complete the verification challenge.", member.Username()),
		Color:       colorFailure,
	}
	if cfg.FailureEmbed != nil {
		clone := *cfg.FailureEmbed
		embed = &clone
	}
	return platform.Outgoing{Embed: embed}
}
