package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/captcha"
	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
)

const saveTimeout = 5 * time.Second

// Recorder persists terminal verification outcomes. Register its Listen
// method as a captcha lifecycle listener.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to the given repository.
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Listen stores success/timeout/failure events. Prompt and answer events are
// transient and not persisted.
func (r *Recorder) Listen(ev captcha.Event) {
	var outcome domain.Outcome
	switch ev.Kind {
	case captcha.EventSuccess:
		outcome = domain.OutcomeSuccess
	case captcha.EventTimeout:
		outcome = domain.OutcomeTimeout
	case captcha.EventFailure:
		outcome = domain.OutcomeExhausted
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	rec := &domain.VerificationRecord{
		MemberID:      ev.Member.ID(),
		Username:      ev.Member.Username(),
		Outcome:       outcome,
		AttemptsTaken: ev.AttemptsTaken,
		Responses:     ev.Responses,
		Answer:        ev.Answer,
	}
	if err := saveVerificationWithRetry(ctx, r.repo, rec, r.logger); err != nil {
		r.logger.Error("failed to record verification outcome",
			"member_id", rec.MemberID,
			"outcome", string(outcome),
			"error", err)
	}
}
