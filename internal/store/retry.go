package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
)

// isSQLiteConflict reports whether the error is a SQLITE_BUSY or "database is
// locked" concurrency error. Both warrant a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// saveVerificationWithRetry attempts to persist a record with exponential
// backoff to ride out SQLITE_BUSY while other sessions commit.
func saveVerificationWithRetry(ctx context.Context, repo Repository, rec *domain.VerificationRecord, logger *slog.Logger) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := repo.SaveVerification(ctx, rec)
		if err == nil {
			return nil
		}

		if isSQLiteConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
			logger.Debug("Verification save hit a busy database, retrying",
				"member_id", rec.MemberID,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("save verification for %s: %w", rec.MemberID, err)
	}

	return nil
}
