// Package store provides persistence for verification outcomes.
package store

import (
	"context"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
)

// Repository defines the interface for persisting verification records.
type Repository interface {
	// SaveVerification persists the terminal outcome of a session.
	SaveVerification(ctx context.Context, rec *domain.VerificationRecord) error

	// ListVerifications returns the most recent records, newest first.
	ListVerifications(ctx context.Context, limit int) ([]*domain.VerificationRecord, error)

	// GetVerificationsByMember returns all records for a member, newest first.
	GetVerificationsByMember(ctx context.Context, memberID string) ([]*domain.VerificationRecord, error)

	// CountByOutcome returns the number of stored records per outcome.
	CountByOutcome(ctx context.Context) (map[domain.Outcome]int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
