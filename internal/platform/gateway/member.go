package gateway

import (
	"context"
	"fmt"
)

// Member is a gateway-backed community member.
type Member struct {
	c        *Client
	userID   string
	username string
}

func (m *Member) ID() string       { return m.userID }
func (m *Member) Username() string { return m.username }

// Mention returns the platform mention token for the member.
func (m *Member) Mention() string {
	return fmt.Sprintf("<@%s>", m.userID)
}

// AddRole grants a role to the member.
func (m *Member) AddRole(ctx context.Context, roleID string) error {
	_, err := m.c.request(ctx, opAddRole, addRolePayload{UserID: m.userID, RoleID: roleID})
	if err != nil {
		return fmt.Errorf("add role %s to %s: %w", roleID, m.userID, err)
	}
	return nil
}

// Kick removes the member from the community.
func (m *Member) Kick(ctx context.Context, reason string) error {
	_, err := m.c.request(ctx, opKick, kickPayload{UserID: m.userID, Reason: reason})
	if err != nil {
		return fmt.Errorf("kick %s: %w", m.userID, err)
	}
	return nil
}
