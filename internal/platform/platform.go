// Package platform defines the capability surface the verification flow needs
// from a chat platform: members that can be granted roles or removed, and
// destinations that can deliver messages and wait for replies. Concrete
// implementations live in platform/gateway.
package platform

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrDestinationUnavailable is returned by a Resolver when neither a
	// direct message channel nor a configured text channel is reachable.
	ErrDestinationUnavailable = errors.New("no reachable destination for member")

	// ErrDeliveryRejected is returned by Destination.Send when the platform
	// refuses delivery, e.g. the member has direct messages disabled.
	ErrDeliveryRejected = errors.New("delivery rejected by platform")
)

// Member is a community member subject to verification.
type Member interface {
	ID() string
	Username() string
	// Mention returns the platform mention token for the member.
	Mention() string
	AddRole(ctx context.Context, roleID string) error
	Kick(ctx context.Context, reason string) error
}

// MessageFilter decides whether an incoming message qualifies as a response.
type MessageFilter func(Message) bool

// Destination is a channel the challenge is delivered to. Send delivers a
// message; AwaitResponse blocks until one message passing the filter arrives
// or the timeout elapses, in which case it returns (nil, nil).
type Destination interface {
	ID() string
	Send(ctx context.Context, out Outgoing) (MessageRef, error)
	AwaitResponse(ctx context.Context, filter MessageFilter, timeout time.Duration) (*Message, error)
}

// MessageDeleter is implemented by destinations whose messages can be
// removed after the fact. Ephemeral direct-message channels do not implement
// it.
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, ref MessageRef) error
}

// MessageEditor is implemented by destinations whose messages can be edited
// in place.
type MessageEditor interface {
	EditMessage(ctx context.Context, ref MessageRef, out Outgoing) error
}

// Resolver picks the delivery destination for a member: the configured text
// channel when sendToTextChannel is set, otherwise the member's direct
// message channel.
type Resolver interface {
	Resolve(ctx context.Context, sendToTextChannel bool, channelID string, member Member) (Destination, error)
}
