package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

// destination is the shared delivery behavior of text and DM channels.
type destination struct {
	c         *Client
	channelID string
}

func (d *destination) ID() string { return d.channelID }

// Send delivers a message to the channel. Platform rejections (DMs disabled,
// unknown channel) map to platform.ErrDeliveryRejected so callers can fall
// back to another destination.
func (d *destination) Send(ctx context.Context, out platform.Outgoing) (platform.MessageRef, error) {
	payload := sendMessagePayload{
		ChannelID:  d.channelID,
		Content:    out.Content,
		Embed:      out.Embed,
		Attachment: out.Attachment,
	}

	raw, err := d.c.request(ctx, opSendMessage, payload)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && rejectionCode(cmdErr.Code) {
			return platform.MessageRef{}, fmt.Errorf("%w: %s", platform.ErrDeliveryRejected, cmdErr.Code)
		}
		return platform.MessageRef{}, fmt.Errorf("send to %s: %w", d.channelID, err)
	}

	var sent sentMessageResult
	if err := json.Unmarshal(raw, &sent); err != nil {
		return platform.MessageRef{}, fmt.Errorf("decode send result: %w", err)
	}
	return platform.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.MessageID}, nil
}

// AwaitResponse waits for one message passing the filter, or the timeout.
func (d *destination) AwaitResponse(ctx context.Context, filter platform.MessageFilter, timeout time.Duration) (*platform.Message, error) {
	return d.c.awaitMessage(ctx, filter, timeout)
}

func rejectionCode(code string) bool {
	switch code {
	case codeDMsDisabled, codeUnknownChannel, codeMissingConsent:
		return true
	}
	return false
}

// TextChannel is a persistent channel whose messages can be edited and
// deleted.
type TextChannel struct {
	destination
}

// EditMessage replaces a previously sent message in place.
func (t *TextChannel) EditMessage(ctx context.Context, ref platform.MessageRef, out platform.Outgoing) error {
	payload := editMessagePayload{
		ChannelID: ref.ChannelID,
		MessageID: ref.MessageID,
		Content:   out.Content,
		Embed:     out.Embed,
	}
	if _, err := t.c.request(ctx, opEditMessage, payload); err != nil {
		return fmt.Errorf("edit message %s: %w", ref.MessageID, err)
	}
	return nil
}

// DeleteMessage removes a previously sent message.
func (t *TextChannel) DeleteMessage(ctx context.Context, ref platform.MessageRef) error {
	payload := deleteMessagePayload{ChannelID: ref.ChannelID, MessageID: ref.MessageID}
	if _, err := t.c.request(ctx, opDeleteMessage, payload); err != nil {
		return fmt.Errorf("delete message %s: %w", ref.MessageID, err)
	}
	return nil
}

// DMChannel is an ephemeral direct-message channel. Its messages can not be
// edited or deleted after delivery.
type DMChannel struct {
	destination
}
