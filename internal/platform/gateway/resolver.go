package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GalaxyBotTeam/captcha-gate/internal/platform"
)

// Resolve picks the delivery destination for a member: the configured text
// channel when requested, otherwise the member's direct message channel.
// Members who refuse DMs surface platform.ErrDeliveryRejected so the caller
// can retry on the text channel.
func (c *Client) Resolve(ctx context.Context, sendToTextChannel bool, channelID string, member platform.Member) (platform.Destination, error) {
	if sendToTextChannel {
		if channelID == "" {
			return nil, platform.ErrDestinationUnavailable
		}
		return c.TextChannel(channelID), nil
	}

	raw, err := c.request(ctx, opOpenDM, openDMPayload{UserID: member.ID()})
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && rejectionCode(cmdErr.Code) {
			return nil, fmt.Errorf("%w: %s", platform.ErrDeliveryRejected, cmdErr.Code)
		}
		return nil, fmt.Errorf("%w: open dm for %s: %v", platform.ErrDestinationUnavailable, member.ID(), err)
	}

	var dm openDMResult
	if err := json.Unmarshal(raw, &dm); err != nil {
		return nil, fmt.Errorf("decode open_dm result: %w", err)
	}
	return &DMChannel{destination{c: c, channelID: dm.ChannelID}}, nil
}
