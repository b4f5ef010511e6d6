package gateway

import "encoding/json"

// Command opcodes sent to the gateway.
const (
	opIdentify      = "identify"
	opSendMessage   = "send_message"
	opEditMessage   = "edit_message"
	opDeleteMessage = "delete_message"
	opOpenDM        = "open_dm"
	opAddRole       = "add_role"
	opKick          = "kick"
)

// Frame opcodes received from the gateway.
const (
	opResult = "result"
	opEvent  = "event"
)

// Gateway push event names.
const (
	eventMessageCreate = "message_create"
	eventMemberJoin    = "member_join"
)

// Error codes the gateway reports on rejected commands.
const (
	codeDMsDisabled     = "dms_disabled"
	codeUnknownChannel  = "unknown_channel"
	codeMissingConsent  = "missing_consent"
	codeInternalFailure = "internal_failure"
)

// frame is the single wire envelope for both directions. Commands carry an
// Op and a Nonce; results echo the Nonce; pushed events carry Event.
type frame struct {
	Op    string          `json:"op"`
	Nonce string          `json:"nonce,omitempty"`
	Event string          `json:"event,omitempty"`
	OK    bool            `json:"ok,omitempty"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type identifyPayload struct {
	Token string `json:"token"`
}

type sendMessagePayload struct {
	ChannelID  string      `json:"channel_id"`
	Content    string      `json:"content,omitempty"`
	Embed      interface{} `json:"embed,omitempty"`
	Attachment interface{} `json:"attachment,omitempty"`
}

type editMessagePayload struct {
	ChannelID string      `json:"channel_id"`
	MessageID string      `json:"message_id"`
	Content   string      `json:"content,omitempty"`
	Embed     interface{} `json:"embed,omitempty"`
}

type deleteMessagePayload struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type openDMPayload struct {
	UserID string `json:"user_id"`
}

type addRolePayload struct {
	UserID string `json:"user_id"`
	RoleID string `json:"role_id"`
}

type kickPayload struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

type sentMessageResult struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type openDMResult struct {
	ChannelID string `json:"channel_id"`
}

// memberJoinEvent announces a member joining the community.
type memberJoinEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
