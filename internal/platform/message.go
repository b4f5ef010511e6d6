package platform

// Embed is a rich message card. ImageAttached marks the embed as displaying
// the attachment of the enclosing Outgoing message.
type Embed struct {
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	Color         int    `json:"color,omitempty"`
	Footer        string `json:"footer,omitempty"`
	ImageAttached bool   `json:"image_attached,omitempty"`
}

// Attachment is a binary payload delivered alongside a message.
type Attachment struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Outgoing is a message to be delivered to a destination.
type Outgoing struct {
	Content    string      `json:"content,omitempty"`
	Embed      *Embed      `json:"embed,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Message is an inbound message observed on a destination.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
}

// MessageRef identifies a delivered message for later edit or deletion.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

// Zero reports whether the ref identifies no message.
func (r MessageRef) Zero() bool {
	return r.MessageID == ""
}
