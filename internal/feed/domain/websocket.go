package domain

// Action websocket request action
type Action string

const (
	// SelectRoom websocket action select_room
	SelectRoom Action = "select_room"
	// LoadMore websocket action load_more
	LoadMore Action = "load_more"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// EditMessage websocket action edit_message
	EditMessage Action = "edit_message"
	// DeleteMessage websocket action delete_message
	DeleteMessage Action = "delete_message"
	// GetView websocket action get_view
	GetView Action = "get_view"
	// OpenPreview websocket action open_preview
	OpenPreview Action = "open_preview"
	// ClosePreview websocket action close_preview
	ClosePreview Action = "close_preview"

	// NotifyFeed server push of an applied feed event
	NotifyFeed Action = "feed_event"
)

// WSRequest websocket Request. The same shape is used by UI clients and by
// the mutation transport toward the chat service.
type WSRequest struct {
	Action          string       `json:"action"`
	RequestID       string       `json:"request_id,omitempty"`
	RoomID          string       `json:"room_id,omitempty"`
	MessageID       string       `json:"message_id,omitempty"`
	LocalID         string       `json:"local_id,omitempty"`
	Content         string       `json:"content,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	AttachmentIndex int          `json:"attachment_index,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action    string                 `json:"action"`
	RequestID string                 `json:"request_id,omitempty"`
	Success   bool                   `json:"success"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Message   *ServerMessage         `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
