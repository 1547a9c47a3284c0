package domain

import (
	"encoding/json"
	"time"
)

// MessageID identity of a record in the feed. It is either Pending (a local
// echo waiting for the server) or Confirmed (server issued).
type MessageID interface {
	Key() string
	IsOptimistic() bool
	messageID()
}

// Pending identity of a locally originated message not yet acknowledged
type Pending struct {
	LocalID string
}

// Key the local id
func (p Pending) Key() string { return p.LocalID }

// IsOptimistic always true
func (p Pending) IsOptimistic() bool { return true }

func (Pending) messageID() {}

// Confirmed identity issued by the server
type Confirmed struct {
	ServerID string
}

// Key the server id
func (c Confirmed) Key() string { return c.ServerID }

// IsOptimistic always false
func (c Confirmed) IsOptimistic() bool { return false }

func (Confirmed) messageID() {}

// Message one record of the conversation window
type Message struct {
	ID          MessageID
	RoomID      string
	AuthorID    string
	Content     string
	Attachments []Attachment
	IsEdited    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key the string id used for uniqueness, empty when no identity is set
func (m Message) Key() string {
	if m.ID == nil {
		return ""
	}
	return m.ID.Key()
}

// IsOptimistic true while the record awaits confirmation
func (m Message) IsOptimistic() bool {
	return m.ID != nil && m.ID.IsOptimistic()
}

// Clone deep copy, attachments included
func (m Message) Clone() Message {
	m.Attachments = cloneAttachments(m.Attachments)
	return m
}

type messageJSON struct {
	ID           string       `json:"id"`
	RoomID       string       `json:"room_id"`
	AuthorID     string       `json:"author_id"`
	Content      string       `json:"content"`
	Attachments  []Attachment `json:"attachments"`
	IsEdited     bool         `json:"is_edited"`
	IsOptimistic bool         `json:"is_optimistic"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// MarshalJSON flattens the identity into id / is_optimistic for UI clients
func (m Message) MarshalJSON() ([]byte, error) {
	atts := m.Attachments
	if atts == nil {
		atts = []Attachment{}
	}
	return json.Marshal(messageJSON{
		ID:           m.Key(),
		RoomID:       m.RoomID,
		AuthorID:     m.AuthorID,
		Content:      m.Content,
		Attachments:  atts,
		IsEdited:     m.IsEdited,
		IsOptimistic: m.IsOptimistic(),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	})
}

// ServerMessage the confirmed form exchanged with the registry, the
// mutation transport and the push channel
type ServerMessage struct {
	ID          string       `bson:"_id" json:"id"`
	RoomID      string       `bson:"room_id" json:"room_id"`
	AuthorID    string       `bson:"author_id" json:"author_id"`
	Content     string       `bson:"content" json:"content"`
	Attachments []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	IsEdited    bool         `bson:"is_edited" json:"is_edited"`
	CreatedAt   time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `bson:"updated_at" json:"updated_at"`
}

// ToMessage builds a Confirmed record
func (s ServerMessage) ToMessage() Message {
	return Message{
		ID:          Confirmed{ServerID: s.ID},
		RoomID:      s.RoomID,
		AuthorID:    s.AuthorID,
		Content:     s.Content,
		Attachments: cloneAttachments(s.Attachments),
		IsEdited:    s.IsEdited,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ToMessages converts a page of server records, order kept
func ToMessages(list []ServerMessage) []Message {
	out := make([]Message, 0, len(list))
	for _, s := range list {
		out = append(out, s.ToMessage())
	}
	return out
}
