package domain

import (
	"slices"
	"time"
)

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeLocation MessageType = "location"
	MessageTypeSystem   MessageType = "system"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeLocation, MessageTypeSystem:
		return true
	}
	return false
}

// MessageStatus is a lightweight tag; transitions are not checked.
// Only sending, sent and failed are produced today.
type MessageStatus string

const (
	MessageStatusSending   MessageStatus = "sending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

type ParticipantRole string

const (
	RoleDonor     ParticipantRole = "donor"
	RoleRecipient ParticipantRole = "recipient"
)

type Attachment struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"` // "image" | "document"
	URL      string `json:"url" yaml:"url"`
	Filename string `json:"filename" yaml:"filename"`
	Size     int64  `json:"size" yaml:"size"`
	MimeType string `json:"mime_type" yaml:"mime_type"`
}

type Message struct {
	ID             string        `json:"id" yaml:"id"`
	ConversationID string        `json:"conversation_id" yaml:"conversation_id"`
	SenderID       string        `json:"sender_id" yaml:"sender_id"`
	ReceiverID     string        `json:"receiver_id" yaml:"receiver_id"`
	Content        string        `json:"content" yaml:"content"`
	Type           MessageType   `json:"type" yaml:"type"`
	Status         MessageStatus `json:"status" yaml:"status"`
	Timestamp      time.Time     `json:"timestamp" yaml:"timestamp"`
	ReadAt         *time.Time    `json:"read_at,omitempty" yaml:"read_at,omitempty"`
	EditedAt       *time.Time    `json:"edited_at,omitempty" yaml:"edited_at,omitempty"`
	ReplyTo        *string       `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`
	Attachments    []Attachment  `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.ReadAt = cloneTime(m.ReadAt)
	c.EditedAt = cloneTime(m.EditedAt)
	c.ReplyTo = cloneString(m.ReplyTo)
	c.Attachments = slices.Clone(m.Attachments)
	return &c
}

// ItemSummary is the denormalized item carried by a conversation.
type ItemSummary struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title" yaml:"title"`
	Image  string     `json:"image" yaml:"image"`
	Status ItemStatus `json:"status" yaml:"status"`
}

// NewItemSummary takes the first image as the thumbnail.
func NewItemSummary(item *Item) ItemSummary {
	s := ItemSummary{ID: item.ID, Title: item.Title, Status: item.Status}
	if len(item.Images) > 0 {
		s.Image = item.Images[0]
	}
	return s
}

type Participant struct {
	ID             string          `json:"id" yaml:"id"`
	FirstName      string          `json:"first_name" yaml:"first_name"`
	LastName       string          `json:"last_name" yaml:"last_name"`
	ProfilePicture *string         `json:"profile_picture,omitempty" yaml:"profile_picture,omitempty"`
	IsOnline       bool            `json:"is_online" yaml:"is_online"`
	LastSeen       *time.Time      `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
	Role           ParticipantRole `json:"role" yaml:"role"`
}

// NewParticipant snapshots u in the given role.
func NewParticipant(u *User, role ParticipantRole) Participant {
	return Participant{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: cloneString(u.ProfilePicture),
		Role:           role,
	}
}

type Conversation struct {
	ID           string        `json:"id" yaml:"id"`
	ItemID       string        `json:"item_id" yaml:"item_id"`
	Item         ItemSummary   `json:"item" yaml:"item"`
	Participants []Participant `json:"participants" yaml:"participants"`
	LastMessage  *Message      `json:"last_message,omitempty" yaml:"last_message,omitempty"`
	UnreadCount  int           `json:"unread_count" yaml:"unread_count"`
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" yaml:"updated_at"`
	IsActive     bool          `json:"is_active" yaml:"is_active"`
	IsBlocked    bool          `json:"is_blocked" yaml:"is_blocked"`
}

func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = make([]Participant, len(c.Participants))
	for i, p := range c.Participants {
		p.ProfilePicture = cloneString(p.ProfilePicture)
		p.LastSeen = cloneTime(p.LastSeen)
		out.Participants[i] = p
	}
	out.LastMessage = c.LastMessage.Clone()
	return &out
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return slices.ContainsFunc(c.Participants, func(p Participant) bool {
		return p.ID == userID
	})
}

// Counterpart returns the first participant that is not userID.
func (c *Conversation) Counterpart(userID string) (Participant, bool) {
	for _, p := range c.Participants {
		if p.ID != userID {
			return p, true
		}
	}
	return Participant{}, false
}

// RefreshParticipant rewrites the snapshot of u, if present. It reports
// whether anything changed.
func (c *Conversation) RefreshParticipant(u *User) bool {
	changed := false
	for i := range c.Participants {
		if c.Participants[i].ID != u.ID {
			continue
		}
		c.Participants[i].FirstName = u.FirstName
		c.Participants[i].LastName = u.LastName
		c.Participants[i].ProfilePicture = cloneString(u.ProfilePicture)
		changed = true
	}
	return changed
}
