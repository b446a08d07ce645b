package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message. ImageURL may point at device-local data
// for guest chats; such references are dropped when a chat is migrated to an
// account.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is a conversation header. Context carries optional structured data
// about the document under discussion.
type Chat struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Context   map[string]any `json:"context,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Document is the guest-local chat store: a chat list plus per-chat ordered
// message lists. It is a plain value persisted as one JSON document.
type Document struct {
	Chats    []Chat               `json:"chats"`
	Messages map[string][]Message `json:"messages"`
}

// NewDocument returns an empty chat document.
func NewDocument() *Document {
	return &Document{Messages: make(map[string][]Message)}
}

// CreateChat starts a new chat with a locally generated id.
func (d *Document) CreateChat(title string, context map[string]any, now time.Time) Chat {
	c := Chat{
		ID:        uuid.NewString(),
		Title:     title,
		Context:   context,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.Chats = append(d.Chats, c)
	if d.Messages == nil {
		d.Messages = make(map[string][]Message)
	}
	d.Messages[c.ID] = nil
	return c
}

// AppendMessage adds a message to an existing chat and bumps its UpdatedAt.
func (d *Document) AppendMessage(chatID string, role Role, content string, imageURL *string, now time.Time) (Message, error) {
	idx := d.chatIndex(chatID)
	if idx < 0 {
		return Message{}, fmt.Errorf("chat %s not found", chatID)
	}
	m := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		ImageURL:  imageURL,
		CreatedAt: now,
	}
	if d.Messages == nil {
		d.Messages = make(map[string][]Message)
	}
	d.Messages[chatID] = append(d.Messages[chatID], m)
	d.Chats[idx].UpdatedAt = now
	return m, nil
}

// UpdateTitle renames a chat.
func (d *Document) UpdateTitle(chatID, title string, now time.Time) error {
	idx := d.chatIndex(chatID)
	if idx < 0 {
		return fmt.Errorf("chat %s not found", chatID)
	}
	d.Chats[idx].Title = title
	d.Chats[idx].UpdatedAt = now
	return nil
}

// DeleteChat removes a chat and its messages. Deletion is only ever driven
// by an explicit user action, never by migration.
func (d *Document) DeleteChat(chatID string) error {
	idx := d.chatIndex(chatID)
	if idx < 0 {
		return fmt.Errorf("chat %s not found", chatID)
	}
	d.Chats = append(d.Chats[:idx], d.Chats[idx+1:]...)
	delete(d.Messages, chatID)
	return nil
}

// MostRecent returns the chat with the latest UpdatedAt, or nil when empty.
func (d *Document) MostRecent() *Chat {
	var latest *Chat
	for i := range d.Chats {
		if latest == nil || d.Chats[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &d.Chats[i]
		}
	}
	return latest
}

// MessagesFor returns the ordered message list for a chat.
func (d *Document) MessagesFor(chatID string) []Message {
	return d.Messages[chatID]
}

func (d *Document) chatIndex(chatID string) int {
	for i := range d.Chats {
		if d.Chats[i].ID == chatID {
			return i
		}
	}
	return -1
}
