package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lexiscan.ai/cli/internal/application/ports"
	"lexiscan.ai/cli/internal/core/chat"
	"lexiscan.ai/cli/internal/core/identity"
	"lexiscan.ai/cli/internal/infrastructure/storage"
)

// ChatService is the dual chat store: guest chats live in one local
// document, account chats live behind the gateway. The two sides are never
// merged automatically; only the migration engine copies guest chats over,
// one way.
type ChatService struct {
	gateway ports.CatalogGateway
	store   *storage.GuestStore
	logger  ports.LoggingGateway
	now     func() time.Time

	mu sync.Mutex
	id identity.Identity
}

// NewChatService creates a chat store bound to the guest identity.
func NewChatService(gateway ports.CatalogGateway, store *storage.GuestStore, logger ports.LoggingGateway) *ChatService {
	return &ChatService{gateway: gateway, store: store, logger: logger, now: time.Now}
}

// SetIdentity switches the active store side.
func (s *ChatService) SetIdentity(id identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

func (s *ChatService) identity() identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// StartChat creates a chat in the active store and returns it.
func (s *ChatService) StartChat(ctx context.Context, title string, chatContext map[string]any) (chat.Chat, error) {
	id := s.identity()
	now := s.now()

	if id.IsGuest() {
		doc, err := s.store.LoadChats(ctx)
		if err != nil {
			return chat.Chat{}, err
		}
		c := doc.CreateChat(title, chatContext, now)
		if err := s.store.SaveChats(ctx, doc); err != nil {
			return chat.Chat{}, err
		}
		return c, nil
	}

	c := chat.Chat{Title: title, Context: chatContext, CreatedAt: now, UpdatedAt: now}
	remoteID, err := s.gateway.CreateChat(ctx, id.AccountID(), c)
	if err != nil {
		return chat.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}
	c.ID = remoteID
	return c, nil
}

// AppendMessage adds a message to a chat in the active store.
func (s *ChatService) AppendMessage(ctx context.Context, chatID string, role chat.Role, content string, imageURL *string) (chat.Message, error) {
	id := s.identity()
	now := s.now()

	if id.IsGuest() {
		doc, err := s.store.LoadChats(ctx)
		if err != nil {
			return chat.Message{}, err
		}
		m, err := doc.AppendMessage(chatID, role, content, imageURL, now)
		if err != nil {
			return chat.Message{}, err
		}
		if err := s.store.SaveChats(ctx, doc); err != nil {
			return chat.Message{}, err
		}
		return m, nil
	}

	m := chat.Message{Role: role, Content: content, ImageURL: imageURL, CreatedAt: now}
	if err := s.gateway.AppendChatMessage(ctx, id.AccountID(), chatID, m); err != nil {
		return chat.Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	return m, nil
}

// UpdateTitle renames a guest chat. Account chat titles are managed by the
// backend.
func (s *ChatService) UpdateTitle(ctx context.Context, chatID, title string) error {
	id := s.identity()
	if !id.IsGuest() {
		return fmt.Errorf("account chat titles are managed remotely")
	}
	doc, err := s.store.LoadChats(ctx)
	if err != nil {
		return err
	}
	if err := doc.UpdateTitle(chatID, title, s.now()); err != nil {
		return err
	}
	return s.store.SaveChats(ctx, doc)
}

// DeleteChat removes a guest chat on explicit user action.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	id := s.identity()
	if !id.IsGuest() {
		return fmt.Errorf("account chat deletion is managed remotely")
	}
	doc, err := s.store.LoadChats(ctx)
	if err != nil {
		return err
	}
	if err := doc.DeleteChat(chatID); err != nil {
		return err
	}
	return s.store.SaveChats(ctx, doc)
}

// ListChats lists chats in the active store.
func (s *ChatService) ListChats(ctx context.Context) ([]chat.Chat, error) {
	id := s.identity()
	if id.IsGuest() {
		doc, err := s.store.LoadChats(ctx)
		if err != nil {
			return nil, err
		}
		return doc.Chats, nil
	}
	return s.gateway.ListChats(ctx, id.AccountID())
}

// MostRecentChat returns the latest-updated chat in the active store, nil
// when there are none.
func (s *ChatService) MostRecentChat(ctx context.Context) (*chat.Chat, error) {
	chats, err := s.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	var latest *chat.Chat
	for i := range chats {
		if latest == nil || chats[i].UpdatedAt.After(latest.UpdatedAt) {
			latest = &chats[i]
		}
	}
	return latest, nil
}
