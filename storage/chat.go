package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agromitra/agromitra/chat"
)

// messageKey builds a per-session key that sorts chronologically when
// listed by prefix.
func messageKey(chatID string, tsNanos int64) string {
	return fmt.Sprintf("%s.%019d", chatID, tsNanos)
}

// SaveChatSession upserts a chat session.
func (s *Store) SaveChatSession(ctx context.Context, session *chat.Session) error {
	return putJSON(ctx, s.chatSessions, session.ID, session)
}

// GetChatSession retrieves a chat session by id.
func (s *Store) GetChatSession(ctx context.Context, id string) (*chat.Session, error) {
	var session chat.Session
	if err := getJSON(ctx, s.chatSessions, id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListChatSessionsByUser returns all sessions owned by a user, newest
// first.
func (s *Store) ListChatSessionsByUser(ctx context.Context, userID string) ([]*chat.Session, error) {
	keys, err := keysWithPrefix(ctx, s.chatSessions, "")
	if err != nil {
		return nil, err
	}

	sessions := make([]*chat.Session, 0)
	for _, key := range keys {
		entry, err := s.chatSessions.Get(ctx, key)
		if err != nil {
			continue
		}
		var session chat.Session
		if err := json.Unmarshal(entry.Value(), &session); err != nil {
			continue
		}
		if session.UserID == userID {
			sessions = append(sessions, &session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	return sessions, nil
}

// DeleteChatSession removes a session and all of its messages.
func (s *Store) DeleteChatSession(ctx context.Context, chatID string) error {
	keys, err := keysWithPrefix(ctx, s.chatMessages, chatID+".")
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.chatMessages.Delete(ctx, key); err != nil && !isNotFound(err) {
			return fmt.Errorf("delete chat message %s: %w", key, err)
		}
	}
	if err := s.chatSessions.Delete(ctx, chatID); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// SaveChatMessage appends a message to its session.
func (s *Store) SaveChatMessage(ctx context.Context, msg *chat.Message) error {
	return putJSON(ctx, s.chatMessages, messageKey(msg.ChatID, msg.TS.UnixNano()), msg)
}

// ListChatMessages returns a session's messages in chronological order.
// limit <= 0 returns all of them; otherwise the most recent limit messages.
func (s *Store) ListChatMessages(ctx context.Context, chatID string, limit int) ([]*chat.Message, error) {
	keys, err := keysWithPrefix(ctx, s.chatMessages, chatID+".")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	if limit > 0 && len(keys) > limit {
		keys = keys[len(keys)-limit:]
	}

	messages := make([]*chat.Message, 0, len(keys))
	for _, key := range keys {
		entry, err := s.chatMessages.Get(ctx, key)
		if err != nil {
			continue
		}
		var msg chat.Message
		if err := json.Unmarshal(entry.Value(), &msg); err != nil {
			continue
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}
