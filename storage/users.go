package storage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Roles a user can hold.
const (
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

// User is a registered account, keyed by phone-verified identity.
type User struct {
	ID         string `json:"id"`
	Phone      string `json:"phone"`
	Name       string `json:"name"`
	Language   string `json:"language"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// NewUser creates an unverified farmer account.
func NewUser(phone, name, language string) *User {
	return &User{
		ID:       strings.ReplaceAll(uuid.New().String(), "-", ""),
		Phone:    phone,
		Name:     name,
		Language: language,
		Role:     RoleFarmer,
	}
}

// SaveUser upserts a user.
func (s *Store) SaveUser(ctx context.Context, u *User) error {
	return putJSON(ctx, s.users, u.ID, u)
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := getJSON(ctx, s.users, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser removes a user account. Deleting a missing user is not an
// error.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// GetUserByPhone retrieves a user by phone number.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	keys, err := keysWithPrefix(ctx, s.users, "")
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		entry, err := s.users.Get(ctx, key)
		if err != nil {
			continue
		}
		var u User
		if err := json.Unmarshal(entry.Value(), &u); err != nil {
			continue
		}
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}
