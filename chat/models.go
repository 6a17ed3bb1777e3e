// Package chat holds conversational sessions: the persisted session and
// message models, provider-agnostic content normalization, and the farm
// survey and general chat orchestrators.
package chat

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Command tells the app what to do after a model reply.
type Command string

const (
	CommandContinue   Command = "continue"
	CommandExit       Command = "exit"
	CommandOpenCamera Command = "open_camera"
	CommandLocation   Command = "location"
)

// Type classifies a chat session.
type Type string

const (
	TypeFarmSurvey         Type = "farm_survey"
	TypeCropRecommendation Type = "crop_recommendation"
	TypeGeneral            Type = "general"
	TypeAboutCrop          Type = "about_crop"
	TypeAboutPests         Type = "about_pests"
	TypeAboutFertilizers   Type = "about_fertilizers"
	TypeAboutIrrigation    Type = "about_irrigation"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Session groups the messages of one conversation.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Type   Type   `json:"chat_type"`
	// DataID links the session to a domain record, e.g. the farm profile
	// created by a survey.
	DataID    string    `json:"data_id,omitempty"`
	CreatedAt time.Time `json:"ts"`
}

// FileRef points at a hosted media file inside message content.
type FileRef struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type"`
}

// Part is one piece of message content: text, a file, or both empty parts
// are dropped during normalization.
type Part struct {
	Text     string   `json:"text,omitempty"`
	FileData *FileRef `json:"file_data,omitempty"`
}

// Content is a role plus parts, the provider-agnostic persisted shape.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// UnmarshalJSON accepts both snake_case and the camelCase variants clients
// send (fileData / fileUri / mimeType), normalizing to the canonical form.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string `json:"role"`
		Parts []struct {
			Text      string          `json:"text"`
			FileData  json.RawMessage `json:"file_data"`
			FileData2 json.RawMessage `json:"fileData"`
		} `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Role = raw.Role
	c.Parts = c.Parts[:0]
	for _, part := range raw.Parts {
		p := Part{Text: part.Text}

		fileRaw := part.FileData
		if len(fileRaw) == 0 || string(fileRaw) == "null" {
			fileRaw = part.FileData2
		}
		if len(fileRaw) > 0 && string(fileRaw) != "null" {
			var file struct {
				FileURI  string `json:"file_uri"`
				FileURI2 string `json:"fileUri"`
				MIMEType string `json:"mime_type"`
				MIME2    string `json:"mimeType"`
			}
			if err := json.Unmarshal(fileRaw, &file); err != nil {
				return err
			}
			uri := file.FileURI
			if uri == "" {
				uri = file.FileURI2
			}
			mime := file.MIMEType
			if mime == "" {
				mime = file.MIME2
			}
			if mime == "" {
				mime = "application/octet-stream"
			}
			if uri != "" {
				p.FileData = &FileRef{FileURI: uri, MIMEType: mime}
			}
		}

		if p.Text == "" && p.FileData == nil {
			continue
		}
		c.Parts = append(c.Parts, p)
	}
	return nil
}

// Message is one persisted turn of a session.
type Message struct {
	ID      string    `json:"id"`
	ChatID  string    `json:"chat_id"`
	Content Content   `json:"content"`
	TS      time.Time `json:"ts"`
}

// HasText reports whether any part carries non-empty text.
func (m *Message) HasText() bool {
	for _, p := range m.Content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// Text returns the concatenated text parts.
func (m *Message) Text() string {
	var b strings.Builder
	for _, p := range m.Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func newID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewSession creates a session for a user.
func NewSession(userID string, chatType Type) *Session {
	return &Session{
		ID:        newID(),
		UserID:    userID,
		Type:      chatType,
		CreatedAt: time.Now().UTC(),
	}
}

// NewMessage creates a message in a session.
func NewMessage(chatID string, content Content) *Message {
	return &Message{
		ID:      newID(),
		ChatID:  chatID,
		Content: content,
		TS:      time.Now().UTC(),
	}
}

// ModelReply is the structured response the conversational agents return.
type ModelReply struct {
	Command       Command `json:"command"`
	MessageToUser string  `json:"message_to_user"`
	UserQuery     string  `json:"user_query,omitempty"`
}

// Exchange is the persisted outcome of one conversational turn.
type Exchange struct {
	Command      Command  `json:"command"`
	UserMessage  *Message `json:"user_message,omitempty"`
	ModelMessage *Message `json:"model_message,omitempty"`
}
