package chat

import (
	"context"
	"strings"

	"github.com/agromitra/agromitra/blob"
	"github.com/agromitra/agromitra/llm"
	"github.com/agromitra/agromitra/model"
)

// MessageStore persists sessions and their messages.
type MessageStore interface {
	SaveChatSession(ctx context.Context, session *Session) error
	GetChatSession(ctx context.Context, id string) (*Session, error)
	SaveChatMessage(ctx context.Context, msg *Message) error
	ListChatMessages(ctx context.Context, chatID string, limit int) ([]*Message, error)
}

// BlobStore reads user uploads and writes synthesized audio.
type BlobStore interface {
	Get(ctx context.Context, reference string) ([]byte, string, error)
	Put(ctx context.Context, reference string, data []byte, mimeType string) (*blob.Object, error)
}

// ModelClient is the slice of the model client the conversational agents
// use: plain and structured generation, media upload for file parts, and
// speech synthesis for audio replies.
type ModelClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
	CompleteStructured(ctx context.Context, req llm.Request, out any) (*llm.Response, error)
	UploadMedia(ctx context.Context, capability string, data []byte, mimeType, displayName string) (*llm.FileData, error)
	SynthesizeSpeech(ctx context.Context, text, voice string) ([]byte, string, error)
}

// systemInstruction appends the user's language so every turn is answered in
// it.
func systemInstruction(base, language string) string {
	return base + "\n\nUser specified language: " + language
}

// convertContent turns persisted message content into a model input turn.
// Blob references are downloaded and re-uploaded to the provider's file API;
// external URIs pass through. Audio parts of a turn that already has text
// are skipped when skipAudioWithText is set: the text is the transcript the
// model should read.
func convertContent(ctx context.Context, blobs BlobStore, client ModelClient, content Content, skipAudioWithText bool) (llm.Content, error) {
	role := content.Role
	if role == "" {
		role = string(RoleUser)
	}

	hasText := false
	for _, p := range content.Parts {
		if strings.TrimSpace(p.Text) != "" {
			hasText = true
			break
		}
	}

	out := llm.Content{Role: role}
	for _, p := range content.Parts {
		switch {
		case p.FileData != nil:
			if skipAudioWithText && hasText && strings.HasPrefix(p.FileData.MIMEType, "audio/") {
				continue
			}
			fd, err := resolveFilePart(ctx, blobs, client, p.FileData)
			if err != nil {
				return llm.Content{}, err
			}
			out.Parts = append(out.Parts, llm.Part{FileData: fd})
		case p.Text != "":
			out.Parts = append(out.Parts, llm.Part{Text: p.Text})
		}
	}
	return out, nil
}

// resolveFilePart makes a stored file part usable by the model. Files in our
// blob store are private, so their bytes are pushed to the provider's file
// API; anything else is assumed to be a URI the provider can fetch.
func resolveFilePart(ctx context.Context, blobs BlobStore, client ModelClient, ref *FileRef) (*llm.FileData, error) {
	if !blob.IsReference(ref.FileURI) {
		return &llm.FileData{FileURI: ref.FileURI, MIMEType: ref.MIMEType}, nil
	}

	data, mimeType, err := blobs.Get(ctx, ref.FileURI)
	if err != nil {
		return nil, err
	}
	return client.UploadMedia(ctx, model.CapabilityConversation.String(), data, mimeType, ref.FileURI)
}

// prepareModelInput loads the session history and converts it plus the
// current user turn into model input. History audio is always skipped in
// favor of its text.
func prepareModelInput(ctx context.Context, messages MessageStore, blobs BlobStore, client ModelClient, chatID string, current Content) ([]llm.Content, error) {
	history, err := messages.ListChatMessages(ctx, chatID, 0)
	if err != nil {
		return nil, err
	}

	contents := make([]llm.Content, 0, len(history)+1)
	for _, msg := range history {
		converted, err := convertContent(ctx, blobs, client, msg.Content, true)
		if err != nil {
			return nil, err
		}
		if len(converted.Parts) == 0 {
			continue
		}
		contents = append(contents, converted)
	}

	turn, err := convertContent(ctx, blobs, client, current, true)
	if err != nil {
		return nil, err
	}
	if turn.Role != string(RoleUser) {
		turn.Role = string(RoleUser)
	}
	return append(contents, turn), nil
}

// saveUserMessage persists the user's turn. A turn without text, e.g. a bare
// voice note, gets the model's transcription appended so the history stays
// readable.
func saveUserMessage(ctx context.Context, messages MessageStore, chatID string, content Content, fallbackText string) (*Message, error) {
	if content.Role == "" {
		content.Role = string(RoleUser)
	}
	hasText := false
	for _, p := range content.Parts {
		if p.Text != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		content.Parts = append(content.Parts, Part{Text: fallbackText})
	}

	msg := NewMessage(chatID, content)
	if err := messages.SaveChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// saveModelMessage persists the model's reply, attaching the synthesized
// audio file when one was produced.
func saveModelMessage(ctx context.Context, messages MessageStore, chatID, text, audioReference string) (*Message, error) {
	content := Content{
		Role:  string(RoleModel),
		Parts: []Part{{Text: text}},
	}
	if audioReference != "" {
		content.Parts = append(content.Parts, Part{
			FileData: &FileRef{FileURI: audioReference, MIMEType: "audio/wav"},
		})
	}

	msg := NewMessage(chatID, content)
	if err := messages.SaveChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
