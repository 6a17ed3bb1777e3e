package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentAcceptsCamelCase(t *testing.T) {
	raw := `{
		"role": "user",
		"parts": [
			{"text": "look at this"},
			{"fileData": {"fileUri": "user-content/u1/c1/leaf", "mimeType": "image/jpeg"}}
		]
	}`

	var content Content
	require.NoError(t, json.Unmarshal([]byte(raw), &content))

	assert.Equal(t, "user", content.Role)
	require.Len(t, content.Parts, 2)
	assert.Equal(t, "look at this", content.Parts[0].Text)
	require.NotNil(t, content.Parts[1].FileData)
	assert.Equal(t, "user-content/u1/c1/leaf", content.Parts[1].FileData.FileURI)
	assert.Equal(t, "image/jpeg", content.Parts[1].FileData.MIMEType)
}

func TestContentSnakeCaseAndDefaults(t *testing.T) {
	raw := `{
		"parts": [
			{"file_data": {"file_uri": "user-content/u1/c1/voice"}},
			{},
			{"text": ""}
		]
	}`

	var content Content
	require.NoError(t, json.Unmarshal([]byte(raw), &content))

	// Empty parts are dropped; a file without a MIME type gets the generic
	// one.
	require.Len(t, content.Parts, 1)
	assert.Equal(t, "application/octet-stream", content.Parts[0].FileData.MIMEType)
}

func TestMessageText(t *testing.T) {
	msg := NewMessage("chat-1", Content{Role: "user", Parts: []Part{
		{Text: "part one "},
		{Text: "part two"},
	}})

	assert.True(t, msg.HasText())
	assert.Equal(t, "part one part two", msg.Text())
	assert.NotEmpty(t, msg.ID)
	assert.NotContains(t, msg.ID, "-")

	empty := NewMessage("chat-1", Content{Parts: []Part{{FileData: &FileRef{FileURI: "x", MIMEType: "audio/wav"}}}})
	assert.False(t, empty.HasText())
}
