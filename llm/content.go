package llm

// FileData references a provider-hosted media file.
type FileData struct {
	FileURI  string `json:"file_uri"`
	MIMEType string `json:"mime_type"`
	// Name is the provider's resource name, used for deletion.
	Name string `json:"name,omitempty"`
}

// Part is one piece of content: text or a media reference, never both.
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
}

// Content is one turn of model input: a role plus its parts.
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// TextContent builds a single-part user or model turn.
func TextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{{Text: text}}}
}
