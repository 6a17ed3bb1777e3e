package llm

import (
	"net/http"
	"sync"
)

// Provider defines the interface for model provider implementations.
type Provider interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// GenerateURL constructs the full generation endpoint URL for a model.
	GenerateURL(baseURL, model string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body for the provider.
	BuildRequestBody(model string, req Request) ([]byte, error)

	// ParseResponse extracts the response from provider-specific JSON.
	ParseResponse(body []byte, model string) (*Response, error)
}

// MediaProvider is implemented by providers that host media files for model
// input (upload once, reference by URI in generation calls).
type MediaProvider interface {
	BuildUploadRequest(baseURL string, data []byte, mimeType, displayName string) (*http.Request, error)
	ParseUploadResponse(body []byte) (*FileData, error)
	BuildDeleteRequest(baseURL, name string) (*http.Request, error)
}

// SpeechProvider is implemented by providers that can synthesize speech.
type SpeechProvider interface {
	BuildSpeechBody(model, text, voice string) ([]byte, error)
	// ParseSpeechResponse returns the raw audio bytes and their MIME type.
	ParseSpeechResponse(body []byte) ([]byte, string, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns all registered provider names.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	return names
}
