package model

import "sync"

// Registry manages model selection based on capabilities. It maps
// capabilities to preferred models with fallback chains and tracks endpoint
// health so the client can skip endpoints whose circuit is open.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaults     *DefaultsConfig
	health       *healthState
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	// Description explains what this capability is for.
	Description string `json:"description"`

	// Preferred lists models in order of preference.
	Preferred []string `json:"preferred"`

	// Fallback lists backup models if all preferred fail.
	Fallback []string `json:"fallback"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (gemini).
	Provider string `json:"provider"`

	// URL overrides the provider's default API base URL.
	URL string `json:"url,omitempty"`

	// Model is the actual model identifier to send to the provider.
	Model string `json:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// DefaultsConfig holds default model settings.
type DefaultsConfig struct {
	Model string `json:"model"`
}

// NewRegistry creates a registry with the given configuration.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaults:     &DefaultsConfig{Model: "gemini-flash"},
	}
}

// NewDefaultRegistry creates a registry with sensible defaults, used when no
// configuration is provided.
func NewDefaultRegistry() *Registry {
	return &Registry{
		capabilities: map[Capability]*CapabilityConfig{
			CapabilityRecommendation: {
				Description: "Large structured generation: crop, selection and pesticide plans",
				Preferred:   []string{"gemini-pro"},
				Fallback:    []string{"gemini-flash"},
			},
			CapabilityReasoning: {
				Description: "Cross-verification reasoning reports",
				Preferred:   []string{"gemini-flash"},
				Fallback:    []string{"gemini-flash-lite"},
			},
			CapabilityDiagnosis: {
				Description: "Image-based pest and disease diagnosis",
				Preferred:   []string{"gemini-pro"},
				Fallback:    []string{"gemini-flash"},
			},
			CapabilityConversation: {
				Description: "Survey and general chat agents",
				Preferred:   []string{"gemini-flash"},
				Fallback:    []string{"gemini-flash-lite"},
			},
			CapabilitySpeech: {
				Description: "Text-to-speech synthesis",
				Preferred:   []string{"gemini-tts"},
			},
		},
		endpoints: map[string]*EndpointConfig{
			"gemini-pro": {
				Provider:  "gemini",
				Model:     "gemini-2.5-pro",
				MaxTokens: 1048576,
			},
			"gemini-flash": {
				Provider:  "gemini",
				Model:     "gemini-2.5-flash",
				MaxTokens: 1048576,
			},
			"gemini-flash-lite": {
				Provider:  "gemini",
				Model:     "gemini-2.5-flash-lite",
				MaxTokens: 1048576,
			},
			"gemini-tts": {
				Provider:  "gemini",
				Model:     "gemini-2.5-flash-preview-tts",
				MaxTokens: 32768,
			},
		},
		defaults: &DefaultsConfig{Model: "gemini-flash"},
	}
}

// Resolve returns the preferred model for a capability.
func (r *Registry) Resolve(cap Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[cap]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaults.Model
}

// GetFallbackChain returns all models for a capability in order of
// preference.
func (r *Registry) GetFallbackChain(cap Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[cap]; ok {
		chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
		chain = append(chain, cfg.Preferred...)
		chain = append(chain, cfg.Fallback...)
		return chain
	}
	return []string{r.defaults.Model}
}

// GetEndpoint returns the endpoint configuration for a model name, or nil
// if the model is not configured.
func (r *Registry) GetEndpoint(modelName string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[modelName]
}

// SetCapability updates or adds a capability configuration.
func (r *Registry) SetCapability(cap Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capabilities == nil {
		r.capabilities = make(map[Capability]*CapabilityConfig)
	}
	r.capabilities[cap] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.endpoints == nil {
		r.endpoints = make(map[string]*EndpointConfig)
	}
	r.endpoints[name] = cfg
}

// SetDefault sets the default model.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaults == nil {
		r.defaults = &DefaultsConfig{}
	}
	r.defaults.Model = model
}

// ListCapabilities returns all configured capabilities.
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capability, 0, len(r.capabilities))
	for cap := range r.capabilities {
		caps = append(caps, cap)
	}
	return caps
}

// ListEndpoints returns all configured endpoint names.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	return names
}
