package llm

import (
	"github.com/agromitra/agromitra/config"
	"github.com/agromitra/agromitra/model"
)

// NewClientFromConfig builds a client whose model registry reflects the
// llm section of the server configuration. An endpoint override rebases
// every registered model onto the configured URL, which is how serve runs
// against the mock-llm fixture server; model, temperature and timeout
// override the built-in defaults. Explicit options are applied after the
// configuration, so they take precedence.
func NewClientFromConfig(cfg config.LLMConfig, opts ...ClientOption) *Client {
	var fromCfg []ClientOption
	if cfg.Timeout > 0 {
		fromCfg = append(fromCfg, WithTimeout(cfg.Timeout))
	}
	if cfg.Temperature > 0 {
		fromCfg = append(fromCfg, WithDefaultTemperature(cfg.Temperature))
	}
	return NewClient(newRegistryFromConfig(cfg), append(fromCfg, opts...)...)
}

// newRegistryFromConfig layers the configuration over the default
// registry. The configured model becomes the registry default and gets
// an endpoint of its own when the defaults do not know it, so fixture
// models like "mock-recommender" resolve without further setup.
func newRegistryFromConfig(cfg config.LLMConfig) *model.Registry {
	reg := model.NewDefaultRegistry()

	if cfg.Endpoint != "" {
		for _, name := range reg.ListEndpoints() {
			ep := *reg.GetEndpoint(name)
			ep.URL = cfg.Endpoint
			reg.SetEndpoint(name, &ep)
		}
	}

	if cfg.Model != "" {
		if reg.GetEndpoint(cfg.Model) == nil {
			provider := cfg.Provider
			if provider == "" {
				provider = "gemini"
			}
			reg.SetEndpoint(cfg.Model, &model.EndpointConfig{
				Provider: provider,
				URL:      cfg.Endpoint,
				Model:    cfg.Model,
			})
		}
		reg.SetDefault(cfg.Model)
	}

	return reg
}
