package modelregistry

import (
	"fmt"
	"sync"

	"github.com/nexus-agent/core/internal/observability"
)

// knownProviderTypes infers a provider's type from its configured name when
// ProviderConfig.Type is empty, matching common provider-name conventions.
var knownProviderTypes = map[string]string{
	"openai":    "openai",
	"anthropic": "anthropic",
}

// Config is the resolved §6 llm section this registry operates over.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Default   ModelValue                `yaml:"default"`
	Roles     map[string]ModelValue     `yaml:"roles"`
	Tiers     map[string]ModelValue     `yaml:"tiers"`
}

// Registry resolves roles/tiers into cached ModelHandles and invalidates
// them when credentials change.
type Registry struct {
	mu      sync.Mutex
	cfg     Config
	factory Factory
	creds   map[string]Credentials // keyed by provider name
	cache   map[cacheKey]Handle
	metrics *observability.Metrics
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithMetrics records every Get resolution's cache hit/miss onto m.
// Omitting it (or passing nil) leaves metrics recording disabled.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New constructs a Registry. factory builds the concrete Handle for a
// resolved (providerType, modelID, apiType) tuple.
func New(cfg Config, factory Factory, opts ...Option) *Registry {
	r := &Registry{
		cfg:     cfg,
		factory: factory,
		creds:   make(map[string]Credentials),
		cache:   make(map[cacheKey]Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get resolves role (falling back to a tier of the same name, then
// config.default) into a cached Handle.
func (r *Registry) Get(role string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.cfg.Roles[role]
	if !ok {
		value, ok = r.cfg.Tiers[role]
	}
	if !ok {
		value = r.cfg.Default
	}

	return r.resolveLocked(value)
}

// GetContextWindow returns the role-scoped ContextWindow override if set,
// else that of a tier of the same name, else the default's, else 0 (undefined; callers fall back to a
// model-name -> default-window table of their own).
func (r *Registry) GetContextWindow(role string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cfg.Roles[role]; ok && v.ContextWindow > 0 {
		return v.ContextWindow
	}
	if v, ok := r.cfg.Tiers[role]; ok && v.ContextWindow > 0 {
		return v.ContextWindow
	}
	return r.cfg.Default.ContextWindow
}

func (r *Registry) resolveLocked(value ModelValue) (Handle, error) {
	providerName, modelName, err := parseModelSpec(value.Model)
	if err != nil {
		return nil, err
	}

	providerCfg, ok := r.cfg.Providers[providerName]
	if !ok {
		return nil, fmt.Errorf("Provider %q not found", providerName)
	}

	providerType := providerCfg.Type
	if providerType == "" {
		providerType, ok = knownProviderTypes[providerName]
		if !ok {
			return nil, fmt.Errorf("Provider %q requires explicit \"type\"", providerName)
		}
	}

	key := cacheKey{providerType: providerType, modelName: modelName, apiType: value.APIType}
	if handle, ok := r.cache[key]; ok {
		r.metrics.RecordModelCacheHit()
		return handle, nil
	}

	creds := r.creds[providerName]
	handle, err := r.factory(providerType, modelName, value.APIType, providerCfg, creds)
	if err != nil {
		return nil, err
	}
	r.cache[key] = handle
	r.metrics.RecordModelCacheMiss()
	return handle, nil
}

// SetCodexCredentials stores Codex credentials for the "codex" provider and
// evicts its cached handles.
func (r *Registry) SetCodexCredentials(creds Credentials, baseURL string) {
	r.setCredentials("codex", creds, baseURL)
}

// SetCopilotCredentials stores Copilot credentials for the "copilot"
// provider and evicts its cached handles.
func (r *Registry) SetCopilotCredentials(token, baseURL, path string) {
	r.setCredentials("copilot", Credentials{"token": token, "path": path}, baseURL)
}

// SetOAuthCredentials stores OAuth credentials for the named provider and
// evicts its cached handles.
func (r *Registry) SetOAuthCredentials(provider string, creds Credentials, path, baseURL string) {
	if creds == nil {
		creds = Credentials{}
	}
	creds["path"] = path
	r.setCredentials(provider, creds, baseURL)
}

// setCredentials stores creds for provider and evicts every cached handle
// whose resolved provider type matches provider's configured type. Handles
// belonging to other providers are identity-preserved.
func (r *Registry) setCredentials(provider string, creds Credentials, baseURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if baseURL != "" {
		cfg := r.cfg.Providers[provider]
		cfg.BaseURL = baseURL
		r.cfg.Providers[provider] = cfg
	}
	r.creds[provider] = creds

	providerType := r.cfg.Providers[provider].Type
	if providerType == "" {
		providerType = knownProviderTypes[provider]
	}
	if providerType == "" {
		providerType = provider
	}

	for key := range r.cache {
		if key.providerType == providerType {
			delete(r.cache, key)
		}
	}
}
