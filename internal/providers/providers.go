// Package providers wires the concrete provider packages (anthropic,
// openai) into one modelregistry.Factory, so a Registry only needs to
// know about providerType strings, never about the concrete SDKs.
package providers

import (
	"fmt"

	"github.com/nexus-agent/core/internal/modelregistry"
	"github.com/nexus-agent/core/internal/providers/anthropic"
	"github.com/nexus-agent/core/internal/providers/openai"
)

// Factory dispatches to the concrete provider's own Factory by
// providerType, matching the set modelregistry's knownProviderTypes
// table infers provider names from.
func Factory(providerType, modelID, apiType string, cfg modelregistry.ProviderConfig, creds modelregistry.Credentials) (modelregistry.Handle, error) {
	switch providerType {
	case "anthropic":
		return anthropic.Factory(providerType, modelID, apiType, cfg, creds)
	case "openai":
		return openai.Factory(providerType, modelID, apiType, cfg, creds)
	default:
		return nil, fmt.Errorf("providers: unknown provider type %q", providerType)
	}
}
