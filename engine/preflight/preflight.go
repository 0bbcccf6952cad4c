package preflight

import (
	"context"
	"fmt"
	"sort"

	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/engine/flow"
	"github.com/flowgent/flowgent/pkg/logger"
)

// Options configure the preflight gate.
type Options struct {
	// APIKey is an explicit credential override checked instead of the
	// environment.
	APIKey string
	// SkipCredential skips the credential check, for validating documents
	// offline.
	SkipCredential bool
}

// ValidateSystem is the standalone pre-run gate: it checks the credential,
// loads and structurally validates the workflow document, and strictly
// validates every MCP server spec. Unlike the build-time registry, which
// skips unknown server types with a warning, this path fails hard on any
// malformed spec.
func ValidateSystem(ctx context.Context, configPath string, opts Options) error {
	log := logger.FromContext(ctx)

	if !opts.SkipCredential {
		if _, err := core.ResolveAPIKey(opts.APIKey); err != nil {
			return err
		}
	}

	cfg, err := flow.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ids := make([]string, 0, len(cfg.MCPServers))
	for id := range cfg.MCPServers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		spec := cfg.MCPServers[id]
		spec.ID = id
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("mcp server validation failed: %w", err)
		}
	}

	log.Info("System validation passed",
		"config", configPath,
		"agents", len(cfg.Agents),
		"servers", len(cfg.MCPServers),
		"steps", len(cfg.Flow.Steps),
	)
	return nil
}
