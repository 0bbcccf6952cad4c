package mcp

import (
	"errors"
	"fmt"
	"net/url"
)

// TransportType selects how a tool server is reached.
type TransportType string

const (
	TransportStdio TransportType = "stdio"
	TransportHTTP  TransportType = "http"
)

// Config describes one external MCP tool server declared in a workflow.
type Config struct {
	ID      string        `json:"-"                 yaml:"-"`
	Type    TransportType `json:"type"              yaml:"type"`
	Command string        `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string      `json:"args,omitempty"    yaml:"args,omitempty"`
	URL     string        `json:"url,omitempty"     yaml:"url,omitempty"`
}

// Validate is the strict preflight check: unknown types and malformed
// stdio/http specs are hard failures here. The registry's build-time path is
// deliberately more permissive (unknown types are skipped with a warning).
func (c *Config) Validate() error {
	if c.ID == "" {
		return errors.New("mcp server id is required")
	}
	switch c.Type {
	case TransportStdio:
		if c.Command == "" {
			return fmt.Errorf("mcp server %q: stdio transport requires a command", c.ID)
		}
	case TransportHTTP:
		if c.URL == "" {
			return fmt.Errorf("mcp server %q: http transport requires a url", c.ID)
		}
		parsed, err := url.Parse(c.URL)
		if err != nil {
			return fmt.Errorf("mcp server %q: invalid url: %w", c.ID, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("mcp server %q: url must use http or https scheme, got %q", c.ID, parsed.Scheme)
		}
		if parsed.Host == "" {
			return fmt.Errorf("mcp server %q: url must include a host", c.ID)
		}
	default:
		return fmt.Errorf("mcp server %q: unknown transport type %q", c.ID, c.Type)
	}
	return nil
}
