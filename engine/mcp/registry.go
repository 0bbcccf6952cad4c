package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/flowgent/flowgent/engine/core"
	"github.com/flowgent/flowgent/pkg/logger"
)

// Conn is the subset of the MCP client used by the registry. It exists so
// tests can stand in for a live subprocess client.
type Conn interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	Close() error
}

// Dialer starts the subprocess transport for a stdio server spec.
type Dialer func(ctx context.Context, cfg Config) (Conn, error)

func defaultDialer(_ context.Context, cfg Config) (Conn, error) {
	return client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
}

// Handle is a connected (stdio) or lazily-addressed (http) tool server usable
// by agents. HTTP servers hold only their URL: they are invoked per request
// by the model side, so no connection is made at build time.
type Handle struct {
	ID   string
	Type TransportType
	URL  string
	conn Conn
}

// Registry holds the tool server handles built for one flow run.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// Connect builds the registry from server specs. All stdio connects are
// issued concurrently and jointly awaited: a single failure fails the build.
// Unknown transport types are skipped with a warning and get no entry.
func Connect(ctx context.Context, specs map[string]Config, diags *core.Diagnostics) (*Registry, error) {
	return ConnectWith(ctx, specs, diags, defaultDialer)
}

// ConnectWith is Connect with an explicit stdio dialer.
func ConnectWith(ctx context.Context, specs map[string]Config, diags *core.Diagnostics, dial Dialer) (*Registry, error) {
	log := logger.FromContext(ctx)
	registry := &Registry{handles: make(map[string]*Handle)}

	var stdioIDs []string
	for id, spec := range specs {
		spec.ID = id
		switch spec.Type {
		case TransportHTTP:
			registry.handles[id] = &Handle{ID: id, Type: TransportHTTP, URL: spec.URL}
		case TransportStdio:
			stdioIDs = append(stdioIDs, id)
		default:
			diags.Warnf("mcp", "server %q has unknown type %q, skipping", id, spec.Type)
			log.Warn("Skipping MCP server with unknown type", "server", id, "type", spec.Type)
		}
	}
	sort.Strings(stdioIDs)

	g, groupCtx := errgroup.WithContext(ctx)
	for _, id := range stdioIDs {
		spec := specs[id]
		spec.ID = id
		g.Go(func() error {
			handle, err := connectStdio(groupCtx, spec, dial)
			if err != nil {
				return fmt.Errorf("failed to connect mcp server %q: %w", id, err)
			}
			registry.mu.Lock()
			registry.handles[id] = handle
			registry.mu.Unlock()
			log.Debug("Connected MCP server", "server", id, "command", spec.Command)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		registry.Close()
		return nil, err
	}
	return registry, nil
}

func connectStdio(ctx context.Context, cfg Config, dial Dialer) (*Handle, error) {
	conn, err := dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "flowgent",
		Version: "0.1.0",
	}
	if _, err := conn.Initialize(ctx, initRequest); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Handle{ID: cfg.ID, Type: TransportStdio, conn: conn}, nil
}

// Get returns the handle for a server id.
func (r *Registry) Get(id string) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.handles[id]
	return handle, ok
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Close shuts down all stdio connections. HTTP handles hold no resources.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, handle := range r.handles {
		if handle.conn != nil {
			_ = handle.conn.Close()
		}
	}
}
