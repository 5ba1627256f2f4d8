// Package handlers registers the server's capabilities: tools, fixed and
// templated resources, and prompts, all wired to the document store and the
// session context by explicit injection.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kofifort/mongo-mcp-go/internal/confirm"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
	"github.com/kofifort/mongo-mcp-go/internal/mongo"
)

// Deps carries every collaborator a handler may need. Handlers receive it
// explicitly; nothing reaches for globals.
type Deps struct {
	Store      mongo.Store
	Session    *mongo.Session
	Confirm    *confirm.Registry
	SampleSize int
	Logger     *slog.Logger
}

// RegisterAll registers every capability with the server. A duplicate name in
// any namespace is a configuration error and fails startup.
func RegisterAll(s *mcp.Server, deps *Deps) error {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	reg := &registrar{server: s}
	registerQueryTools(reg, deps)
	registerWriteTools(reg, deps)
	registerDestructiveTools(reg, deps)
	registerResources(reg, deps)
	registerPrompts(reg, deps)
	return reg.err
}

// registrar accumulates the first registration failure so RegisterAll reads
// as a flat list rather than a ladder of error checks.
type registrar struct {
	server *mcp.Server
	err    error
}

func (r *registrar) tool(tool mcp.Tool, handler mcp.ToolHandler) {
	if r.err != nil {
		return
	}
	r.err = r.server.RegisterTool(tool, handler)
}

func (r *registrar) resource(res mcp.Resource, handler mcp.ResourceHandler) {
	if r.err != nil {
		return
	}
	r.err = r.server.RegisterResource(res, handler)
}

func (r *registrar) template(res mcp.ResourceTemplate, handler mcp.TemplateHandler, list mcp.ListFunc, complete mcp.CompleteFunc) {
	if r.err != nil {
		return
	}
	r.err = r.server.RegisterTemplate(res, handler, list, complete)
}

func (r *registrar) prompt(prompt mcp.Prompt, handler mcp.PromptHandler) {
	if r.err != nil {
		return
	}
	r.err = r.server.RegisterPrompt(prompt, handler)
}

// textResult wraps a single text block into a success result.
func textResult(text string) (mcp.ToolCallResult, error) {
	return mcp.ToolCallResult{Content: []mcp.Content{mcp.TextContent(text)}}, nil
}

// errorResult wraps a domain failure; the request itself was well-formed.
func errorResult(format string, args ...any) (mcp.ToolCallResult, error) {
	return mcp.ToolCallResult{
		Content: []mcp.Content{mcp.TextContent(fmt.Sprintf(format, args...))},
		IsError: true,
	}, nil
}

// cachedCollections lists the collections of db through the session cache.
func cachedCollections(ctx context.Context, deps *Deps, db string) ([]string, error) {
	key := "collections/" + db
	if v, ok := deps.Session.Cached(key); ok {
		return v.([]string), nil
	}
	names, err := deps.Store.ListCollections(ctx, db)
	if err != nil {
		return nil, err
	}
	deps.Session.Put(key, names)
	return names, nil
}

// prefixMatch filters candidates by prefix, preserving order.
func prefixMatch(candidates []string, prefix string) []string {
	matched := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			matched = append(matched, c)
		}
	}
	return matched
}
