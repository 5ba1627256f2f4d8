package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "mongo-mcp-go"
	ServerVersion   = "0.1.0"
)

// ToolHandler handles a tool call with arguments already validated against
// the tool's input schema (defaults applied).
type ToolHandler func(ctx context.Context, args map[string]any) (ToolCallResult, error)

// ResourceHandler reads a fixed resource and returns its text content.
type ResourceHandler func(ctx context.Context) (string, error)

// TemplateHandler reads a templated resource given the placeholder bindings
// extracted from the concrete URI.
type TemplateHandler func(ctx context.Context, vars map[string]string) (string, error)

// ListFunc enumerates the currently valid concrete URIs for a template.
type ListFunc func(ctx context.Context) ([]string, error)

// CompleteFunc returns candidate values for a placeholder given a partial value.
type CompleteFunc func(ctx context.Context, arg, partial string) ([]string, error)

// PromptHandler generates the role-tagged messages for a prompt.
type PromptHandler func(ctx context.Context, args map[string]string) (GetPromptResult, error)

type templateEntry struct {
	descriptor ResourceTemplate
	pattern    *URITemplate
	handler    TemplateHandler
	list       ListFunc
	complete   CompleteFunc
}

// Server is an MCP server that communicates over stdio. It holds four
// independent capability namespaces: fixed resources, templated resources,
// tools, and prompts. Registration happens at startup; dispatch routes each
// inbound request to the matching handler.
type Server struct {
	tools        map[string]Tool
	toolHandlers map[string]ToolHandler
	toolOrder    []string

	resources        map[string]Resource
	resourceHandlers map[string]ResourceHandler
	resourceOrder    []string

	templates []templateEntry // registration order: first structural match wins

	prompts        map[string]Prompt
	promptHandlers map[string]PromptHandler
	promptOrder    []string

	logger *slog.Logger

	writeMu sync.Mutex // one response line at a time on the out stream

	mu          sync.RWMutex
	initialized bool
}

// NewServer creates a new MCP server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return &Server{
		tools:            make(map[string]Tool),
		toolHandlers:     make(map[string]ToolHandler),
		resources:        make(map[string]Resource),
		resourceHandlers: make(map[string]ResourceHandler),
		prompts:          make(map[string]Prompt),
		promptHandlers:   make(map[string]PromptHandler),
		logger:           logger,
	}
}

// RegisterTool registers a tool with the server. Registering a name twice is
// a configuration error, reported at startup.
func (s *Server) RegisterTool(tool Tool, handler ToolHandler) error {
	if _, exists := s.tools[tool.Name]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name)
	}
	s.tools[tool.Name] = tool
	s.toolHandlers[tool.Name] = handler
	s.toolOrder = append(s.toolOrder, tool.Name)
	s.logger.Debug("registered tool", "name", tool.Name)
	return nil
}

// RegisterResource registers a fixed resource.
func (s *Server) RegisterResource(res Resource, handler ResourceHandler) error {
	if _, exists := s.resources[res.URI]; exists {
		return fmt.Errorf("resource %q already registered", res.URI)
	}
	s.resources[res.URI] = res
	s.resourceHandlers[res.URI] = handler
	s.resourceOrder = append(s.resourceOrder, res.URI)
	s.logger.Debug("registered resource", "uri", res.URI)
	return nil
}

// RegisterTemplate registers a templated resource with optional enumeration
// and autocomplete callbacks.
func (s *Server) RegisterTemplate(res ResourceTemplate, handler TemplateHandler, list ListFunc, complete CompleteFunc) error {
	pattern, err := ParseURITemplate(res.URITemplate)
	if err != nil {
		return err
	}
	for _, entry := range s.templates {
		if entry.descriptor.URITemplate == res.URITemplate {
			return fmt.Errorf("resource template %q already registered", res.URITemplate)
		}
	}
	s.templates = append(s.templates, templateEntry{
		descriptor: res,
		pattern:    pattern,
		handler:    handler,
		list:       list,
		complete:   complete,
	})
	s.logger.Debug("registered resource template", "uriTemplate", res.URITemplate)
	return nil
}

// RegisterPrompt registers a prompt generator.
func (s *Server) RegisterPrompt(prompt Prompt, handler PromptHandler) error {
	if _, exists := s.prompts[prompt.Name]; exists {
		return fmt.Errorf("prompt %q already registered", prompt.Name)
	}
	s.prompts[prompt.Name] = prompt
	s.promptHandlers[prompt.Name] = handler
	s.promptOrder = append(s.promptOrder, prompt.Name)
	s.logger.Debug("registered prompt", "name", prompt.Name)
	return nil
}

// Run starts the server, reading from stdin and writing to stdout.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithIO(ctx, os.Stdin, os.Stdout)
}

// RunWithIO starts the server with custom I/O streams (useful for testing).
// Each request is dispatched on its own goroutine so a slow handler never
// blocks the read loop; responses are correlated by id, not by arrival order.
func (s *Server) RunWithIO(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large messages
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	s.logger.Info("server starting", "version", ServerVersion)

	var wg sync.WaitGroup
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}

		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := s.handleMessage(ctx, line)
			if resp != nil {
				if err := s.writeResponse(out, resp); err != nil {
					s.logger.Error("failed to write response", "error", err)
				}
			}
		}()
	}
	wg.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleMessage parses one line and dispatches it. A line that cannot be
// parsed carries no usable id to correlate a response to, so it is logged and
// dropped; the stream continues.
func (s *Server) handleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("failed to parse request", "error", err)
		return nil
	}

	if req.JSONRPC != "2.0" {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &Error{Code: InvalidRequest, Message: "Invalid JSON-RPC version"},
		}
	}

	s.logger.Debug("handling request", "method", req.Method)

	result, rpcErr := s.dispatch(ctx, req.Method, req.Params)
	if req.ID == nil {
		// Notification: no response is correlated to it.
		return nil
	}
	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// dispatch routes one request to its handler. The recover here is the
// containment boundary for every namespace: a panicking resource, template,
// prompt, enumeration, or completion handler costs this one request, not the
// process. Tool handlers are additionally recovered inside handleToolsCall so
// their panics surface as isError results rather than protocol errors.
func (s *Server) dispatch(ctx context.Context, method string, params json.RawMessage) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "method", method, "panic", r)
			result = nil
			rpcErr = &Error{Code: InternalError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	switch method {
	case "initialize":
		return s.handleInitialize(params)
	case "initialized", "notifications/initialized":
		// Notification, no response needed
		return nil, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return s.handleToolsList()
	case "tools/call":
		return s.handleToolsCall(ctx, params)
	case "resources/list":
		return s.handleResourcesList(ctx)
	case "resources/templates/list":
		return s.handleTemplatesList()
	case "resources/read":
		return s.handleResourcesRead(ctx, params)
	case "prompts/list":
		return s.handlePromptsList()
	case "prompts/get":
		return s.handlePromptsGet(ctx, params)
	case "completion/complete":
		return s.handleComplete(ctx, params)
	default:
		return nil, &Error{Code: MethodNotFound, Message: fmt.Sprintf("Method not found: %s", method)}
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (*InitializeResult, *Error) {
	var p InitializeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid initialize params"}
	}

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	s.logger.Info("initialized",
		"client", p.ClientInfo.Name,
		"clientVersion", p.ClientInfo.Version,
		"protocolVersion", p.ProtocolVersion,
	)

	return &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: Capabilities{
			Tools:       &ToolsCapability{},
			Resources:   &ResourcesCapability{},
			Prompts:     &PromptsCapability{},
			Completions: &CompletionsCapability{},
		},
		ServerInfo: Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
	}, nil
}

func (s *Server) handleToolsList() (*ToolsListResult, *Error) {
	tools := make([]Tool, 0, len(s.toolOrder))
	for _, name := range s.toolOrder {
		tools = append(tools, s.tools[name])
	}
	return &ToolsListResult{Tools: tools}, nil
}

func (s *Server) isInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (result *ToolCallResult, rpcErr *Error) {
	if !s.isInitialized() {
		return nil, &Error{Code: InternalError, Message: "server not initialized"}
	}

	var p ToolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid tools/call params"}
	}

	tool, ok := s.tools[p.Name]
	if !ok {
		return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown tool: %s", p.Name)}
	}
	handler := s.toolHandlers[p.Name]

	args, err := ValidateArgs(tool.InputSchema, p.Arguments)
	if err != nil {
		return nil, &Error{Code: InvalidParams, Message: err.Error()}
	}

	s.logger.Debug("calling tool", "name", p.Name)

	// A panicking handler must not take down the stream; it becomes a
	// domain error on this one response.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tool panic", "name", p.Name, "panic", r)
			result = &ToolCallResult{
				Content: []Content{TextContent(fmt.Sprintf("internal error: %v", r))},
				IsError: true,
			}
			rpcErr = nil
		}
	}()

	res, err := handler(ctx, args)
	if err != nil {
		s.logger.Error("tool error", "name", p.Name, "error", err)
		return &ToolCallResult{
			Content: []Content{TextContent(err.Error())},
			IsError: true,
		}, nil
	}

	return &res, nil
}

func (s *Server) handleResourcesList(ctx context.Context) (*ResourcesListResult, *Error) {
	resources := make([]Resource, 0, len(s.resourceOrder))
	for _, uri := range s.resourceOrder {
		resources = append(resources, s.resources[uri])
	}
	// Templated resources contribute their currently valid concrete
	// addresses via their enumeration callbacks.
	for _, entry := range s.templates {
		if entry.list == nil {
			continue
		}
		uris, err := entry.list(ctx)
		if err != nil {
			s.logger.Error("resource enumeration failed", "uriTemplate", entry.descriptor.URITemplate, "error", err)
			continue
		}
		for _, uri := range uris {
			resources = append(resources, Resource{
				URI:      uri,
				Name:     entry.descriptor.Name,
				MIMEType: entry.descriptor.MIMEType,
			})
		}
	}
	return &ResourcesListResult{Resources: resources}, nil
}

func (s *Server) handleTemplatesList() (*ResourceTemplatesListResult, *Error) {
	templates := make([]ResourceTemplate, 0, len(s.templates))
	for _, entry := range s.templates {
		templates = append(templates, entry.descriptor)
	}
	return &ResourceTemplatesListResult{ResourceTemplates: templates}, nil
}

func (s *Server) handleResourcesRead(ctx context.Context, params json.RawMessage) (*ReadResourceResult, *Error) {
	var p ReadResourceParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid resources/read params"}
	}
	if p.URI == "" {
		return nil, &Error{Code: InvalidParams, Message: "uri is required"}
	}

	if handler, ok := s.resourceHandlers[p.URI]; ok {
		text, err := handler(ctx)
		if err != nil {
			return nil, &Error{Code: InternalError, Message: err.Error()}
		}
		return &ReadResourceResult{
			Contents: []ResourceContents{{URI: p.URI, MIMEType: s.resources[p.URI].MIMEType, Text: text}},
		}, nil
	}

	// Templated reads: first structural match in registration order wins.
	for _, entry := range s.templates {
		vars, ok := entry.pattern.Match(p.URI)
		if !ok {
			continue
		}
		text, err := entry.handler(ctx, vars)
		if err != nil {
			return nil, &Error{Code: InternalError, Message: err.Error()}
		}
		return &ReadResourceResult{
			Contents: []ResourceContents{{URI: p.URI, MIMEType: entry.descriptor.MIMEType, Text: text}},
		}, nil
	}

	return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown resource: %s", p.URI)}
}

func (s *Server) handlePromptsList() (*PromptsListResult, *Error) {
	prompts := make([]Prompt, 0, len(s.promptOrder))
	for _, name := range s.promptOrder {
		prompts = append(prompts, s.prompts[name])
	}
	return &PromptsListResult{Prompts: prompts}, nil
}

func (s *Server) handlePromptsGet(ctx context.Context, params json.RawMessage) (*GetPromptResult, *Error) {
	var p GetPromptParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid prompts/get params"}
	}

	prompt, ok := s.prompts[p.Name]
	if !ok {
		return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown prompt: %s", p.Name)}
	}

	for _, arg := range prompt.Arguments {
		if arg.Required && p.Arguments[arg.Name] == "" {
			return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("invalid argument %q: required field missing", arg.Name)}
		}
	}

	result, err := s.promptHandlers[p.Name](ctx, p.Arguments)
	if err != nil {
		return nil, &Error{Code: InternalError, Message: err.Error()}
	}
	return &result, nil
}

func (s *Server) handleComplete(ctx context.Context, params json.RawMessage) (*CompleteResult, *Error) {
	var p CompleteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &Error{Code: InvalidParams, Message: "Invalid completion/complete params"}
	}

	switch p.Ref.Type {
	case "ref/resource":
		for _, entry := range s.templates {
			if entry.descriptor.URITemplate != p.Ref.URI {
				continue
			}
			if entry.complete == nil {
				return &CompleteResult{Completion: Completion{Values: []string{}}}, nil
			}
			values, err := entry.complete(ctx, p.Argument.Name, p.Argument.Value)
			if err != nil {
				return nil, &Error{Code: InternalError, Message: err.Error()}
			}
			return &CompleteResult{Completion: Completion{Values: values, Total: len(values)}}, nil
		}
		return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown resource template: %s", p.Ref.URI)}

	case "ref/prompt":
		if _, ok := s.prompts[p.Ref.Name]; !ok {
			return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown prompt: %s", p.Ref.Name)}
		}
		// Prompt arguments are free-form; there is no candidate source.
		return &CompleteResult{Completion: Completion{Values: []string{}}}, nil

	default:
		return nil, &Error{Code: InvalidParams, Message: fmt.Sprintf("Unknown completion reference type: %s", p.Ref.Type)}
	}
}

func (s *Server) writeResponse(out io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
