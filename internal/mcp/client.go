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
	"time"

	"github.com/google/uuid"
)

// Client is the caller side of the line-delimited JSON-RPC stream. It assigns
// request ids, writes requests, and correlates inbound responses through a
// Table, so multiple requests may be outstanding at once and responses may
// arrive in any order. Used by the test harness and by hosts that embed the
// server behind pipes.
type Client struct {
	out     io.Writer
	table   *Table
	logger  *slog.Logger
	writeMu sync.Mutex
}

// NewClient creates a client reading responses from in and writing requests
// to out. The read loop runs until in is exhausted or ctx is cancelled.
func NewClient(ctx context.Context, in io.Reader, out io.Writer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	c := &Client{
		out:    out,
		table:  NewTable(),
		logger: logger,
	}
	go c.readLoop(ctx, in)
	return c
}

func (c *Client) readLoop(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	// Once this loop exits no registered id can ever be resolved, so every
	// outstanding call fails fast instead of sitting out its timeout.
	defer func() {
		if err := scanner.Err(); err != nil {
			c.logger.Error("scanner error", "error", err)
		}
		c.table.ExpireAll()
	}()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			c.logger.Error("failed to parse response", "error", err)
			continue
		}
		if resp.ID == nil {
			// Server-initiated notification; nothing is waiting on it.
			continue
		}

		var id string
		if err := json.Unmarshal(resp.ID, &id); err != nil {
			// Resolve needs the exact string form; non-string ids keep
			// their raw representation as the key.
			id = string(resp.ID)
		}
		c.table.Resolve(id, resp)
	}
}

// Call sends a request and blocks until the correlated response arrives or
// timeout elapses. On timeout the pending entry is expired; a response that
// arrives later is dropped by the table as a no-op.
func (c *Client) Call(ctx context.Context, method string, params any, timeout time.Duration) (*Response, error) {
	id := uuid.New().String()

	ch, err := c.table.Register(id)
	if err != nil {
		return nil, err
	}

	if err := c.write(Request{JSONRPC: "2.0", ID: mustMarshalID(id), Method: method, Params: mustMarshalParams(params)}); err != nil {
		c.table.Expire(id)
		return nil, err
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("request %s expired", id)
		}
		return &resp, nil
	case <-time.After(timeout):
		c.table.Expire(id)
		return nil, fmt.Errorf("request %s timed out after %s", id, timeout)
	case <-ctx.Done():
		c.table.Expire(id)
		return nil, ctx.Err()
	}
}

// Notify sends a request that expects no response.
func (c *Client) Notify(method string, params any) error {
	return c.write(Request{JSONRPC: "2.0", Method: method, Params: mustMarshalParams(params)})
}

func (c *Client) write(req Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := fmt.Fprintf(c.out, "%s\n", data); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

func mustMarshalID(id string) json.RawMessage {
	data, _ := json.Marshal(id)
	return data
}

func mustMarshalParams(params any) json.RawMessage {
	if params == nil {
		return nil
	}
	data, _ := json.Marshal(params)
	return data
}
