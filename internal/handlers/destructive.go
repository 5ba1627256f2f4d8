package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/kofifort/mongo-mcp-go/internal/mcp"
)

// Destructive tools share one contract: without a token the call only issues
// a confirmation token and performs nothing; with a token the pending entry
// must match this exact operation and target or nothing happens.

const tokenDescription = "Confirmation token from a previous call (omit on the first call)"

func registerDestructiveTools(reg *registrar, deps *Deps) {
	reg.tool(mcp.Tool{
		Name:        "delete-documents",
		Description: "Delete all documents matching a filter. Requires confirmation via token.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Target collection"},
				"filter":     {Type: "object", Description: "Documents to delete"},
				"token":      {Type: "string", Description: tokenDescription},
			},
			Required: []string{"collection", "filter"},
		},
	}, makeDeleteDocumentsHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "drop-collection",
		Description: "Drop a collection and its indexes. Requires confirmation via token.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to drop"},
				"token":      {Type: "string", Description: tokenDescription},
			},
			Required: []string{"collection"},
		},
	}, makeDropCollectionHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "drop-database",
		Description: "Drop an entire database. Requires confirmation via token.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"database": {Type: "string", Description: "Database to drop"},
				"token":    {Type: "string", Description: tokenDescription},
			},
			Required: []string{"database"},
		},
	}, makeDropDatabaseHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "drop-index",
		Description: "Drop an index from a collection. Requires confirmation via token.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection the index belongs to"},
				"indexName":  {Type: "string", Description: "Index to drop"},
				"token":      {Type: "string", Description: tokenDescription},
			},
			Required: []string{"collection", "indexName"},
		},
	}, makeDropIndexHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "drop-user",
		Description: "Remove a user from the active database. Requires confirmation via token.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"username": {Type: "string", Description: "User to remove"},
				"token":    {Type: "string", Description: tokenDescription},
			},
			Required: []string{"username"},
		},
	}, makeDropUserHandler(deps))
}

// confirmGate runs the two-phase handshake for one destructive operation.
// fingerprint must identify the operation's exact target; describe is the
// human-readable confirmation prompt. The returned bool reports whether the
// caller may proceed with the operation now.
func confirmGate(deps *Deps, kind string, fingerprint map[string]any, token, describe string) (bool, mcp.ToolCallResult, error) {
	if !deps.Confirm.Enabled() {
		return true, mcp.ToolCallResult{}, nil
	}

	if token == "" {
		issued, expires, err := deps.Confirm.Issue(kind, fingerprint)
		if err != nil {
			res, _ := errorResult("could not issue confirmation token: %v", err)
			return false, res, nil
		}
		deps.Logger.Info("confirmation required", "operation", kind)
		res, _ := textResult(fmt.Sprintf(
			"CONFIRMATION REQUIRED: %s\n\nThis operation is irreversible and has NOT been performed.\nTo proceed, call the same tool again with identical arguments plus:\n  token: %s\nThe token expires at %s.",
			describe, issued, expires.Format(time.RFC3339)))
		return false, res, nil
	}

	if err := deps.Confirm.Consume(token, kind, fingerprint); err != nil {
		deps.Logger.Warn("confirmation rejected", "operation", kind, "error", err)
		res, _ := errorResult("confirmation rejected: %v; the operation was not performed", err)
		return false, res, nil
	}
	return true, mcp.ToolCallResult{}, nil
}

func makeDeleteDocumentsHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		coll := mcp.ArgString(args, "collection")
		filter := mcp.ArgMap(args, "filter")

		fingerprint := map[string]any{"database": db, "collection": coll, "filter": filter}
		proceed, res, err := confirmGate(deps, "delete-documents", fingerprint,
			mcp.ArgString(args, "token"),
			fmt.Sprintf("delete all documents in %s.%s matching the given filter", db, coll))
		if !proceed {
			return res, err
		}

		n, err := deps.Store.DeleteDocuments(ctx, db, coll, filter)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult(fmt.Sprintf("Deleted %d document(s) from %s.", n, coll))
	}
}

func makeDropCollectionHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		coll := mcp.ArgString(args, "collection")

		fingerprint := map[string]any{"database": db, "collection": coll}
		proceed, res, err := confirmGate(deps, "drop-collection", fingerprint,
			mcp.ArgString(args, "token"),
			fmt.Sprintf("drop collection %s.%s and all its indexes", db, coll))
		if !proceed {
			return res, err
		}

		if err := deps.Store.DropCollection(ctx, db, coll); err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult("Dropped collection: " + coll)
	}
}

func makeDropDatabaseHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := mcp.ArgString(args, "database")

		fingerprint := map[string]any{"database": db}
		proceed, res, err := confirmGate(deps, "drop-database", fingerprint,
			mcp.ArgString(args, "token"),
			fmt.Sprintf("drop database %s and every collection in it", db))
		if !proceed {
			return res, err
		}

		if err := deps.Store.DropDatabase(ctx, db); err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult("Dropped database: " + db)
	}
}

func makeDropIndexHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		coll := mcp.ArgString(args, "collection")
		index := mcp.ArgString(args, "indexName")

		fingerprint := map[string]any{"database": db, "collection": coll, "index": index}
		proceed, res, err := confirmGate(deps, "drop-index", fingerprint,
			mcp.ArgString(args, "token"),
			fmt.Sprintf("drop index %s from %s.%s", index, db, coll))
		if !proceed {
			return res, err
		}

		if err := deps.Store.DropIndex(ctx, db, coll, index); err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(fmt.Sprintf("Dropped index %s from %s.", index, coll))
	}
}

func makeDropUserHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		username := mcp.ArgString(args, "username")

		fingerprint := map[string]any{"database": db, "username": username}
		proceed, res, err := confirmGate(deps, "drop-user", fingerprint,
			mcp.ArgString(args, "token"),
			fmt.Sprintf("remove user %s from %s", username, db))
		if !proceed {
			return res, err
		}

		if err := deps.Store.DropUser(ctx, db, username); err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(fmt.Sprintf("Dropped user %s from %s.", username, db))
	}
}
