package handlers

import (
	"context"
	"fmt"

	"github.com/kofifort/mongo-mcp-go/internal/mcp"
)

func registerWriteTools(reg *registrar, deps *Deps) {
	reg.tool(mcp.Tool{
		Name:        "insert-documents",
		Description: "Insert documents into a collection in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Target collection"},
				"documents":  {Type: "array", Description: "Documents to insert", Items: &mcp.JSONSchema{Type: "object"}},
			},
			Required: []string{"collection", "documents"},
		},
	}, makeInsertHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "update-documents",
		Description: "Update all documents matching a filter in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Target collection"},
				"filter":     {Type: "object", Description: "Documents to update"},
				"update":     {Type: "object", Description: "Update document, e.g. {\"$set\": {...}}"},
				"upsert":     {Type: "boolean", Description: "Insert when nothing matches", Default: false},
			},
			Required: []string{"collection", "filter", "update"},
		},
	}, makeUpdateHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "create-collection",
		Description: "Create an empty collection in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection name"},
			},
			Required: []string{"collection"},
		},
	}, makeCreateCollectionHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "rename-collection",
		Description: "Rename a collection within the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Current collection name"},
				"newName":    {Type: "string", Description: "New collection name"},
				"dropTarget": {Type: "boolean", Description: "Drop an existing collection with the new name", Default: false},
			},
			Required: []string{"collection", "newName"},
		},
	}, makeRenameCollectionHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "create-index",
		Description: "Create an index on a collection in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Target collection"},
				"keys":       {Type: "object", Description: "Index key specification, e.g. {\"email\": 1}"},
				"name":       {Type: "string", Description: "Index name (generated when omitted)"},
				"unique":     {Type: "boolean", Description: "Enforce uniqueness", Default: false},
			},
			Required: []string{"collection", "keys"},
		},
	}, makeCreateIndexHandler(deps))
}

func makeInsertHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		docs := mcp.ArgArray(args, "documents")
		if len(docs) == 0 {
			return errorResult("documents must not be empty")
		}
		n, err := deps.Store.InsertDocuments(ctx, deps.Session.Database(), coll, docs)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult(fmt.Sprintf("Inserted %d document(s) into %s.", n, coll))
	}
}

func makeUpdateHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		summary, err := deps.Store.UpdateDocuments(ctx, deps.Session.Database(), coll,
			mcp.ArgMap(args, "filter"), mcp.ArgMap(args, "update"), mcp.ArgBool(args, "upsert"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult(fmt.Sprintf("Matched %d, modified %d, upserted %d document(s) in %s.",
			summary.Matched, summary.Modified, summary.Upserted, coll))
	}
}

func makeCreateCollectionHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		if err := deps.Store.CreateCollection(ctx, deps.Session.Database(), coll); err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult("Created collection: " + coll)
	}
}

func makeRenameCollectionHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		newName := mcp.ArgString(args, "newName")
		err := deps.Store.RenameCollection(ctx, deps.Session.Database(), coll, newName,
			mcp.ArgBool(args, "dropTarget"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		deps.Session.Invalidate()
		return textResult(fmt.Sprintf("Renamed %s to %s.", coll, newName))
	}
}

func makeCreateIndexHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		name, err := deps.Store.CreateIndex(ctx, deps.Session.Database(), coll,
			mcp.ArgMap(args, "keys"), mcp.ArgString(args, "name"), mcp.ArgBool(args, "unique"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(fmt.Sprintf("Created index %s on %s.", name, coll))
	}
}
