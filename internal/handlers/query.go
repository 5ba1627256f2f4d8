package handlers

import (
	"context"
	"fmt"

	"github.com/kofifort/mongo-mcp-go/internal/format"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
	"github.com/kofifort/mongo-mcp-go/internal/mongo"
	"github.com/kofifort/mongo-mcp-go/internal/schema"
)

func float(v float64) *float64 { return &v }

func registerQueryTools(reg *registrar, deps *Deps) {
	reg.tool(mcp.Tool{
		Name:        "list-databases",
		Description: "List all databases on the connected MongoDB deployment with their sizes.",
		InputSchema: mcp.JSONSchema{Type: "object", Properties: map[string]mcp.JSONSchema{}},
	}, makeListDatabasesHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "use-database",
		Description: "Switch the active database for subsequent operations.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"database": {Type: "string", Description: "Database name to switch to"},
			},
			Required: []string{"database"},
		},
	}, makeUseDatabaseHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "list-collections",
		Description: "List collections in the active database (or a named one).",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"database": {Type: "string", Description: "Database to list (defaults to the active database)"},
			},
		},
	}, makeListCollectionsHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "find",
		Description: "Run a query against a collection in the active database. Returns matching documents as Extended JSON.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to query"},
				"filter":     {Type: "object", Description: "MongoDB query filter", Default: map[string]any{}},
				"projection": {Type: "object", Description: "Fields to include or exclude"},
				"sort":       {Type: "object", Description: "Sort specification, e.g. {\"age\": -1}"},
				"limit":      {Type: "integer", Description: "Maximum documents to return", Default: 10, Minimum: float(1), Maximum: float(1000)},
			},
			Required: []string{"collection"},
		},
	}, makeFindHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "aggregate",
		Description: "Run an aggregation pipeline against a collection in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to aggregate"},
				"pipeline":   {Type: "array", Description: "Aggregation pipeline stages", Items: &mcp.JSONSchema{Type: "object"}},
				"limit":      {Type: "integer", Description: "Cap on returned documents", Default: 100, Minimum: float(1), Maximum: float(10000)},
			},
			Required: []string{"collection", "pipeline"},
		},
	}, makeAggregateHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "count",
		Description: "Count documents in a collection matching a filter.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to count"},
				"filter":     {Type: "object", Description: "MongoDB query filter", Default: map[string]any{}},
			},
			Required: []string{"collection"},
		},
	}, makeCountHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "collection-schema",
		Description: "Infer a collection's schema from a document sample: field types, coverage, and example values.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to sample"},
				"sampleSize": {Type: "integer", Description: "Documents to sample", Minimum: float(1), Maximum: float(1000)},
			},
			Required: []string{"collection"},
		},
	}, makeSchemaHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "collection-indexes",
		Description: "List the indexes on a collection in the active database.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection whose indexes to list"},
			},
			Required: []string{"collection"},
		},
	}, makeIndexesHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "explain",
		Description: "Show the query plan for a find without executing it.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to explain against"},
				"filter":     {Type: "object", Description: "MongoDB query filter", Default: map[string]any{}},
				"verbosity":  {Type: "string", Description: "Explain verbosity", Enum: []string{"queryPlanner", "executionStats"}, Default: "queryPlanner"},
			},
			Required: []string{"collection"},
		},
	}, makeExplainHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "server-status",
		Description: "Show condensed server status: host, version, uptime, connections.",
		InputSchema: mcp.JSONSchema{Type: "object", Properties: map[string]mcp.JSONSchema{}},
	}, makeServerStatusHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "validate-collection",
		Description: "Run the validate command against a collection.",
		InputSchema: mcp.JSONSchema{
			Type: "object",
			Properties: map[string]mcp.JSONSchema{
				"collection": {Type: "string", Description: "Collection to validate"},
				"full":       {Type: "boolean", Description: "Run the slower full validation", Default: false},
			},
			Required: []string{"collection"},
		},
	}, makeValidateHandler(deps))

	reg.tool(mcp.Tool{
		Name:        "list-users",
		Description: "List the users defined on the active database.",
		InputSchema: mcp.JSONSchema{Type: "object", Properties: map[string]mcp.JSONSchema{}},
	}, makeListUsersHandler(deps))
}

func makeListDatabasesHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		infos, err := deps.Store.ListDatabases(ctx)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Databases(infos))
	}
}

func makeUseDatabaseHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := mcp.ArgString(args, "database")
		deps.Session.Use(db)
		deps.Logger.Info("switched database", "database", db)
		return textResult("Switched to database: " + db)
	}
}

func makeListCollectionsHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := mcp.ArgString(args, "database")
		if db == "" {
			db = deps.Session.Database()
		}
		names, err := cachedCollections(ctx, deps, db)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Collections(db, names))
	}
}

func makeFindHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		docs, err := deps.Store.Find(ctx, deps.Session.Database(), mcp.ArgString(args, "collection"),
			mcp.ArgMap(args, "filter"), mongo.FindOptions{
				Projection: mcp.ArgMap(args, "projection"),
				Sort:       mcp.ArgMap(args, "sort"),
				Limit:      int64(mcp.ArgInt(args, "limit")),
			})
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Documents(docs))
	}
}

func makeAggregateHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		docs, err := deps.Store.Aggregate(ctx, deps.Session.Database(), mcp.ArgString(args, "collection"),
			mcp.ArgArray(args, "pipeline"), int64(mcp.ArgInt(args, "limit")))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Documents(docs))
	}
}

func makeCountHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		n, err := deps.Store.Count(ctx, deps.Session.Database(), coll, mcp.ArgMap(args, "filter"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(fmt.Sprintf("%d document(s) in %s match the filter.", n, coll))
	}
}

func makeSchemaHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		coll := mcp.ArgString(args, "collection")
		size := mcp.ArgInt(args, "sampleSize")
		if size == 0 {
			size = deps.SampleSize
		}
		summary, err := inferSchema(ctx, deps, deps.Session.Database(), coll, size)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Schema(summary))
	}
}

// inferSchema samples and infers; the summary is built fresh on every call.
func inferSchema(ctx context.Context, deps *Deps, db, coll string, size int) (*schema.Summary, error) {
	docs, err := deps.Store.Sample(ctx, db, coll, size)
	if err != nil {
		return nil, err
	}
	return schema.Infer(coll, docs)
}

func makeIndexesHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		coll := mcp.ArgString(args, "collection")
		indexes, err := deps.Store.ListIndexes(ctx, db, coll)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Indexes(db+"."+coll, indexes))
	}
}

func makeExplainHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		plan, err := deps.Store.Explain(ctx, deps.Session.Database(), mcp.ArgString(args, "collection"),
			mcp.ArgMap(args, "filter"), mcp.ArgString(args, "verbosity"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Document(plan))
	}
}

func makeServerStatusHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		status, err := deps.Store.ServerStatus(ctx)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.ServerStatus(status))
	}
}

func makeValidateHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		result, err := deps.Store.ValidateCollection(ctx, deps.Session.Database(),
			mcp.ArgString(args, "collection"), mcp.ArgBool(args, "full"))
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Document(result))
	}
}

func makeListUsersHandler(deps *Deps) mcp.ToolHandler {
	return func(ctx context.Context, args map[string]any) (mcp.ToolCallResult, error) {
		db := deps.Session.Database()
		users, err := deps.Store.ListUsers(ctx, db)
		if err != nil {
			return mcp.ErrorContent(err), nil
		}
		return textResult(format.Users(db, users))
	}
}
