package handlers

import (
	"context"
	"fmt"

	"github.com/kofifort/mongo-mcp-go/internal/format"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
)

func registerResources(reg *registrar, deps *Deps) {
	reg.resource(mcp.Resource{
		URI:         "mongodb://databases",
		Name:        "Database listing",
		Description: "All databases on the connected deployment.",
		MIMEType:    "text/plain",
	}, func(ctx context.Context) (string, error) {
		infos, err := deps.Store.ListDatabases(ctx)
		if err != nil {
			return "", err
		}
		return format.Databases(infos), nil
	})

	reg.resource(mcp.Resource{
		URI:         "mongodb://server-status",
		Name:        "Server status",
		Description: "Condensed serverStatus output.",
		MIMEType:    "text/plain",
	}, func(ctx context.Context) (string, error) {
		status, err := deps.Store.ServerStatus(ctx)
		if err != nil {
			return "", err
		}
		return format.ServerStatus(status), nil
	})

	reg.template(mcp.ResourceTemplate{
		URITemplate: "mongodb://collection/{database}/{collection}/schema",
		Name:        "Collection schema",
		Description: "Schema inferred from a document sample.",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, vars map[string]string) (string, error) {
		summary, err := inferSchema(ctx, deps, vars["database"], vars["collection"], deps.SampleSize)
		if err != nil {
			return "", err
		}
		return format.Schema(summary), nil
	}, makeCollectionLister(deps, "schema"), makePlaceholderCompleter(deps))

	reg.template(mcp.ResourceTemplate{
		URITemplate: "mongodb://collection/{database}/{collection}/indexes",
		Name:        "Collection indexes",
		Description: "Index listing for a collection.",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, vars map[string]string) (string, error) {
		indexes, err := deps.Store.ListIndexes(ctx, vars["database"], vars["collection"])
		if err != nil {
			return "", err
		}
		return format.Indexes(vars["database"]+"."+vars["collection"], indexes), nil
	}, makeCollectionLister(deps, "indexes"), makePlaceholderCompleter(deps))

	reg.template(mcp.ResourceTemplate{
		URITemplate: "mongodb://collection/{database}/{collection}/stats",
		Name:        "Collection statistics",
		Description: "collStats output for a collection.",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, vars map[string]string) (string, error) {
		stats, err := deps.Store.CollStats(ctx, vars["database"], vars["collection"])
		if err != nil {
			return "", err
		}
		return format.Document(stats), nil
	}, makeCollectionLister(deps, "stats"), makePlaceholderCompleter(deps))
}

// makeCollectionLister enumerates the currently valid concrete URIs for a
// collection-scoped template, using the active database.
func makeCollectionLister(deps *Deps, suffix string) mcp.ListFunc {
	return func(ctx context.Context) ([]string, error) {
		db := deps.Session.Database()
		names, err := cachedCollections(ctx, deps, db)
		if err != nil {
			return nil, err
		}
		uris := make([]string, 0, len(names))
		for _, name := range names {
			uris = append(uris, fmt.Sprintf("mongodb://collection/%s/%s/%s", db, name, suffix))
		}
		return uris, nil
	}
}

// makePlaceholderCompleter returns prefix-matched candidates for the
// {database} and {collection} placeholders.
func makePlaceholderCompleter(deps *Deps) mcp.CompleteFunc {
	return func(ctx context.Context, arg, partial string) ([]string, error) {
		switch arg {
		case "database":
			infos, err := deps.Store.ListDatabases(ctx)
			if err != nil {
				return nil, err
			}
			names := make([]string, 0, len(infos))
			for _, info := range infos {
				names = append(names, info.Name)
			}
			return prefixMatch(names, partial), nil
		case "collection":
			names, err := cachedCollections(ctx, deps, deps.Session.Database())
			if err != nil {
				return nil, err
			}
			return prefixMatch(names, partial), nil
		default:
			return []string{}, nil
		}
	}
}
