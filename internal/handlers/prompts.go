package handlers

import (
	"context"
	"fmt"

	"github.com/kofifort/mongo-mcp-go/internal/format"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
)

func registerPrompts(reg *registrar, deps *Deps) {
	reg.prompt(mcp.Prompt{
		Name:        "analyze-collection",
		Description: "Analyze a collection's structure and suggest improvements.",
		Arguments: []mcp.PromptArgument{
			{Name: "collection", Description: "Collection to analyze", Required: true},
		},
	}, makeAnalyzeCollectionPrompt(deps))

	reg.prompt(mcp.Prompt{
		Name:        "query-builder",
		Description: "Help construct a query or aggregation for a stated goal.",
		Arguments: []mcp.PromptArgument{
			{Name: "collection", Description: "Collection to query", Required: true},
			{Name: "goal", Description: "What the query should return", Required: true},
		},
	}, makeQueryBuilderPrompt(deps))
}

// makeAnalyzeCollectionPrompt enriches the generated messages with the live
// inferred schema and index list, so the prompt handler itself exercises the
// same read paths the tools do.
func makeAnalyzeCollectionPrompt(deps *Deps) mcp.PromptHandler {
	return func(ctx context.Context, args map[string]string) (mcp.GetPromptResult, error) {
		db := deps.Session.Database()
		coll := args["collection"]

		summary, err := inferSchema(ctx, deps, db, coll, deps.SampleSize)
		if err != nil {
			return mcp.GetPromptResult{}, fmt.Errorf("analyzing %s.%s: %w", db, coll, err)
		}
		indexes, err := deps.Store.ListIndexes(ctx, db, coll)
		if err != nil {
			return mcp.GetPromptResult{}, fmt.Errorf("analyzing %s.%s: %w", db, coll, err)
		}

		text := fmt.Sprintf(`Please analyze the MongoDB collection %s.%s.

%s

%s

Consider:
1. Whether the field types and coverage suggest schema drift or missing validation.
2. Whether the indexes match likely query patterns, and which are unused or missing.
3. Any fields that look denormalized, oversized, or better modeled as sub-documents.`,
			db, coll, format.Schema(summary), format.Indexes(db+"."+coll, indexes))

		return mcp.GetPromptResult{
			Description: fmt.Sprintf("Analysis of %s.%s", db, coll),
			Messages: []mcp.PromptMessage{
				{Role: "user", Content: mcp.TextContent(text)},
			},
		}, nil
	}
}

func makeQueryBuilderPrompt(deps *Deps) mcp.PromptHandler {
	return func(ctx context.Context, args map[string]string) (mcp.GetPromptResult, error) {
		db := deps.Session.Database()
		coll := args["collection"]

		summary, err := inferSchema(ctx, deps, db, coll, deps.SampleSize)
		if err != nil {
			return mcp.GetPromptResult{}, fmt.Errorf("building query help for %s.%s: %w", db, coll, err)
		}

		text := fmt.Sprintf(`I need a MongoDB query against %s.%s.

Goal: %s

The collection's observed structure:

%s

Please propose a find filter or aggregation pipeline that achieves the goal,
note which indexes it would use, and flag any fields it assumes exist.`,
			db, coll, args["goal"], format.Schema(summary))

		return mcp.GetPromptResult{
			Description: fmt.Sprintf("Query construction help for %s.%s", db, coll),
			Messages: []mcp.PromptMessage{
				{Role: "user", Content: mcp.TextContent(text)},
			},
		}, nil
	}
}
