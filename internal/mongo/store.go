// Package mongo wraps the MongoDB driver behind a Store interface and holds
// the per-process session context (active database, cached lookups).
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// OpError represents a failed store operation. It is the domain-error shape
// surfaced to callers as an isError tool result, never as a process crash.
type OpError struct {
	Op   string // e.g. "find", "dropCollection"
	Name string // database or database.collection the operation targeted
	Err  error
}

func (e *OpError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// DatabaseInfo describes one database in a listing.
type DatabaseInfo struct {
	Name       string
	SizeOnDisk int64
	Empty      bool
}

// IndexInfo describes one index on a collection.
type IndexInfo struct {
	Name   string
	Keys   bson.D
	Unique bool
}

// FindOptions bundles the optional shaping of a find.
type FindOptions struct {
	Projection map[string]any
	Sort       map[string]any
	Limit      int64
}

// UpdateSummary reports the effect of an update.
type UpdateSummary struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// UserInfo describes one database user.
type UserInfo struct {
	Username string
	Roles    []string
}

// Store is the document store collaborator. Every call is fallible and
// context-bound; retry and reconnection are the driver's concern, not the
// caller's.
type Store interface {
	ListDatabases(ctx context.Context) ([]DatabaseInfo, error)
	ListCollections(ctx context.Context, db string) ([]string, error)

	Find(ctx context.Context, db, coll string, filter map[string]any, opts FindOptions) ([]bson.M, error)
	Aggregate(ctx context.Context, db, coll string, pipeline []any, limit int64) ([]bson.M, error)
	Count(ctx context.Context, db, coll string, filter map[string]any) (int64, error)
	Sample(ctx context.Context, db, coll string, size int) ([]bson.M, error)
	Explain(ctx context.Context, db, coll string, filter map[string]any, verbosity string) (bson.M, error)

	InsertDocuments(ctx context.Context, db, coll string, docs []any) (int64, error)
	UpdateDocuments(ctx context.Context, db, coll string, filter, update map[string]any, upsert bool) (UpdateSummary, error)
	DeleteDocuments(ctx context.Context, db, coll string, filter map[string]any) (int64, error)

	CreateCollection(ctx context.Context, db, coll string) error
	DropCollection(ctx context.Context, db, coll string) error
	DropDatabase(ctx context.Context, db string) error
	RenameCollection(ctx context.Context, db, coll, newName string, dropTarget bool) error

	ListIndexes(ctx context.Context, db, coll string) ([]IndexInfo, error)
	CreateIndex(ctx context.Context, db, coll string, keys map[string]any, name string, unique bool) (string, error)
	DropIndex(ctx context.Context, db, coll, indexName string) error

	ServerStatus(ctx context.Context) (bson.M, error)
	CollStats(ctx context.Context, db, coll string) (bson.M, error)
	ValidateCollection(ctx context.Context, db, coll string, full bool) (bson.M, error)
	ListUsers(ctx context.Context, db string) ([]UserInfo, error)
	DropUser(ctx context.Context, db, username string) error
}
