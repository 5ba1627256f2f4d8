package handlers

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kofifort/mongo-mcp-go/internal/mongo"
)

var errNotStubbed = errors.New("operation not stubbed")

// fakeStore implements mongo.Store through overridable function fields so each
// test stubs only the operations it exercises.
type fakeStore struct {
	listDatabases   func(ctx context.Context) ([]mongo.DatabaseInfo, error)
	listCollections func(ctx context.Context, db string) ([]string, error)
	find            func(ctx context.Context, db, coll string, filter map[string]any, opts mongo.FindOptions) ([]bson.M, error)
	aggregate       func(ctx context.Context, db, coll string, pipeline []any, limit int64) ([]bson.M, error)
	count           func(ctx context.Context, db, coll string, filter map[string]any) (int64, error)
	sample          func(ctx context.Context, db, coll string, size int) ([]bson.M, error)
	explain         func(ctx context.Context, db, coll string, filter map[string]any, verbosity string) (bson.M, error)
	insertDocuments func(ctx context.Context, db, coll string, docs []any) (int64, error)
	updateDocuments func(ctx context.Context, db, coll string, filter, update map[string]any, upsert bool) (mongo.UpdateSummary, error)
	deleteDocuments func(ctx context.Context, db, coll string, filter map[string]any) (int64, error)
	createColl      func(ctx context.Context, db, coll string) error
	dropCollection  func(ctx context.Context, db, coll string) error
	dropDatabase    func(ctx context.Context, db string) error
	renameColl      func(ctx context.Context, db, coll, newName string, dropTarget bool) error
	listIndexes     func(ctx context.Context, db, coll string) ([]mongo.IndexInfo, error)
	createIndex     func(ctx context.Context, db, coll string, keys map[string]any, name string, unique bool) (string, error)
	dropIndex       func(ctx context.Context, db, coll, indexName string) error
	serverStatus    func(ctx context.Context) (bson.M, error)
	collStats       func(ctx context.Context, db, coll string) (bson.M, error)
	validateColl    func(ctx context.Context, db, coll string, full bool) (bson.M, error)
	listUsers       func(ctx context.Context, db string) ([]mongo.UserInfo, error)
	dropUser        func(ctx context.Context, db, username string) error
}

func (f *fakeStore) ListDatabases(ctx context.Context) ([]mongo.DatabaseInfo, error) {
	if f.listDatabases == nil {
		return nil, errNotStubbed
	}
	return f.listDatabases(ctx)
}

func (f *fakeStore) ListCollections(ctx context.Context, db string) ([]string, error) {
	if f.listCollections == nil {
		return nil, errNotStubbed
	}
	return f.listCollections(ctx, db)
}

func (f *fakeStore) Find(ctx context.Context, db, coll string, filter map[string]any, opts mongo.FindOptions) ([]bson.M, error) {
	if f.find == nil {
		return nil, errNotStubbed
	}
	return f.find(ctx, db, coll, filter, opts)
}

func (f *fakeStore) Aggregate(ctx context.Context, db, coll string, pipeline []any, limit int64) ([]bson.M, error) {
	if f.aggregate == nil {
		return nil, errNotStubbed
	}
	return f.aggregate(ctx, db, coll, pipeline, limit)
}

func (f *fakeStore) Count(ctx context.Context, db, coll string, filter map[string]any) (int64, error) {
	if f.count == nil {
		return 0, errNotStubbed
	}
	return f.count(ctx, db, coll, filter)
}

func (f *fakeStore) Sample(ctx context.Context, db, coll string, size int) ([]bson.M, error) {
	if f.sample == nil {
		return nil, errNotStubbed
	}
	return f.sample(ctx, db, coll, size)
}

func (f *fakeStore) Explain(ctx context.Context, db, coll string, filter map[string]any, verbosity string) (bson.M, error) {
	if f.explain == nil {
		return nil, errNotStubbed
	}
	return f.explain(ctx, db, coll, filter, verbosity)
}

func (f *fakeStore) InsertDocuments(ctx context.Context, db, coll string, docs []any) (int64, error) {
	if f.insertDocuments == nil {
		return 0, errNotStubbed
	}
	return f.insertDocuments(ctx, db, coll, docs)
}

func (f *fakeStore) UpdateDocuments(ctx context.Context, db, coll string, filter, update map[string]any, upsert bool) (mongo.UpdateSummary, error) {
	if f.updateDocuments == nil {
		return mongo.UpdateSummary{}, errNotStubbed
	}
	return f.updateDocuments(ctx, db, coll, filter, update, upsert)
}

func (f *fakeStore) DeleteDocuments(ctx context.Context, db, coll string, filter map[string]any) (int64, error) {
	if f.deleteDocuments == nil {
		return 0, errNotStubbed
	}
	return f.deleteDocuments(ctx, db, coll, filter)
}

func (f *fakeStore) CreateCollection(ctx context.Context, db, coll string) error {
	if f.createColl == nil {
		return errNotStubbed
	}
	return f.createColl(ctx, db, coll)
}

func (f *fakeStore) DropCollection(ctx context.Context, db, coll string) error {
	if f.dropCollection == nil {
		return errNotStubbed
	}
	return f.dropCollection(ctx, db, coll)
}

func (f *fakeStore) DropDatabase(ctx context.Context, db string) error {
	if f.dropDatabase == nil {
		return errNotStubbed
	}
	return f.dropDatabase(ctx, db)
}

func (f *fakeStore) RenameCollection(ctx context.Context, db, coll, newName string, dropTarget bool) error {
	if f.renameColl == nil {
		return errNotStubbed
	}
	return f.renameColl(ctx, db, coll, newName, dropTarget)
}

func (f *fakeStore) ListIndexes(ctx context.Context, db, coll string) ([]mongo.IndexInfo, error) {
	if f.listIndexes == nil {
		return nil, errNotStubbed
	}
	return f.listIndexes(ctx, db, coll)
}

func (f *fakeStore) CreateIndex(ctx context.Context, db, coll string, keys map[string]any, name string, unique bool) (string, error) {
	if f.createIndex == nil {
		return "", errNotStubbed
	}
	return f.createIndex(ctx, db, coll, keys, name, unique)
}

func (f *fakeStore) DropIndex(ctx context.Context, db, coll, indexName string) error {
	if f.dropIndex == nil {
		return errNotStubbed
	}
	return f.dropIndex(ctx, db, coll, indexName)
}

func (f *fakeStore) ServerStatus(ctx context.Context) (bson.M, error) {
	if f.serverStatus == nil {
		return nil, errNotStubbed
	}
	return f.serverStatus(ctx)
}

func (f *fakeStore) CollStats(ctx context.Context, db, coll string) (bson.M, error) {
	if f.collStats == nil {
		return nil, errNotStubbed
	}
	return f.collStats(ctx, db, coll)
}

func (f *fakeStore) ValidateCollection(ctx context.Context, db, coll string, full bool) (bson.M, error) {
	if f.validateColl == nil {
		return nil, errNotStubbed
	}
	return f.validateColl(ctx, db, coll, full)
}

func (f *fakeStore) ListUsers(ctx context.Context, db string) ([]mongo.UserInfo, error) {
	if f.listUsers == nil {
		return nil, errNotStubbed
	}
	return f.listUsers(ctx, db)
}

func (f *fakeStore) DropUser(ctx context.Context, db, username string) error {
	if f.dropUser == nil {
		return errNotStubbed
	}
	return f.dropUser(ctx, db, username)
}
