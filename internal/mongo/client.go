package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultTimeout bounds individual driver calls when the caller's context
// carries no deadline of its own.
const DefaultTimeout = 30 * time.Second

// Client implements Store against a live MongoDB deployment.
type Client struct {
	client *mongo.Client
	logger *slog.Logger
}

// NewClient connects to the deployment at uri and verifies the connection
// with a ping.
func NewClient(ctx context.Context, uri string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping %s: %w", uri, err)
	}

	logger.Info("connected to mongodb")
	return &Client{client: client, logger: logger}, nil
}

// Close disconnects from the deployment.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) collection(db, coll string) *mongo.Collection {
	return c.client.Database(db).Collection(coll)
}

func namespace(db, coll string) string {
	return db + "." + coll
}

// ListDatabases lists all databases visible to the connection.
func (c *Client) ListDatabases(ctx context.Context) ([]DatabaseInfo, error) {
	result, err := c.client.ListDatabases(ctx, bson.D{})
	if err != nil {
		return nil, &OpError{Op: "listDatabases", Err: err}
	}
	infos := make([]DatabaseInfo, 0, len(result.Databases))
	for _, db := range result.Databases {
		infos = append(infos, DatabaseInfo{Name: db.Name, SizeOnDisk: db.SizeOnDisk, Empty: db.Empty})
	}
	return infos, nil
}

// ListCollections lists collection names in db.
func (c *Client) ListCollections(ctx context.Context, db string) ([]string, error) {
	names, err := c.client.Database(db).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, &OpError{Op: "listCollections", Name: db, Err: err}
	}
	return names, nil
}

// Find runs a filtered query with optional projection, sort, and limit.
func (c *Client) Find(ctx context.Context, db, coll string, filter map[string]any, opts FindOptions) ([]bson.M, error) {
	findOpts := options.Find()
	if opts.Projection != nil {
		findOpts.SetProjection(bson.M(opts.Projection))
	}
	if opts.Sort != nil {
		findOpts.SetSort(bson.M(opts.Sort))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := c.collection(db, coll).Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return nil, &OpError{Op: "find", Name: namespace(db, coll), Err: err}
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &OpError{Op: "find", Name: namespace(db, coll), Err: err}
	}
	return docs, nil
}

// Aggregate runs a pipeline, capping the result set at limit when positive.
func (c *Client) Aggregate(ctx context.Context, db, coll string, pipeline []any, limit int64) ([]bson.M, error) {
	stages := make(mongo.Pipeline, 0, len(pipeline)+1)
	for _, stage := range pipeline {
		m, ok := stage.(map[string]any)
		if !ok {
			return nil, &OpError{Op: "aggregate", Name: namespace(db, coll), Err: fmt.Errorf("pipeline stage must be an object, got %T", stage)}
		}
		var d bson.D
		for k, v := range m {
			d = append(d, bson.E{Key: k, Value: v})
		}
		stages = append(stages, d)
	}
	if limit > 0 {
		stages = append(stages, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := c.collection(db, coll).Aggregate(ctx, stages)
	if err != nil {
		return nil, &OpError{Op: "aggregate", Name: namespace(db, coll), Err: err}
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &OpError{Op: "aggregate", Name: namespace(db, coll), Err: err}
	}
	return docs, nil
}

// Count counts documents matching filter.
func (c *Client) Count(ctx context.Context, db, coll string, filter map[string]any) (int64, error) {
	n, err := c.collection(db, coll).CountDocuments(ctx, bson.M(filter))
	if err != nil {
		return 0, &OpError{Op: "count", Name: namespace(db, coll), Err: err}
	}
	return n, nil
}

// Sample fetches up to size documents in the store's default retrieval order.
func (c *Client) Sample(ctx context.Context, db, coll string, size int) ([]bson.M, error) {
	return c.Find(ctx, db, coll, map[string]any{}, FindOptions{Limit: int64(size)})
}

// Explain reports the query plan for a find with the given filter.
func (c *Client) Explain(ctx context.Context, db, coll string, filter map[string]any, verbosity string) (bson.M, error) {
	cmd := bson.D{
		{Key: "explain", Value: bson.D{
			{Key: "find", Value: coll},
			{Key: "filter", Value: bson.M(filter)},
		}},
		{Key: "verbosity", Value: verbosity},
	}
	var result bson.M
	if err := c.client.Database(db).RunCommand(ctx, cmd).Decode(&result); err != nil {
		return nil, &OpError{Op: "explain", Name: namespace(db, coll), Err: err}
	}
	return result, nil
}

// InsertDocuments inserts docs and returns the number inserted.
func (c *Client) InsertDocuments(ctx context.Context, db, coll string, docs []any) (int64, error) {
	result, err := c.collection(db, coll).InsertMany(ctx, docs)
	if err != nil {
		return 0, &OpError{Op: "insert", Name: namespace(db, coll), Err: err}
	}
	return int64(len(result.InsertedIDs)), nil
}

// UpdateDocuments applies update to every document matching filter.
func (c *Client) UpdateDocuments(ctx context.Context, db, coll string, filter, update map[string]any, upsert bool) (UpdateSummary, error) {
	opts := options.UpdateMany().SetUpsert(upsert)
	result, err := c.collection(db, coll).UpdateMany(ctx, bson.M(filter), bson.M(update), opts)
	if err != nil {
		return UpdateSummary{}, &OpError{Op: "update", Name: namespace(db, coll), Err: err}
	}
	return UpdateSummary{Matched: result.MatchedCount, Modified: result.ModifiedCount, Upserted: result.UpsertedCount}, nil
}

// DeleteDocuments removes every document matching filter.
func (c *Client) DeleteDocuments(ctx context.Context, db, coll string, filter map[string]any) (int64, error) {
	result, err := c.collection(db, coll).DeleteMany(ctx, bson.M(filter))
	if err != nil {
		return 0, &OpError{Op: "delete", Name: namespace(db, coll), Err: err}
	}
	return result.DeletedCount, nil
}

// CreateCollection creates an empty collection.
func (c *Client) CreateCollection(ctx context.Context, db, coll string) error {
	if err := c.client.Database(db).CreateCollection(ctx, coll); err != nil {
		return &OpError{Op: "createCollection", Name: namespace(db, coll), Err: err}
	}
	return nil
}

// DropCollection removes a collection and its indexes.
func (c *Client) DropCollection(ctx context.Context, db, coll string) error {
	if err := c.collection(db, coll).Drop(ctx); err != nil {
		return &OpError{Op: "dropCollection", Name: namespace(db, coll), Err: err}
	}
	return nil
}

// DropDatabase removes an entire database.
func (c *Client) DropDatabase(ctx context.Context, db string) error {
	if err := c.client.Database(db).Drop(ctx); err != nil {
		return &OpError{Op: "dropDatabase", Name: db, Err: err}
	}
	return nil
}

// RenameCollection renames coll within db via the admin command.
func (c *Client) RenameCollection(ctx context.Context, db, coll, newName string, dropTarget bool) error {
	cmd := bson.D{
		{Key: "renameCollection", Value: namespace(db, coll)},
		{Key: "to", Value: namespace(db, newName)},
		{Key: "dropTarget", Value: dropTarget},
	}
	if err := c.client.Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return &OpError{Op: "renameCollection", Name: namespace(db, coll), Err: err}
	}
	return nil
}

// ListIndexes lists the indexes on a collection.
func (c *Client) ListIndexes(ctx context.Context, db, coll string) ([]IndexInfo, error) {
	cursor, err := c.collection(db, coll).Indexes().List(ctx)
	if err != nil {
		return nil, &OpError{Op: "listIndexes", Name: namespace(db, coll), Err: err}
	}
	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, &OpError{Op: "listIndexes", Name: namespace(db, coll), Err: err}
	}

	infos := make([]IndexInfo, 0, len(raw))
	for _, idx := range raw {
		info := IndexInfo{}
		if name, ok := idx["name"].(string); ok {
			info.Name = name
		}
		switch key := idx["key"].(type) {
		case bson.D:
			info.Keys = key
		case bson.M:
			for k, v := range key {
				info.Keys = append(info.Keys, bson.E{Key: k, Value: v})
			}
		}
		if unique, ok := idx["unique"].(bool); ok {
			info.Unique = unique
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateIndex creates an index and returns its name.
func (c *Client) CreateIndex(ctx context.Context, db, coll string, keys map[string]any, name string, unique bool) (string, error) {
	opts := options.Index().SetUnique(unique)
	if name != "" {
		opts.SetName(name)
	}
	var keyDoc bson.D
	for k, v := range keys {
		keyDoc = append(keyDoc, bson.E{Key: k, Value: v})
	}
	created, err := c.collection(db, coll).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keyDoc, Options: opts})
	if err != nil {
		return "", &OpError{Op: "createIndex", Name: namespace(db, coll), Err: err}
	}
	return created, nil
}

// DropIndex removes the named index.
func (c *Client) DropIndex(ctx context.Context, db, coll, indexName string) error {
	if err := c.collection(db, coll).Indexes().DropOne(ctx, indexName); err != nil {
		return &OpError{Op: "dropIndex", Name: namespace(db, coll), Err: err}
	}
	return nil
}

// ServerStatus runs the serverStatus admin command.
func (c *Client) ServerStatus(ctx context.Context) (bson.M, error) {
	var status bson.M
	cmd := bson.D{{Key: "serverStatus", Value: 1}}
	if err := c.client.Database("admin").RunCommand(ctx, cmd).Decode(&status); err != nil {
		return nil, &OpError{Op: "serverStatus", Err: err}
	}
	return status, nil
}

// CollStats runs collStats for a collection.
func (c *Client) CollStats(ctx context.Context, db, coll string) (bson.M, error) {
	var stats bson.M
	cmd := bson.D{{Key: "collStats", Value: coll}}
	if err := c.client.Database(db).RunCommand(ctx, cmd).Decode(&stats); err != nil {
		return nil, &OpError{Op: "collStats", Name: namespace(db, coll), Err: err}
	}
	return stats, nil
}

// ValidateCollection runs the validate command; full requests the deeper scan.
func (c *Client) ValidateCollection(ctx context.Context, db, coll string, full bool) (bson.M, error) {
	var result bson.M
	cmd := bson.D{{Key: "validate", Value: coll}, {Key: "full", Value: full}}
	if err := c.client.Database(db).RunCommand(ctx, cmd).Decode(&result); err != nil {
		return nil, &OpError{Op: "validate", Name: namespace(db, coll), Err: err}
	}
	return result, nil
}

// ListUsers runs usersInfo against db.
func (c *Client) ListUsers(ctx context.Context, db string) ([]UserInfo, error) {
	var result struct {
		Users []struct {
			User  string `bson:"user"`
			Roles []struct {
				Role string `bson:"role"`
				DB   string `bson:"db"`
			} `bson:"roles"`
		} `bson:"users"`
	}
	cmd := bson.D{{Key: "usersInfo", Value: 1}}
	if err := c.client.Database(db).RunCommand(ctx, cmd).Decode(&result); err != nil {
		return nil, &OpError{Op: "listUsers", Name: db, Err: err}
	}

	users := make([]UserInfo, 0, len(result.Users))
	for _, u := range result.Users {
		info := UserInfo{Username: u.User}
		for _, r := range u.Roles {
			info.Roles = append(info.Roles, fmt.Sprintf("%s@%s", r.Role, r.DB))
		}
		users = append(users, info)
	}
	return users, nil
}

// DropUser removes a database user.
func (c *Client) DropUser(ctx context.Context, db, username string) error {
	cmd := bson.D{{Key: "dropUser", Value: username}}
	if err := c.client.Database(db).RunCommand(ctx, cmd).Err(); err != nil {
		return &OpError{Op: "dropUser", Name: db, Err: err}
	}
	return nil
}
