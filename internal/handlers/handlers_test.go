package handlers

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kofifort/mongo-mcp-go/internal/confirm"
	"github.com/kofifort/mongo-mcp-go/internal/mcp"
	"github.com/kofifort/mongo-mcp-go/internal/mongo"
)

func newTestDeps(store *fakeStore) *Deps {
	return &Deps{
		Store:      store,
		Session:    mongo.NewSession("test"),
		Confirm:    confirm.NewRegistry(confirm.DefaultTTL, true),
		SampleSize: 100,
		Logger:     slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

func resultText(t *testing.T, res mcp.ToolCallResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	return res.Content[0].Text
}

func TestRegisterAll(t *testing.T) {
	server := mcp.NewServer(nil)
	if err := RegisterAll(server, newTestDeps(&fakeStore{})); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	// Re-registering the same capabilities must fail on the first duplicate.
	if err := RegisterAll(server, newTestDeps(&fakeStore{})); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestUseDatabase(t *testing.T) {
	deps := newTestDeps(&fakeStore{})
	handler := makeUseDatabaseHandler(deps)

	res, err := handler(context.Background(), map[string]any{"database": "shop"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if deps.Session.Database() != "shop" {
		t.Errorf("active database not switched: %s", deps.Session.Database())
	}
}

func TestFindUsesActiveDatabase(t *testing.T) {
	var gotDB, gotColl string
	var gotOpts mongo.FindOptions
	store := &fakeStore{
		find: func(ctx context.Context, db, coll string, filter map[string]any, opts mongo.FindOptions) ([]bson.M, error) {
			gotDB, gotColl, gotOpts = db, coll, opts
			return []bson.M{{"name": "ada"}}, nil
		},
	}
	deps := newTestDeps(store)
	deps.Session.Use("shop")

	handler := makeFindHandler(deps)
	res, err := handler(context.Background(), map[string]any{
		"collection": "users",
		"filter":     map[string]any{"active": true},
		"limit":      25,
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if gotDB != "shop" || gotColl != "users" {
		t.Errorf("query went to %s.%s", gotDB, gotColl)
	}
	if gotOpts.Limit != 25 {
		t.Errorf("limit not passed through: %d", gotOpts.Limit)
	}
	if !strings.Contains(resultText(t, res), "ada") {
		t.Errorf("document missing from output: %s", resultText(t, res))
	}
}

func TestStoreErrorBecomesDomainError(t *testing.T) {
	store := &fakeStore{
		find: func(ctx context.Context, db, coll string, filter map[string]any, opts mongo.FindOptions) ([]bson.M, error) {
			return nil, &mongo.OpError{Op: "find", Name: db + "." + coll, Err: context.DeadlineExceeded}
		},
	}
	handler := makeFindHandler(newTestDeps(store))

	res, err := handler(context.Background(), map[string]any{"collection": "users"})
	if err != nil {
		t.Fatalf("store failures must not propagate as handler errors: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected isError result")
	}
	if !strings.Contains(resultText(t, res), "find on test.users") {
		t.Errorf("operation context missing: %s", resultText(t, res))
	}
}

func TestSchemaTool(t *testing.T) {
	store := &fakeStore{
		sample: func(ctx context.Context, db, coll string, size int) ([]bson.M, error) {
			return []bson.M{
				{"a": int32(1)},
				{"a": "x", "b": true},
				{"b": false},
			}, nil
		},
	}
	handler := makeSchemaHandler(newTestDeps(store))

	res, err := handler(context.Background(), map[string]any{"collection": "things"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "a: int | string") {
		t.Errorf("full type set missing:\n%s", text)
	}
	if !strings.Contains(text, "67% coverage") {
		t.Errorf("coverage missing:\n%s", text)
	}
}

func TestSchemaToolEmptyCollection(t *testing.T) {
	store := &fakeStore{
		sample: func(ctx context.Context, db, coll string, size int) ([]bson.M, error) {
			return nil, nil
		},
	}
	handler := makeSchemaHandler(newTestDeps(store))

	res, err := handler(context.Background(), map[string]any{"collection": "empty"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.IsError {
		t.Fatal("empty sample should be a domain error, not a blank summary")
	}
}

var tokenPattern = regexp.MustCompile(`token: (\S+)`)

func issuedToken(t *testing.T, res mcp.ToolCallResult) string {
	t.Helper()
	m := tokenPattern.FindStringSubmatch(resultText(t, res))
	if m == nil {
		t.Fatalf("no token in confirmation text:\n%s", resultText(t, res))
	}
	return m[1]
}

func TestDropCollectionConfirmation(t *testing.T) {
	dropped := []string{}
	store := &fakeStore{
		dropCollection: func(ctx context.Context, db, coll string) error {
			dropped = append(dropped, db+"."+coll)
			return nil
		},
	}
	deps := newTestDeps(store)
	handler := makeDropCollectionHandler(deps)

	// First call issues a token and performs nothing.
	res, err := handler(context.Background(), map[string]any{"collection": "X"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !strings.Contains(resultText(t, res), "NOT been performed") {
		t.Errorf("confirmation text should state nothing happened:\n%s", resultText(t, res))
	}
	if len(dropped) != 0 {
		t.Fatal("collection dropped without confirmation")
	}
	token := issuedToken(t, res)

	// The token does not transfer to a different target.
	res, err = handler(context.Background(), map[string]any{"collection": "Y", "token": token})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected rejection for mismatched target")
	}
	if len(dropped) != 0 {
		t.Fatal("mismatched token still dropped a collection")
	}

	// The correct target consumes the token and proceeds.
	res, err = handler(context.Background(), map[string]any{"collection": "X", "token": token})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected rejection: %s", resultText(t, res))
	}
	if len(dropped) != 1 || dropped[0] != "test.X" {
		t.Errorf("unexpected drops: %v", dropped)
	}

	// The token was single use.
	res, _ = handler(context.Background(), map[string]any{"collection": "X", "token": token})
	if !res.IsError {
		t.Fatal("expected rejection for reused token")
	}
}

func TestDeleteDocumentsFingerprintIncludesFilter(t *testing.T) {
	deleted := 0
	store := &fakeStore{
		deleteDocuments: func(ctx context.Context, db, coll string, filter map[string]any) (int64, error) {
			deleted++
			return 3, nil
		},
	}
	deps := newTestDeps(store)
	handler := makeDeleteDocumentsHandler(deps)

	res, err := handler(context.Background(), map[string]any{
		"collection": "orders",
		"filter":     map[string]any{"status": "stale"},
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	token := issuedToken(t, res)

	// Same collection, different filter: rejected.
	res, _ = handler(context.Background(), map[string]any{
		"collection": "orders",
		"filter":     map[string]any{"status": "fresh"},
		"token":      token,
	})
	if !res.IsError {
		t.Fatal("expected rejection for different filter")
	}
	if deleted != 0 {
		t.Fatal("documents deleted despite filter mismatch")
	}

	// Identical arguments proceed.
	res, err = handler(context.Background(), map[string]any{
		"collection": "orders",
		"filter":     map[string]any{"status": "stale"},
		"token":      token,
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected rejection: %s", resultText(t, res))
	}
	if deleted != 1 {
		t.Errorf("expected 1 delete, got %d", deleted)
	}
}

func TestConfirmationDisabledProceedsImmediately(t *testing.T) {
	dropped := 0
	store := &fakeStore{
		dropCollection: func(ctx context.Context, db, coll string) error {
			dropped++
			return nil
		},
	}
	deps := newTestDeps(store)
	deps.Confirm = confirm.NewRegistry(confirm.DefaultTTL, false)

	handler := makeDropCollectionHandler(deps)
	res, err := handler(context.Background(), map[string]any{"collection": "X"})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected rejection: %s", resultText(t, res))
	}
	if dropped != 1 {
		t.Errorf("expected immediate drop, got %d", dropped)
	}
}

func TestPlaceholderCompletion(t *testing.T) {
	store := &fakeStore{
		listDatabases: func(ctx context.Context) ([]mongo.DatabaseInfo, error) {
			return []mongo.DatabaseInfo{{Name: "shop"}, {Name: "scratch"}, {Name: "admin"}}, nil
		},
		listCollections: func(ctx context.Context, db string) ([]string, error) {
			return []string{"users", "orders", "userEvents"}, nil
		},
	}
	deps := newTestDeps(store)
	complete := makePlaceholderCompleter(deps)

	got, err := complete(context.Background(), "collection", "us")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	want := []string{"users", "userEvents"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected %v, got %v", want, got)
	}

	got, err = complete(context.Background(), "database", "s")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if len(got) != 2 || got[0] != "shop" || got[1] != "scratch" {
		t.Errorf("unexpected database candidates: %v", got)
	}

	got, err = complete(context.Background(), "unknown", "x")
	if err != nil || len(got) != 0 {
		t.Errorf("unknown placeholder should yield no candidates: %v, %v", got, err)
	}
}

func TestCollectionListingIsCachedAndInvalidated(t *testing.T) {
	calls := 0
	store := &fakeStore{
		listCollections: func(ctx context.Context, db string) ([]string, error) {
			calls++
			return []string{"users"}, nil
		},
	}
	deps := newTestDeps(store)

	if _, err := cachedCollections(context.Background(), deps, "test"); err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if _, err := cachedCollections(context.Background(), deps, "test"); err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 store call with a warm cache, got %d", calls)
	}

	deps.Session.Invalidate()
	if _, err := cachedCollections(context.Background(), deps, "test"); err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected a fresh store call after invalidation, got %d", calls)
	}
}

func TestCollectionLister(t *testing.T) {
	store := &fakeStore{
		listCollections: func(ctx context.Context, db string) ([]string, error) {
			return []string{"users", "orders"}, nil
		},
	}
	deps := newTestDeps(store)
	deps.Session.Use("shop")

	list := makeCollectionLister(deps, "schema")
	uris, err := list(context.Background())
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	want := []string{
		"mongodb://collection/shop/users/schema",
		"mongodb://collection/shop/orders/schema",
	}
	if len(uris) != 2 || uris[0] != want[0] || uris[1] != want[1] {
		t.Errorf("expected %v, got %v", want, uris)
	}
}
