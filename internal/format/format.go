// Package format renders raw store results as the human-readable text blocks
// returned inside responses. The protocol core is agnostic to everything here.
package format

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/kofifort/mongo-mcp-go/internal/mongo"
	"github.com/kofifort/mongo-mcp-go/internal/schema"
)

// Documents renders documents as relaxed Extended JSON, one per line.
func Documents(docs []bson.M) string {
	if len(docs) == 0 {
		return "No documents found."
	}
	var b strings.Builder
	for i, doc := range docs {
		data, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			fmt.Fprintf(&b, "(document %d could not be rendered: %v)\n", i+1, err)
			continue
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%d document(s))", len(docs))
	return b.String()
}

// Document renders a single document as indented relaxed Extended JSON.
func Document(doc bson.M) string {
	data, err := bson.MarshalExtJSONIndent(doc, false, false, "", "  ")
	if err != nil {
		return fmt.Sprintf("(document could not be rendered: %v)", err)
	}
	return string(data)
}

// Databases renders a database listing.
func Databases(infos []mongo.DatabaseInfo) string {
	if len(infos) == 0 {
		return "No databases found."
	}
	var b strings.Builder
	b.WriteString("Databases:\n")
	for _, db := range infos {
		fmt.Fprintf(&b, "- %s (%s)", db.Name, sizeOnDisk(db.SizeOnDisk))
		if db.Empty {
			b.WriteString(" [empty]")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Collections renders a collection name listing for a database.
func Collections(db string, names []string) string {
	if len(names) == 0 {
		return fmt.Sprintf("No collections in %s.", db)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Collections in %s:\n", db)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Indexes renders an index listing.
func Indexes(ns string, indexes []mongo.IndexInfo) string {
	if len(indexes) == 0 {
		return fmt.Sprintf("No indexes on %s.", ns)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Indexes on %s:\n", ns)
	for _, idx := range indexes {
		var keys []string
		for _, e := range idx.Keys {
			keys = append(keys, fmt.Sprintf("%s: %v", e.Key, e.Value))
		}
		fmt.Fprintf(&b, "- %s {%s}", idx.Name, strings.Join(keys, ", "))
		if idx.Unique {
			b.WriteString(" [unique]")
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// Schema renders an inferred schema summary with per-field types, coverage,
// and example values.
func Schema(s *schema.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schema for %s (sampled %d document(s)):\n", s.Collection, s.SampleSize)
	for _, name := range s.FieldNames() {
		f := s.Fields[name]
		fmt.Fprintf(&b, "- %s: %s - %d%% coverage (example: %s)\n",
			name, strings.Join(f.Types(), " | "), s.Coverage(name), exampleValue(f.Example))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Users renders a user listing.
func Users(db string, users []mongo.UserInfo) string {
	if len(users) == 0 {
		return fmt.Sprintf("No users on %s.", db)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Users on %s:\n", db)
	for _, u := range users {
		fmt.Fprintf(&b, "- %s (%s)\n", u.Username, strings.Join(u.Roles, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// ServerStatus condenses the serverStatus document to its headline fields.
func ServerStatus(status bson.M) string {
	var b strings.Builder
	b.WriteString("Server status:\n")
	for _, key := range []string{"host", "version", "process", "uptime"} {
		if v, ok := status[key]; ok {
			fmt.Fprintf(&b, "- %s: %v\n", key, v)
		}
	}
	if conns, ok := status["connections"].(bson.M); ok {
		fmt.Fprintf(&b, "- connections: %v current / %v available\n", conns["current"], conns["available"])
	}
	return strings.TrimRight(b.String(), "\n")
}

func exampleValue(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}

func sizeOnDisk(bytes int64) string {
	switch {
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(bytes)/(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
