// Package schema infers a collection's structure from a bounded document
// sample: per-field type sets, occurrence counts, and one example value.
package schema

import (
	"errors"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrEmptySample is returned when the sample yields no documents; there is
// nothing to infer, which is distinct from an empty-but-valid summary.
var ErrEmptySample = errors.New("no documents sampled: collection is empty or does not exist")

// Field type classification names. Nested objects are classified by shape,
// not recursively flattened.
const (
	TypeNull      = "null"
	TypeUndefined = "undefined"
	TypeObjectID  = "objectId"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeArray     = "array"
	TypeObject    = "object"
	TypeBool      = "bool"
	TypeInt       = "int"
	TypeLong      = "long"
	TypeDouble    = "double"
	TypeDecimal   = "decimal"
	TypeString    = "string"
	TypeBinary    = "binData"
	TypeRegex     = "regex"
	TypeUnknown   = "unknown"
)

// FieldStats aggregates observations of one top-level field across the sample.
type FieldStats struct {
	types   map[string]bool
	Count   int
	Example any
}

// Types returns the full set of observed type names, sorted.
func (f *FieldStats) Types() []string {
	names := make([]string, 0, len(f.types))
	for t := range f.types {
		names = append(names, t)
	}
	sort.Strings(names)
	return names
}

// HasType reports whether the field was observed with the given type.
func (f *FieldStats) HasType(t string) bool { return f.types[t] }

// Summary is the inference result for one collection.
type Summary struct {
	Collection string
	SampleSize int
	Fields     map[string]*FieldStats
}

// Coverage returns the percentage of sampled documents containing the field,
// rounded to the nearest integer.
func (s *Summary) Coverage(field string) int {
	f, ok := s.Fields[field]
	if !ok || s.SampleSize == 0 {
		return 0
	}
	return int(math.Round(float64(f.Count) / float64(s.SampleSize) * 100))
}

// FieldNames returns the observed field names, sorted.
func (s *Summary) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infer builds a summary from sampled documents. Fields absent from a
// document simply aren't counted for it; a field seen with several types
// keeps the full set. The retained example is the most recently seen value.
func Infer(collection string, docs []bson.M) (*Summary, error) {
	if len(docs) == 0 {
		return nil, ErrEmptySample
	}

	summary := &Summary{
		Collection: collection,
		SampleSize: len(docs),
		Fields:     make(map[string]*FieldStats),
	}

	for _, doc := range docs {
		for name, value := range doc {
			f, ok := summary.Fields[name]
			if !ok {
				f = &FieldStats{types: make(map[string]bool)}
				summary.Fields[name] = f
			}
			f.types[Classify(value)] = true
			f.Count++
			f.Example = value
		}
	}

	return summary, nil
}

// Classify maps a decoded BSON value to its type name.
func Classify(v any) string {
	switch v.(type) {
	case nil:
		return TypeNull
	case bson.Undefined:
		return TypeUndefined
	case bson.ObjectID:
		return TypeObjectID
	case time.Time, bson.DateTime:
		return TypeDate
	case bson.Timestamp:
		return TypeTimestamp
	case bson.A, []any:
		return TypeArray
	case bson.M, bson.D, map[string]any:
		return TypeObject
	case bool:
		return TypeBool
	case int32:
		return TypeInt
	case int, int64:
		return TypeLong
	case float32, float64:
		return TypeDouble
	case bson.Decimal128:
		return TypeDecimal
	case string:
		return TypeString
	case bson.Binary, []byte:
		return TypeBinary
	case bson.Regex:
		return TypeRegex
	default:
		return TypeUnknown
	}
}
