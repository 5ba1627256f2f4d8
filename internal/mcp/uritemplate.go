package mcp

import (
	"fmt"
	"strings"
)

// URITemplate matches concrete resource URIs against an address pattern with
// {placeholder} segments, e.g. mongodb://collection/{database}/{collection}/schema.
// Placeholders span exactly one path segment.
type URITemplate struct {
	raw      string
	segments []templateSegment
}

type templateSegment struct {
	literal string
	varName string // non-empty for a placeholder segment
}

// ParseURITemplate parses an address pattern. Placeholders must occupy whole
// segments; an unterminated or empty placeholder is a configuration error.
func ParseURITemplate(pattern string) (*URITemplate, error) {
	t := &URITemplate{raw: pattern}
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, "{") {
			if !strings.HasSuffix(seg, "}") || len(seg) < 3 {
				return nil, fmt.Errorf("malformed placeholder %q in template %q", seg, pattern)
			}
			t.segments = append(t.segments, templateSegment{varName: seg[1 : len(seg)-1]})
			continue
		}
		if strings.ContainsAny(seg, "{}") {
			return nil, fmt.Errorf("placeholder must span a whole segment in template %q", pattern)
		}
		t.segments = append(t.segments, templateSegment{literal: seg})
	}
	return t, nil
}

// String returns the original pattern.
func (t *URITemplate) String() string { return t.raw }

// Variables returns the placeholder names in order of appearance.
func (t *URITemplate) Variables() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.varName != "" {
			names = append(names, seg.varName)
		}
	}
	return names
}

// Match reports whether uri structurally matches the template and, if so,
// returns the extracted placeholder bindings.
func (t *URITemplate) Match(uri string) (map[string]string, bool) {
	parts := strings.Split(uri, "/")
	if len(parts) != len(t.segments) {
		return nil, false
	}
	vars := make(map[string]string)
	for i, seg := range t.segments {
		if seg.varName != "" {
			if parts[i] == "" {
				return nil, false
			}
			vars[seg.varName] = parts[i]
			continue
		}
		if parts[i] != seg.literal {
			return nil, false
		}
	}
	return vars, true
}

// Expand substitutes placeholder values into the template.
func (t *URITemplate) Expand(vars map[string]string) string {
	parts := make([]string, len(t.segments))
	for i, seg := range t.segments {
		if seg.varName != "" {
			parts[i] = vars[seg.varName]
		} else {
			parts[i] = seg.literal
		}
	}
	return strings.Join(parts, "/")
}
