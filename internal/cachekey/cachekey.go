// Package cachekey derives canonical cache keys from named parameter sets.
package cachekey

import (
	"sort"
	"strings"
)

// Kind is the category prefix of a key.
type Kind string

const (
	// Summary keys address AI file summaries
	Summary Kind = "summary"
	// Graph keys address fetched repository trees
	Graph Kind = "graph"
)

const (
	pairSeparator  = "|"
	valueSeparator = ":"
	kindSeparator  = "-"
)

// Make renders params as "<kind>-k1:v1|k2:v2|..." with keys in byte-wise
// lexicographic order, so the result does not depend on how the map was
// built. Values are used verbatim; callers normalize casing and whitespace.
func Make(kind Kind, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteString(kindSeparator)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(pairSeparator)
		}
		b.WriteString(k)
		b.WriteString(valueSeparator)
		b.WriteString(params[k])
	}
	return b.String()
}

// Params is an ordered builder for parameter sets. Empty values passed to
// Opt are dropped, which is how optional request fields stay out of a key.
type Params map[string]string

// Set adds k=v unconditionally.
func (p Params) Set(k, v string) Params {
	p[k] = v
	return p
}

// Opt adds k=v only when v is not empty.
func (p Params) Opt(k, v string) Params {
	if v != "" {
		p[k] = v
	}
	return p
}

// Key is shorthand for Make(kind, p).
func (p Params) Key(kind Kind) string {
	return Make(kind, p)
}
