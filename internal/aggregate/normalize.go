package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Record is one decoded backend record. Numbers are kept as json.Number.
type Record = map[string]any

// DefaultListKeys are the wrapper keys checked after any resource-specific ones.
var DefaultListKeys = []string{"items", "data", "results", "rows"}

// maxWrapDepth bounds how many nested wrapper objects are unwrapped.
const maxWrapDepth = 2

// ExtractList finds the record sequence in a payload that is either a bare
// array or an object wrapping the array under one of keys (checked in order)
// followed by DefaultListKeys. Absent or null data yields an empty list.
// Non-object elements are dropped.
func ExtractList(raw json.RawMessage, keys ...string) ([]Record, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	order := append(append([]string{}, keys...), DefaultListKeys...)
	return toRecords(findList(v, order, maxWrapDepth)), nil
}

// ExtractObject decodes a payload that should be a single object. Anything
// else yields an empty record.
func ExtractObject(raw json.RawMessage) (Record, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		return obj, nil
	}
	return Record{}, nil
}

// EnsureContainerFields replaces absent or null container fields of each
// record with an empty list.
func EnsureContainerFields(records []Record, fields ...string) {
	for _, rec := range records {
		for _, f := range fields {
			if v, ok := rec[f]; !ok || v == nil {
				rec[f] = []any{}
			}
		}
	}
}

// JSONListSpec builds a Spec for a record-list resource backed by a raw JSON fetch.
func JSONListSpec(key string, fetch func(context.Context) (json.RawMessage, error), listKeys, containerFields []string) Spec {
	return Spec{
		Key: key,
		Fetch: func(ctx context.Context) (any, error) {
			raw, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			recs, err := ExtractList(raw, listKeys...)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			EnsureContainerFields(recs, containerFields...)
			return recs, nil
		},
		Fallback: []Record{},
	}
}

// JSONObjectSpec builds a Spec for a single-object resource.
func JSONObjectSpec(key string, fetch func(context.Context) (json.RawMessage, error)) Spec {
	return Spec{
		Key: key,
		Fetch: func(ctx context.Context) (any, error) {
			raw, err := fetch(ctx)
			if err != nil {
				return nil, err
			}
			obj, err := ExtractObject(raw)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
			return obj, nil
		},
		Fallback: Record{},
	}
}

func decode(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}

func findList(v any, keys []string, depth int) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range keys {
			inner, ok := t[k]
			if !ok || inner == nil {
				continue
			}
			if list, ok := inner.([]any); ok {
				return list
			}
			if depth > 0 {
				if _, ok := inner.(map[string]any); ok {
					if list := findList(inner, keys, depth-1); list != nil {
						return list
					}
				}
			}
		}
	}
	return nil
}

func toRecords(list []any) []Record {
	out := make([]Record, 0, len(list))
	for _, el := range list {
		if rec, ok := el.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}
