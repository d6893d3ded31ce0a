package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/loadstone/internal/rules"
)

// marshalMetadata converts a mod's metadata map to canonical JSON TEXT.
// Canonical form keeps the column byte-stable for identical metadata, so
// re-imports of an unchanged mod never dirty the row.
func marshalMetadata(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	m := make(map[string]any, len(meta))
	for k, v := range meta {
		m[k] = v
	}
	data, err := rules.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

// unmarshalMetadata parses JSON TEXT back into a metadata map.
// Empty objects come back as nil so a round-tripped mod compares equal to
// one that never had metadata.
func unmarshalMetadata(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

// marshalPredicates converts a rule's predicates to canonical JSON TEXT.
func marshalPredicates(preds []rules.Predicate) (string, error) {
	if len(preds) == 0 {
		return "[]", nil
	}
	list := make([]any, len(preds))
	for i, p := range preds {
		list[i] = map[string]any{
			"type":  string(p.Type),
			"value": p.Value,
		}
	}
	data, err := rules.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal predicates: %w", err)
	}
	return string(data), nil
}

// unmarshalPredicates parses JSON TEXT back into a predicate slice.
// Empty arrays come back as nil.
func unmarshalPredicates(data string) ([]rules.Predicate, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var preds []rules.Predicate
	if err := json.Unmarshal([]byte(data), &preds); err != nil {
		return nil, fmt.Errorf("unmarshal predicates: %w", err)
	}
	return preds, nil
}
