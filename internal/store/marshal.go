package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ssmgen/internal/canon"
)

// marshalCanonical converts v to canonical JSON TEXT for storage.
func marshalCanonical(what string, v any) (string, error) {
	data, err := canon.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// marshalRow converts a feature row to a JSON array TEXT. Flat numeric
// arrays are already deterministic under encoding/json.
func marshalRow(row []float32) (string, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("marshal row: %w", err)
	}
	return string(data), nil
}

// unmarshalText parses JSON TEXT into out.
func unmarshalText(what, data string, out any) error {
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
