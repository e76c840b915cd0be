package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/typekit/internal/ir"
)

// marshalValue converts an IR value to canonical JSON TEXT for storage.
func marshalValue(what string, v ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", what, err)
	}
	return string(data), nil
}

// marshalCatalog converts a catalog to JSON TEXT. ir.Catalog carries plain
// Go maps (method bindings), so it goes through json.Encoder with HTML
// escaping disabled; IRObject keys are emitted sorted.
func marshalCatalog(cat ir.Catalog) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(cat); err != nil {
		return "", fmt.Errorf("marshal catalog: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func unmarshalCatalog(data string) (ir.Catalog, error) {
	var cat ir.Catalog
	if err := json.Unmarshal([]byte(data), &cat); err != nil {
		return ir.Catalog{}, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return cat, nil
}

// unmarshalObject parses canonical JSON TEXT to IRObject.
// ir.IRObject.UnmarshalJSON decodes numbers via json.Number, so large
// integers survive the round trip.
func unmarshalObject(what, data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return obj, nil
}

func unmarshalArray(what, data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return ir.IRArray{}, nil
	}
	var arr ir.IRArray
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return arr, nil
}
