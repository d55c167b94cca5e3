// Package transfer converts the store contents to and from the structured
// (JSON) and tabular (CSV) exchange formats.
package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fintrack/internal/core"
)

var (
	// ErrMalformedDocument is returned when the import is not valid JSON or
	// its collections do not decode.
	ErrMalformedDocument = errors.New("failed to parse JSON")
	// ErrMissingCollections is returned when either collection is absent or null.
	ErrMissingCollections = errors.New("invalid format: missing transactions/budgets")
)

// DecodeDocument reads a full structured export. Both collections must be
// present; an empty array counts as present, null does not.
func DecodeDocument(r io.Reader) (core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Document{}, fmt.Errorf("read document: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.Document{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if !present(raw, "transactions") || !present(raw, "budgets") {
		return core.Document{}, ErrMissingCollections
	}

	var doc core.Document
	if err := json.Unmarshal(raw["transactions"], &doc.Transactions); err != nil {
		return core.Document{}, fmt.Errorf("%w: transactions: %v", ErrMalformedDocument, err)
	}
	if err := json.Unmarshal(raw["budgets"], &doc.Budgets); err != nil {
		return core.Document{}, fmt.Errorf("%w: budgets: %v", ErrMalformedDocument, err)
	}
	return doc.Normalize(), nil
}

func present(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	return ok && !bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// EncodeDocument writes doc as indented JSON.
func EncodeDocument(w io.Writer, doc core.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc.Normalize()); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}
