// Package wire implements the versioned envelope encoding used for every
// payload the platform persists in its key-value store. The format and
// version are recorded in the envelope at write time, so readers dispatch on
// the tag instead of sniffing bytes. Timestamps are encoded as RFC 3339 with
// nanosecond precision (encoding/json's native time.Time form) and float64
// values round-trip exactly via the shortest-representation encoder.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FormatJSON is the only encoding currently written. New formats get new
// tags; a reader never guesses.
const FormatJSON = "json"

// Version is the current envelope payload version.
const Version = 1

var (
	// ErrMalformed indicates the envelope itself could not be parsed.
	ErrMalformed = errors.New("wire: malformed envelope")

	// ErrUnknownFormat indicates an envelope written with a format this
	// reader does not implement.
	ErrUnknownFormat = errors.New("wire: unknown format")

	// ErrUnknownVersion indicates an envelope version newer than this
	// reader understands.
	ErrUnknownVersion = errors.New("wire: unknown version")
)

// Envelope wraps a serialized payload with its encoding tag.
type Envelope struct {
	Format  string          `json:"format"`
	Version int             `json:"v"`
	Data    json.RawMessage `json:"data"`
}

// Encode marshals v and wraps it in a tagged envelope.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	raw, err := json.Marshal(Envelope{Format: FormatJSON, Version: Version, Data: data})
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return raw, nil
}

// Decode unwraps an envelope and unmarshals its payload into v. The format
// and version tags are checked before the payload is touched.
func Decode(raw []byte, v any) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, env.Format)
	}
	if env.Version != Version {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, env.Version)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: payload: %v", ErrMalformed, err)
	}
	return nil
}
