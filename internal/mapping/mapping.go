// Package mapping handles the exported mapping file: a JSON array of entity
// records that is the sole artifact needed to reverse an anonymization.
// Validation distinguishes "no mapping provided" from "mapping present but
// malformed" so callers can report the two conditions separately.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/anoncore/anoncore/internal/engine"
)

// ErrMalformed marks a mapping that parsed as JSON but is not a valid array
// of entity records. Per-entry failures wrap it.
var ErrMalformed = errors.New("malformed mapping")

// placeholderPattern is the required shape of every exported placeholder.
var placeholderPattern = regexp.MustCompile(`^\[[A-Z]+_\d+\]$`)

// EntityError reports a single invalid entry in an otherwise parseable mapping.
type EntityError struct {
	Index  int
	Field  string
	Reason string
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("mapping entry %d: field %q %s", e.Index, e.Field, e.Reason)
}

func (e *EntityError) Unwrap() error { return ErrMalformed }

// Decode parses and validates an exported mapping file.
func Decode(data []byte) ([]engine.Entity, error) {
	var entities []engine.Entity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// Encode serializes entities as the exported mapping file format.
func Encode(entities []engine.Entity) ([]byte, error) {
	if entities == nil {
		entities = []engine.Entity{}
	}
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode mapping: %w", err)
	}
	return data, nil
}

// Validate checks that a mapping can drive a reversal: non-empty, every entry
// with an original value and a well-formed placeholder. The type field may be
// absent; reversal does not need it.
func Validate(entities []engine.Entity) error {
	if len(entities) == 0 {
		return engine.ErrEmptyMapping
	}
	for i, e := range entities {
		if e.OriginalValue == "" {
			return &EntityError{Index: i, Field: "originalValue", Reason: "is empty"}
		}
		if e.Placeholder == "" {
			return &EntityError{Index: i, Field: "placeholder", Reason: "is empty"}
		}
		if !placeholderPattern.MatchString(e.Placeholder) {
			return &EntityError{Index: i, Field: "placeholder", Reason: "does not match [TYPE_N]"}
		}
	}
	return nil
}
