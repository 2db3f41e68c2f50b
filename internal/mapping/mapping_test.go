package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoncore/anoncore/internal/engine"
)

func TestDecodeValid(t *testing.T) {
	data := []byte(`[
	  {"type": "DNI", "originalValue": "12345678Z", "placeholder": "[DNI_1]"},
	  {"type": "NAME", "originalValue": "Juan Pérez", "placeholder": "[NAME_1]", "forced": true}
	]`)

	entities, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "12345678Z", entities[0].OriginalValue)
	assert.Equal(t, "[DNI_1]", entities[0].Placeholder)
	assert.False(t, entities[0].Forced)
	assert.True(t, entities[1].Forced)
}

func TestDecodeTypeOptional(t *testing.T) {
	data := []byte(`[{"originalValue": "12345678Z", "placeholder": "[DNI_1]"}]`)

	entities, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, entities[0].Type)
}

func TestDecodeEmptyArray(t *testing.T) {
	_, err := Decode([]byte(`[]`))
	assert.ErrorIs(t, err, engine.ErrEmptyMapping)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestDecodeNotAnArray(t *testing.T) {
	for _, data := range []string{`{}`, `"hola"`, `42`, `{"originalValue":"x"}`} {
		_, err := Decode([]byte(data))
		assert.ErrorIs(t, err, ErrMalformed, "input %s", data)
		assert.NotErrorIs(t, err, engine.ErrEmptyMapping, "input %s", data)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`[{`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestValidateRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name     string
		entities []engine.Entity
		field    string
	}{
		{
			name:     "missing original value",
			entities: []engine.Entity{{Placeholder: "[DNI_1]"}},
			field:    "originalValue",
		},
		{
			name:     "missing placeholder",
			entities: []engine.Entity{{OriginalValue: "12345678Z"}},
			field:    "placeholder",
		},
		{
			name:     "placeholder without brackets",
			entities: []engine.Entity{{OriginalValue: "12345678Z", Placeholder: "DNI_1"}},
			field:    "placeholder",
		},
		{
			name:     "placeholder with lowercase type",
			entities: []engine.Entity{{OriginalValue: "12345678Z", Placeholder: "[dni_1]"}},
			field:    "placeholder",
		},
		{
			name:     "placeholder without number",
			entities: []engine.Entity{{OriginalValue: "12345678Z", Placeholder: "[DNI_]"}},
			field:    "placeholder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.entities)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)

			var entityErr *EntityError
			require.ErrorAs(t, err, &entityErr)
			assert.Equal(t, tt.field, entityErr.Field)
			assert.Equal(t, 0, entityErr.Index)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	entities := []engine.Entity{
		{Type: "EMAIL", OriginalValue: "ana@acme.com", Placeholder: "[EMAIL_1]"},
		{Type: "NAME", OriginalValue: "Ana García", Placeholder: "[NAME_1]", Forced: true},
	}

	data, err := Encode(entities)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, entities, decoded)
}

func TestEncodeNilIsEmptyArray(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}
