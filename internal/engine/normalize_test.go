package engine

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "control characters removed",
			input: "Hola\x00Mun\x08do\x1F",
			want:  "HolaMundo",
		},
		{
			name:  "delete character removed",
			input: "texto\x7Flegal",
			want:  "textolegal",
		},
		{
			name:  "crlf becomes lf",
			input: "línea uno\r\nlínea dos",
			want:  "línea uno\nlínea dos",
		},
		{
			name:  "tab and newline survive",
			input: "a\tb\nc",
			want:  "a\tb\nc",
		},
		{
			name:  "surrounding whitespace trimmed",
			input: "  informe  \n",
			want:  "informe",
		},
		{
			name:  "accented text untouched",
			input: "Dña. María Pérez firmó",
			want:  "Dña. María Pérez firmó",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
