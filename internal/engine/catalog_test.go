package engine

import "testing"

func TestDefaultRulesOrder(t *testing.T) {
	wantOrder := []string{
		"EMAIL", "IBAN", "DNI_NIE", "CIF", "PHONE", "DATE_TEXT",
		"DATE", "LICENCIA", "COMPANY", "NAME_HEURISTIC", "NAME_FULL", "IP",
	}

	rules := DefaultRules()
	if len(rules) != len(wantOrder) {
		t.Fatalf("got %d rules, want %d", len(rules), len(wantOrder))
	}
	for i, rule := range rules {
		if rule.Name != wantOrder[i] {
			t.Errorf("rule %d = %s, want %s", i, rule.Name, wantOrder[i])
		}
	}
}

func TestDefaultRulesMatch(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  string
	}{
		{"EMAIL", "Contacto: ventas@acme.com para pedidos", "ventas@acme.com"},
		{"IBAN", "Cuenta ES91 2100 0418 4502 0005 1332 activa", "ES91 2100 0418 4502 0005 1332"},
		{"DNI_NIE", "con DNI 12345678Z presente", "12345678Z"},
		{"DNI_NIE", "NIE X1234567L del interesado", "X1234567L"},
		{"CIF", "CIF B1234567J de la sociedad", "B1234567J"},
		{"PHONE", "llamar al 611223344 por la tarde", "611223344"},
		{"PHONE", "móvil 0034611223344 disponible", "0034611223344"},
		{"DATE_TEXT", "firmado el 12 de enero de 2024 en la sede", "12 de enero de 2024"},
		{"DATE", "con fecha 01/02/2023 se acuerda", "01/02/2023"},
		{"LICENCIA", "licencia 12345-AB vigente", "12345-AB"},
		{"COMPANY", "Construcciones Pérez S.L. firmó el acuerdo", "Construcciones Pérez S.L"},
		{"NAME_FULL", "comparece Juan Pérez García en calidad de", "Juan Pérez García"},
		{"IP", "desde la dirección 192.168.1.100 se accedió", "192.168.1.100"},
	}

	rules := make(map[string]DetectionRule)
	for _, r := range DefaultRules() {
		// DNI_NIE appears twice in the table; same compiled rule both times.
		rules[r.Name] = r
	}

	for _, tt := range tests {
		t.Run(tt.rule+"/"+tt.want, func(t *testing.T) {
			rule, ok := rules[tt.rule]
			if !ok {
				t.Fatalf("rule %s not found", tt.rule)
			}
			got := rule.Pattern.FindString(tt.input)
			if got != tt.want {
				t.Errorf("FindString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameHeuristicCaptureGroup(t *testing.T) {
	var rule DetectionRule
	for _, r := range DefaultRules() {
		if r.Name == "NAME_HEURISTIC" {
			rule = r
			break
		}
	}
	if rule.Group != 1 {
		t.Fatalf("NAME_HEURISTIC group = %d, want 1", rule.Group)
	}

	tests := []struct {
		input string
		want  string
	}{
		{"comparece Sr. Juan Pérez como testigo", "Juan Pérez"},
		{"la Sra. María García López declara", "María García López"},
		{"firmado por D. Pedro Ruiz en Madrid", "Pedro Ruiz"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			match := rule.Pattern.FindStringSubmatch(tt.input)
			if match == nil {
				t.Fatalf("no match in %q", tt.input)
			}
			if match[1] != tt.want {
				t.Errorf("captured %q, want %q", match[1], tt.want)
			}
		})
	}
}
