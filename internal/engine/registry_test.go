package engine

import "testing"

func TestRegistryMinLength(t *testing.T) {
	r := newRegistry(nil, 3)

	if _, ok := r.tryRegister("NAME_FULL", "Al"); ok {
		t.Error("two-rune value should be rejected")
	}
	if _, ok := r.tryRegister("NAME_FULL", "  Jo  "); ok {
		t.Error("value below minimum after trimming should be rejected")
	}
	// Accented runes count as one rune each.
	if _, ok := r.tryRegister("DNI_NIE", "ñúé"); !ok {
		t.Error("three-rune accented value should be accepted")
	}
}

func TestRegistryDeduplication(t *testing.T) {
	r := newRegistry(nil, 3)

	first, ok := r.tryRegister("EMAIL", "ana@acme.com")
	if !ok {
		t.Fatal("first registration rejected")
	}
	if first.Placeholder != "[EMAIL_1]" {
		t.Errorf("placeholder = %s, want [EMAIL_1]", first.Placeholder)
	}
	if _, ok := r.tryRegister("EMAIL", "ana@acme.com"); ok {
		t.Error("duplicate value should be rejected")
	}
	if len(r.entities) != 1 {
		t.Errorf("entities = %d, want 1", len(r.entities))
	}
}

func TestRegistryIgnoreSetCaseInsensitive(t *testing.T) {
	r := newRegistry([]string{"Juan Pérez", "  ACME  "}, 3)

	if _, ok := r.tryRegister("NAME_FULL", "juan pérez"); ok {
		t.Error("ignored value should be rejected regardless of case")
	}
	if _, ok := r.tryRegister("NAME_FULL", "JUAN PÉREZ"); ok {
		t.Error("ignored value should be rejected regardless of case")
	}
	if _, ok := r.tryRegister("COMPANY", "acme"); ok {
		t.Error("ignore entries should be trimmed before comparison")
	}
	if _, ok := r.tryRegister("NAME_FULL", "Pedro Ruiz"); !ok {
		t.Error("non-ignored value should be accepted")
	}
}

func TestRegistryBlacklistOnlyAppliesToNameFull(t *testing.T) {
	r := newRegistry(nil, 3)

	if _, ok := r.tryRegister("NAME_FULL", "Detective García"); ok {
		t.Error("NAME_FULL containing a blacklisted word should be rejected")
	}
	if _, ok := r.tryRegister("NAME_FULL", "Informe Mensual Enero"); ok {
		t.Error("NAME_FULL containing blacklisted words should be rejected")
	}
	// The blacklist is scoped to NAME_FULL; other categories keep the value.
	if _, ok := r.tryRegister("COMPANY", "Detective García S.L"); !ok {
		t.Error("COMPANY value should not be blacklist-filtered")
	}
}

func TestRegistryCounterPerRootType(t *testing.T) {
	r := newRegistry(nil, 3)

	cases := []struct {
		category string
		value    string
		want     string
	}{
		{"DNI_NIE", "12345678Z", "[DNI_1]"},
		{"DNI_NIE", "87654321X", "[DNI_2]"},
		{"DATE_TEXT", "12 de enero de 2024", "[DATE_1]"},
		{"DATE", "01/02/2023", "[DATE_2]"},
		{"NAME_FULL", "Juan Pérez", "[NAME_1]"},
		{"NAME_HEURISTIC", "Ana García", "[NAME_2]"},
	}
	for _, tc := range cases {
		entity, ok := r.tryRegister(tc.category, tc.value)
		if !ok {
			t.Fatalf("tryRegister(%s, %q) rejected", tc.category, tc.value)
		}
		if entity.Placeholder != tc.want {
			t.Errorf("tryRegister(%s, %q) = %s, want %s", tc.category, tc.value, entity.Placeholder, tc.want)
		}
	}
}

func TestRegistrySeedReservesCounter(t *testing.T) {
	r := newRegistry(nil, 3)
	r.seed([]Entity{
		{Type: "COMPANY", OriginalValue: "Acme Corp", Placeholder: "[EMPRESA_9]"},
	})

	entity, ok := r.tryRegister("EMPRESA", "Otra Empresa")
	if !ok {
		t.Fatal("registration after seed rejected")
	}
	if entity.Placeholder != "[EMPRESA_10]" {
		t.Errorf("placeholder = %s, want [EMPRESA_10]", entity.Placeholder)
	}
}

func TestRegistrySeedMarksForced(t *testing.T) {
	r := newRegistry(nil, 3)
	r.seed([]Entity{
		{Type: "NAME", OriginalValue: "Ana", Placeholder: "[NAME_1]"},
	})

	if len(r.entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(r.entities))
	}
	if !r.entities[0].Forced {
		t.Error("seeded entity should be marked forced")
	}
	if _, ok := r.tryRegister("NAME_FULL", "Ana"); ok {
		t.Error("forced value should already be claimed")
	}
}

func TestRegistrySeedDuplicateValueFirstWins(t *testing.T) {
	r := newRegistry(nil, 3)
	r.seed([]Entity{
		{Type: "NAME", OriginalValue: "Ana", Placeholder: "[NAME_1]"},
		{Type: "NAME", OriginalValue: "Ana", Placeholder: "[NAME_2]"},
	})

	if len(r.pairs) != 1 {
		t.Fatalf("pairs = %d, want 1", len(r.pairs))
	}
	if r.pairs[0].placeholder != "[NAME_1]" {
		t.Errorf("placeholder = %s, want [NAME_1]", r.pairs[0].placeholder)
	}
	// Both numbers are still reserved for the shared root.
	next, ok := r.tryRegister("NAME_FULL", "Eva Ruiz")
	if !ok {
		t.Fatal("registration after seed rejected")
	}
	if next.Placeholder != "[NAME_3]" {
		t.Errorf("placeholder = %s, want [NAME_3]", next.Placeholder)
	}
}

func TestRootType(t *testing.T) {
	cases := map[string]string{
		"DNI_NIE":        "DNI",
		"DATE_TEXT":      "DATE",
		"NAME_HEURISTIC": "NAME",
		"NAME_FULL":      "NAME",
		"EMAIL":          "EMAIL",
		"IP":             "IP",
	}
	for category, want := range cases {
		if got := rootType(category); got != want {
			t.Errorf("rootType(%s) = %s, want %s", category, got, want)
		}
	}
}
