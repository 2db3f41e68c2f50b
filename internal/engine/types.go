package engine

// Entity is a single sensitive value paired with its assigned placeholder.
// Auto-detected entities carry the root type of the rule that matched them;
// forced entities are declared by the caller before a run.
type Entity struct {
	Type          string `json:"type"`
	OriginalValue string `json:"originalValue"`
	Placeholder   string `json:"placeholder"`
	Forced        bool   `json:"forced,omitempty"`
}

// Result contains the outcome of a single anonymization run.
type Result struct {
	OriginalText      string   `json:"originalText"`
	PseudonymizedText string   `json:"pseudonymizedText"`
	EntitiesFound     []Entity `json:"entitiesFound"`
}

// Mode identifies the direction of a run.
type Mode string

const (
	// ModeAnon is the forward operation: original text to redacted text plus mapping.
	ModeAnon Mode = "ANON"
	// ModeRevert is the inverse operation: redacted text plus mapping to original text.
	ModeRevert Mode = "REVERT"
)
