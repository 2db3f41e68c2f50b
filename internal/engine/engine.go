package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/anoncore/anoncore/internal/config"
	"github.com/anoncore/anoncore/internal/logger"
	"go.uber.org/zap"
)

// ErrEmptyMapping is returned by Reverse when the supplied mapping has no
// entries. Reversal without a mapping must block rather than emit text with
// unresolved placeholders.
var ErrEmptyMapping = errors.New("mapping is empty")

// Engine runs the pseudonymization pipeline: normalize, scan the pattern
// catalog in order, register entities, rewrite. It holds only compiled rules
// and configuration; every run allocates its own registry, so a single Engine
// is safe for concurrent use.
type Engine struct {
	rules   []DetectionRule
	enabled map[string]bool
	logger  *logger.Logger
	config  config.EngineConfig
}

// New creates an Engine with the default pattern catalog.
func New(cfg config.EngineConfig, log *logger.Logger) (*Engine, error) {
	e := &Engine{
		rules:   DefaultRules(),
		enabled: make(map[string]bool),
		logger:  log,
		config:  cfg,
	}

	if err := e.configureDetectors(cfg.Detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	log.Info("Pseudonymization engine initialized",
		zap.Int("total_rules", len(e.rules)),
		zap.Int("enabled_rules", e.countEnabledRules()),
		zap.Int("min_value_length", e.minValueLength()),
	)

	return e, nil
}

// configureDetectors enables rules by name; "all" enables every rule.
func (e *Engine) configureDetectors(detectors []string) error {
	for _, rule := range e.rules {
		e.enabled[rule.Name] = false
	}

	for _, name := range detectors {
		if name == "all" {
			for _, rule := range e.rules {
				e.enabled[rule.Name] = true
			}
			continue
		}

		found := false
		for _, rule := range e.rules {
			if rule.Name == name {
				e.enabled[rule.Name] = true
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown detector: %s", name)
		}
	}

	return nil
}

func (e *Engine) minValueLength() int {
	if e.config.MinValueLength > 0 {
		return e.config.MinValueLength
	}
	return 3
}

// Anonymize normalizes text, seeds the run's registry with forced entities,
// scans the catalog in priority order and rewrites every registered value to
// its placeholder. Inputs are not mutated and the returned result is complete
// or the call fails atomically.
func (e *Engine) Anonymize(text string, forced []Entity, ignored []string) (Result, error) {
	source := Normalize(text)

	reg := newRegistry(ignored, e.minValueLength())
	reg.seed(forced)

	for _, rule := range e.rules {
		if !e.enabled[rule.Name] {
			continue
		}

		registered := 0
		for _, match := range rule.Pattern.FindAllStringSubmatch(source, -1) {
			value := match[0]
			if rule.Group > 0 && rule.Group < len(match) {
				value = match[rule.Group]
			}
			if _, ok := reg.tryRegister(rule.Name, value); ok {
				registered++
			}
		}

		if registered > 0 {
			e.logger.Debug("Entities registered",
				zap.String("rule", rule.Name),
				zap.Int("count", registered),
			)
		}
	}

	if err := checkBijection(reg.entities); err != nil {
		return Result{}, err
	}

	// Longest value first, stable on ties, so a registered value that is a
	// substring of another never corrupts the longer one's substitution.
	pairs := make([]pair, len(reg.pairs))
	copy(pairs, reg.pairs)
	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].original) > len(pairs[j].original)
	})

	processed := source
	for _, p := range pairs {
		processed = strings.ReplaceAll(processed, p.original, p.placeholder)
	}

	return Result{
		OriginalText:      source,
		PseudonymizedText: processed,
		EntitiesFound:     reg.entities,
	}, nil
}

// Reverse restores original text from pseudonymized text plus an exported
// mapping. Placeholders are replaced longest first, mirroring Anonymize, so
// non-disjoint placeholder strings cannot be restored incorrectly.
func (e *Engine) Reverse(text string, mapping []Entity) (string, error) {
	if len(mapping) == 0 {
		return "", ErrEmptyMapping
	}
	for i, entity := range mapping {
		if entity.OriginalValue == "" || entity.Placeholder == "" {
			return "", fmt.Errorf("mapping entry %d is incomplete", i)
		}
	}

	sorted := make([]Entity, len(mapping))
	copy(sorted, mapping)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Placeholder) > len(sorted[j].Placeholder)
	})

	restored := text
	for _, entity := range sorted {
		restored = strings.ReplaceAll(restored, entity.Placeholder, entity.OriginalValue)
	}

	return restored, nil
}

// checkBijection guards the one-value-one-placeholder invariant. With the
// registry implemented correctly this is unreachable for auto-detected
// entities; it catches contradictory forced declarations.
func checkBijection(entities []Entity) error {
	byPlaceholder := make(map[string]string, len(entities))
	for _, e := range entities {
		if prev, ok := byPlaceholder[e.Placeholder]; ok && prev != e.OriginalValue {
			return fmt.Errorf("placeholder %s assigned to two distinct values", e.Placeholder)
		}
		byPlaceholder[e.Placeholder] = e.OriginalValue
	}
	return nil
}

func (e *Engine) countEnabledRules() int {
	count := 0
	for _, enabled := range e.enabled {
		if enabled {
			count++
		}
	}
	return count
}

// EnabledRules returns the names of currently enabled detection rules.
func (e *Engine) EnabledRules() []string {
	var names []string
	for _, rule := range e.rules {
		if e.enabled[rule.Name] {
			names = append(names, rule.Name)
		}
	}
	return names
}
