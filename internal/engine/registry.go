package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// placeholderShape is the exported placeholder format, [ROOTTYPE_N].
var placeholderShape = regexp.MustCompile(`^\[([A-Z]+)_(\d+)\]$`)

// pair is one registered originalValue -> placeholder substitution.
type pair struct {
	original    string
	placeholder string
}

// registry deduplicates, filters and numbers candidate matches into entities.
// One instance is local to a single run and discarded afterward; runs never
// share registry state.
type registry struct {
	byOriginal map[string]string
	pairs      []pair
	counters   map[string]int
	ignored    map[string]struct{}
	entities   []Entity
	minLength  int
}

func newRegistry(ignored []string, minLength int) *registry {
	set := make(map[string]struct{}, len(ignored))
	for _, v := range ignored {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return &registry{
		byOriginal: make(map[string]string),
		counters:   make(map[string]int),
		ignored:    set,
		minLength:  minLength,
	}
}

// rootType truncates a rule category at its first underscore, so that e.g.
// DNI_NIE and DNI share one placeholder counter.
func rootType(category string) string {
	if i := strings.Index(category, "_"); i >= 0 {
		return category[:i]
	}
	return category
}

// seed registers forced entities unconditionally and reserves their counter
// slots so auto-detection never reuses a forced placeholder number.
func (r *registry) seed(forced []Entity) {
	for _, e := range forced {
		e.Forced = true
		if _, exists := r.byOriginal[e.OriginalValue]; !exists {
			r.byOriginal[e.OriginalValue] = e.Placeholder
			r.pairs = append(r.pairs, pair{original: e.OriginalValue, placeholder: e.Placeholder})
			r.entities = append(r.entities, e)
		}

		root := rootType(e.Type)
		reserved := 1
		if m := placeholderShape.FindStringSubmatch(e.Placeholder); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil && n > reserved {
				reserved = n
			}
			// The placeholder's own root wins over the declared type when
			// they disagree; the counter guards the alias namespace.
			root = m[1]
		}
		if r.counters[root] < reserved {
			r.counters[root] = reserved
		}
	}
}

// tryRegister filters a raw match and, if it survives, assigns the next
// placeholder of its root type. All rejections are silent: a value that fails
// a check simply does not become an entity.
func (r *registry) tryRegister(category, rawValue string) (Entity, bool) {
	value := strings.TrimSpace(rawValue)
	if value == "" || utf8.RuneCountInString(value) < r.minLength {
		return Entity{}, false
	}
	if _, claimed := r.byOriginal[value]; claimed {
		return Entity{}, false
	}
	if _, skip := r.ignored[strings.ToLower(value)]; skip {
		return Entity{}, false
	}
	if category == "NAME_FULL" {
		for _, word := range strings.Fields(value) {
			if isBlacklistedWord(word) {
				return Entity{}, false
			}
		}
	}

	root := rootType(category)
	r.counters[root]++
	entity := Entity{
		Type:          root,
		OriginalValue: value,
		Placeholder:   fmt.Sprintf("[%s_%d]", root, r.counters[root]),
	}
	r.byOriginal[value] = entity.Placeholder
	r.pairs = append(r.pairs, pair{original: value, placeholder: entity.Placeholder})
	r.entities = append(r.entities, entity)
	return entity, true
}
