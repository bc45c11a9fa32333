package template

import (
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// curatedAliases maps canonical parameter names (lower-cased) to the
// alternate surface strings lab reports are known to print for them.
// Aliases are literal substrings, not patterns.
var curatedAliases = map[string][]string{
	"wbc count":                {"wbc", "white blood cell", "total leucocyte count", "tlc", "leucocyte count"},
	"rbc count":                {"rbc", "red blood cell", "total rbc", "erythrocyte count"},
	"hemoglobin":               {"haemoglobin", "hgb", "hb"},
	"packed cell volume [pcv]": {"haematocrit", "hematocrit", "hct"},
	"platelet count":           {"platelets", "plt"},
	"neutrophils":              {"neutrophil", "polymorphs"},
	"lymphocytes":              {"lymphocyte", "lymph"},
	"eosinophils":              {"eosinophil", "eos"},
	"monocytes":                {"monocyte", "mono"},
	"basophils":                {"basophil", "baso"},
	"mylocytes":                {"myelocyte", "myelocytes"},
	"blast":                    {"blast cells", "blasts"},
	"inr":                      {"international normalized ratio", "international normalised ratio"},
	"control":                  {"mean normal", "control value"},
	"esr":                      {"erythrocyte sedimentation rate", "sed rate"},
}

// Match reports that a parameter's alias occurs somewhere in a text.
type Match struct {
	Parameter string
	Alias     string
}

// Terms is the term variation table: canonical parameter name -> alias set,
// with a precompiled Aho-Corasick matcher that finds every alias occurrence
// in a candidate line or cell text in a single pass. Matching is
// case-insensitive substring containment; when several aliases could match
// the same span, any match is accepted.
type Terms struct {
	aliases  map[string][]string
	matcher  *ahocorasick.Matcher
	patterns []string
	owners   [][]string // pattern index -> canonical names carrying it
}

// NewTerms builds the variation table for every parameter in the template.
// Every parameter is covered by at least its own name; a parameter that
// yields no usable alias is a configuration error.
func NewTerms(t *Template) (*Terms, error) {
	tv := &Terms{aliases: make(map[string][]string)}
	patternIndex := make(map[string]int)

	addAlias := func(param, alias string) {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			return
		}
		for _, existing := range tv.aliases[param] {
			if existing == alias {
				return
			}
		}
		tv.aliases[param] = append(tv.aliases[param], alias)

		idx, ok := patternIndex[alias]
		if !ok {
			idx = len(tv.patterns)
			patternIndex[alias] = idx
			tv.patterns = append(tv.patterns, alias)
			tv.owners = append(tv.owners, nil)
		}
		for _, owner := range tv.owners[idx] {
			if owner == param {
				return
			}
		}
		tv.owners[idx] = append(tv.owners[idx], param)
	}

	for _, param := range t.ParameterNames() {
		for _, v := range variations(param) {
			addAlias(param, v)
		}
		for _, v := range curatedAliases[strings.ToLower(param)] {
			addAlias(param, v)
		}
		if len(tv.aliases[param]) == 0 {
			return nil, &ConfigError{Err: fmt.Errorf("parameter %q has no usable alias", param)}
		}
	}

	bytePatterns := make([][]byte, len(tv.patterns))
	for i, p := range tv.patterns {
		bytePatterns[i] = []byte(p)
	}
	tv.matcher = ahocorasick.NewMatcher(bytePatterns)
	return tv, nil
}

// variations derives alias strings from a canonical name: the name itself,
// the name with a trailing " Count" stripped, and a bracketed abbreviation
// split into base name and abbreviation ("Packed Cell Volume [PCV]" yields
// both "packed cell volume" and "pcv").
func variations(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	out := []string{lower}
	if s := strings.TrimSuffix(lower, " count"); s != lower {
		out = append(out, strings.TrimSpace(s))
	}
	if open := strings.Index(lower, "["); open >= 0 {
		if close := strings.Index(lower[open:], "]"); close > 0 {
			base := strings.TrimSpace(lower[:open])
			abbr := strings.TrimSpace(lower[open+1 : open+close])
			if base != "" {
				out = append(out, base)
			}
			if abbr != "" {
				out = append(out, abbr)
			}
		}
	}
	return out
}

// AliasesFor returns the alias set for a canonical parameter name. The set
// always contains at least the lower-cased name itself.
func (t *Terms) AliasesFor(parameter string) []string {
	return t.aliases[parameter]
}

// Occurrences returns one Match per parameter whose alias occurs anywhere in
// the text. Which alias is reported for a parameter with several matching
// aliases is unspecified.
func (t *Terms) Occurrences(text string) []Match {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	hits := t.matcher.Match([]byte(lower))
	if len(hits) == 0 {
		return nil
	}

	var matches []Match
	seen := make(map[string]bool)
	for _, idx := range hits {
		if idx < 0 || idx >= len(t.patterns) {
			continue
		}
		for _, param := range t.owners[idx] {
			if seen[param] {
				continue
			}
			seen[param] = true
			matches = append(matches, Match{Parameter: param, Alias: t.patterns[idx]})
		}
	}
	return matches
}
