// Package validator implements the read-only path-expression validator
// (C4): it accepts or rejects free-form user-submitted expressions against
// an allow/deny keyword list and the schema registry. It never rewrites an
// expression — only accepts or rejects it (§4.4).
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rawcontext/engram-sub001/internal/schema"
)

// MaxSuggestionDistance bounds the edit-distance search for "did you mean"
// suggestions (§4.4.3: "bounded edit distance (≤ 2)").
const MaxSuggestionDistance = 2

// allowedLeadingKeywords is the set of trimmed, upper-cased leading
// keywords a submitted expression may begin with. Longer keywords are
// listed first so a literal-prefix scan prefers "OPTIONAL MATCH" over
// "MATCH" and "ORDER BY" over a bare "ORDER".
var allowedLeadingKeywords = []string{
	"OPTIONAL MATCH",
	"ORDER BY",
	"MATCH",
	"WITH",
	"RETURN",
	"LIMIT",
	"SKIP",
	"WHERE",
	"UNWIND",
	"CALL",
}

// denyTokens must not appear anywhere in a submitted expression, whole-word
// or as the prefix of a longer word, case-insensitively (§4.4 rule 2).
var denyTokens = []string{
	"CREATE", "MERGE", "DELETE", "DETACH", "SET", "REMOVE",
	"DROP", "ALTER", "CLEAR", "IMPORT", "EXPORT",
}

var denyPatterns = compileDenyPatterns(denyTokens)

func compileDenyPatterns(tokens []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok))
	}
	return out
}

// symbolPattern extracts node-label and edge-type tokens from an ASCII-arrow
// expression: `:Label` and `:TYPE_A|TYPE_B` references.
var symbolPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_|]*)`)

// ReadOnlyViolation reports a submitted expression containing a deny-listed
// write keyword.
type ReadOnlyViolation struct {
	Keyword string
}

func (e *ReadOnlyViolation) Error() string {
	return fmt.Sprintf("read-only violation: expression contains write keyword %q", e.Keyword)
}

// UnknownSymbol reports a node-label or edge-type token absent from the
// schema registry, with bounded-edit-distance suggestions when any exist.
type UnknownSymbol struct {
	Name        string
	Suggestions []string
}

func (e *UnknownSymbol) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown symbol %q", e.Name)
	}
	return fmt.Sprintf("unknown symbol %q (did you mean: %s?)", e.Name, strings.Join(e.Suggestions, ", "))
}

// InvalidLeadingKeyword reports an expression whose leading keyword is not
// in the allow set.
type InvalidLeadingKeyword struct {
	Found string
}

func (e *InvalidLeadingKeyword) Error() string {
	return fmt.Sprintf("invalid leading keyword %q: not in the read-only allow set", e.Found)
}

// Validate checks expr against the read-only allow/deny rules and the
// symbol catalogue in registry. Parameter placeholders ($p1, …) are ignored
// during validation (§4.4: "Parameter placeholders are ignored").
func Validate(expr string, registry *schema.Registry) error {
	trimmed := strings.TrimSpace(expr)

	if err := checkLeadingKeyword(trimmed); err != nil {
		return err
	}
	if err := checkDenyTokens(trimmed); err != nil {
		return err
	}
	if err := checkSymbols(trimmed, registry); err != nil {
		return err
	}
	return nil
}

func checkLeadingKeyword(trimmed string) error {
	upper := strings.ToUpper(trimmed)
	for _, kw := range allowedLeadingKeywords {
		if strings.HasPrefix(upper, kw) {
			rest := upper[len(kw):]
			if rest == "" || !isWordChar(rest[0]) {
				return nil
			}
		}
	}
	found := upper
	if sp := strings.IndexAny(upper, " \t\n("); sp >= 0 {
		found = upper[:sp]
	}
	return &InvalidLeadingKeyword{Found: found}
}

func isWordChar(b byte) bool {
	return b == '_' ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}

func checkDenyTokens(trimmed string) error {
	for i, pat := range denyPatterns {
		if pat.MatchString(trimmed) {
			return &ReadOnlyViolation{Keyword: denyTokens[i]}
		}
	}
	return nil
}

func checkSymbols(trimmed string, registry *schema.Registry) error {
	for _, match := range symbolPattern.FindAllStringSubmatch(trimmed, -1) {
		for _, symbol := range strings.Split(match[1], "|") {
			if registry.HasNodeLabel(symbol) || registry.HasEdgeType(symbol) {
				continue
			}
			return &UnknownSymbol{
				Name:        symbol,
				Suggestions: suggest(symbol, registry),
			}
		}
	}
	return nil
}

type candidate struct {
	name     string
	distance int
}

// suggest returns every node label and edge type within MaxSuggestionDistance
// of symbol, ordered by increasing distance then lexically.
func suggest(symbol string, registry *schema.Registry) []string {
	var candidates []candidate
	for _, label := range registry.NodeLabels() {
		if d := levenshtein(strings.ToUpper(symbol), strings.ToUpper(label), MaxSuggestionDistance); d <= MaxSuggestionDistance {
			candidates = append(candidates, candidate{label, d})
		}
	}
	for _, edgeType := range registry.EdgeTypes() {
		if d := levenshtein(strings.ToUpper(symbol), strings.ToUpper(edgeType), MaxSuggestionDistance); d <= MaxSuggestionDistance {
			candidates = append(candidates, candidate{edgeType, d})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].name < candidates[j].name
	})
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}
