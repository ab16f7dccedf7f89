package expand

import (
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain/language"
)

// Ruleset maps a normalized term to its ordered substitution candidates.
// Order matters: variants are emitted in ruleset order and the expander
// cap cuts from the tail, so put the strongest synonym first.
type Ruleset map[string][]string

// builtinRules returns the default per-language synonym tables. Keys and
// values are already normalized (lowercase, no diacritics).
func builtinRules() map[language.Language]Ruleset {
	return map[language.Language]Ruleset{
		language.English: {
			"error":     {"failure", "problem"},
			"fix":       {"resolve", "repair"},
			"delete":    {"remove"},
			"create":    {"add"},
			"install":   {"setup"},
			"config":    {"configuration"},
			"configure": {"set up"},
			"docs":      {"documentation"},
			"api":       {"endpoint"},
			"auth":      {"authentication"},
			"login":     {"sign in"},
			"upgrade":   {"update"},
		},
		language.Indonesian: {
			"cara":      {"metode"},
			"masalah":   {"kendala"},
			"hapus":     {"buang"},
			"buat":      {"bikin"},
			"gunakan":   {"pakai"},
			"kesalahan": {"galat"},
			"perbaiki":  {"betulkan"},
			"pasang":    {"instal"},
		},
	}
}

// mergeRules layers extra tables over the built-ins. Extra entries replace
// built-in entries for the same term rather than appending to them.
func mergeRules(extra map[language.Language]Ruleset) map[language.Language]Ruleset {
	merged := builtinRules()
	for lang, rules := range extra {
		if merged[lang] == nil {
			merged[lang] = Ruleset{}
		}
		for term, syns := range rules {
			merged[lang][term] = syns
		}
	}
	return merged
}

// substitutions generates one variant per (matched word, synonym) pair.
// Words are matched at field boundaries against the normalized query, so
// "cat" never rewrites "catalog". Output order follows word order in the
// query, then ruleset order, keeping expansion deterministic.
func (r Ruleset) substitutions(normalized string) []string {
	if len(r) == 0 {
		return nil
	}
	fields := strings.Fields(normalized)
	var out []string
	for i, word := range fields {
		for _, syn := range r[word] {
			out = append(out, replaceField(fields, i, syn))
		}
	}
	return out
}

func replaceField(fields []string, i int, repl string) string {
	out := make([]string, len(fields))
	copy(out, fields)
	out[i] = repl
	return strings.Join(out, " ")
}
