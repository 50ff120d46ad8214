// Package template implements the Template Expander: substitution of
// {{name}} tokens against a Variable Store. Expansion is a single pass,
// non-recursive — a resolved value that itself contains "{{x}}" is left
// untouched.
package template

import (
	"regexp"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
)

var tokenPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_.-]+)\}\}`)

// Expand replaces every {{ident}} occurrence in text using store, and
// reports every ident that had no entry in any scope. Unresolved idents
// are substituted with the empty string.
func Expand(text string, store *environment.Store) (output string, unresolved []string) {
	seen := map[string]bool{}
	output = tokenPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := tokenPattern.FindStringSubmatch(match)[1]
		value, _, found := store.Resolve(name)
		if !found && !seen[name] {
			seen[name] = true
			unresolved = append(unresolved, name)
		}
		return value
	})
	return output, unresolved
}

// ExpandKVPairs expands the value of every enabled pair in place, leaving
// disabled pairs untouched, and accumulates unresolved idents across all
// of them.
func ExpandKVPairs(pairs []collection.KVPair, store *environment.Store) (out []collection.KVPair, unresolved []string) {
	out = make([]collection.KVPair, len(pairs))
	for i, p := range pairs {
		out[i] = p
		if !p.Enabled {
			continue
		}
		var u []string
		out[i].Value, u = Expand(p.Value, store)
		unresolved = append(unresolved, u...)
	}
	return out, unresolved
}
