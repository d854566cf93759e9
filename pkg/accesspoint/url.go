package accesspoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vebgen/accesskit/pkg/apierr"
)

// PathArgs maps placeholder names in a path pattern to their values.
// Values are rendered with fmt.Sprint.
type PathArgs map[string]any

// placeholderRe matches "{name}" tokens. Names may use ASCII letters, digits,
// dashes and underscores.
var placeholderRe = regexp.MustCompile(`\{[A-Za-z0-9_-]+\}`)

// BuildURL substitutes the placeholders of pattern with values from args and
// joins the result to base.
//
// A trailing slash on base is dropped. When the substituted path does not
// start with a slash, a trailing slash is appended to it (not a leading one):
//
//	BuildURL("https://h/api/", "/users/{id}", PathArgs{"id": 7}) // https://h/api/users/7
//	BuildURL("https://h", "users", nil)                           // https://husers/
//
// An empty base returns ErrBaseURLMissing and a placeholder without a value
// in args returns ErrMissingParam.
func BuildURL(base, pattern string, args PathArgs) (string, error) {
	if base == "" {
		return "", apierr.ErrBaseURLMissing
	}

	var missing string
	suffix := placeholderRe.ReplaceAllStringFunc(pattern, func(token string) string {
		key := token[1 : len(token)-1]
		v, ok := args[key]
		if !ok || v == nil {
			if missing == "" {
				missing = key
			}
			return token
		}
		return fmt.Sprint(v)
	})
	if missing != "" {
		return "", fmt.Errorf("%w %q", apierr.ErrMissingParam, missing)
	}

	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(suffix, "/") {
		suffix += "/"
	}
	return base + suffix, nil
}

// Placeholders returns the placeholder names used in pattern, in order of
// appearance. Duplicates are reported once.
func Placeholders(pattern string) []string {
	tokens := placeholderRe.FindAllString(pattern, -1)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		key := tok[1 : len(tok)-1]
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
