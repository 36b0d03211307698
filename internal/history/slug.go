// SPDX-License-Identifier: MIT

package history

import (
	"regexp"
	"strings"
	"unicode"
)

var reDash = regexp.MustCompile(`-+`)

// Slug converts a target name into a filesystem-safe, human-readable slug
// used for per-target log file names.
// Example: "GitHub API" → "github-api"
func Slug(name string) string {
	if name == "" {
		return "target"
	}

	s := strings.ToLower(name)

	// Replace common umlauts and accented characters before stripping.
	replacer := strings.NewReplacer(
		"ä", "ae",
		"ö", "oe",
		"ü", "ue",
		"ß", "ss",
		"à", "a",
		"á", "a",
		"â", "a",
		"è", "e",
		"é", "e",
		"ê", "e",
		"ì", "i",
		"í", "i",
		"î", "i",
		"ò", "o",
		"ó", "o",
		"ô", "o",
		"ù", "u",
		"ú", "u",
		"û", "u",
		"ç", "c",
		"ñ", "n",
	)
	s = replacer.Replace(s)

	var result strings.Builder
	lastWasDash := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
			lastWasDash = false
		} else if !lastWasDash {
			result.WriteRune('-')
			lastWasDash = true
		}
	}

	slug := strings.Trim(result.String(), "-")
	slug = reDash.ReplaceAllString(slug, "-")

	if len(slug) > 50 {
		slug = slug[:50]
		slug = strings.TrimRight(slug, "-")
	}

	if slug == "" {
		return "target"
	}
	return slug
}
