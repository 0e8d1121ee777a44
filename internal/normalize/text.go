package normalize

import (
	"regexp"
	"strings"
)

// \s alone is ASCII only; exports often carry no-break and other Unicode
// spaces, which count as whitespace here.
var (
	nameStripRegex   = regexp.MustCompile(`[^\w\s\p{Z}\x{FEFF}\-']`)
	whitespaceRegex  = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	emailShapeRegex  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	genderStripRegex = regexp.MustCompile(`[^\w\s\p{Z}\x{FEFF}]`)
	tagsStripRegex   = regexp.MustCompile(`[^\w\s\p{Z}\x{FEFF},\-]`)
)

var genderSynonyms = map[string]string{
	"m": "Male", "male": "Male", "man": "Male", "boy": "Male",
	"gent": "Male", "gentleman": "Male", "sir": "Male",

	"f": "Female", "female": "Female", "woman": "Female", "girl": "Female",
	"lady": "Female", "madam": "Female",

	"o": "Other", "other": "Other", "non-binary": "Other", "nonbinary": "Other",
	"nb": "Other", "neutral": "Other", "n": "Other",
}

// Name keeps letters, digits, underscores, hyphens, apostrophes and single
// spaces, and capitalizes the first letter of every word.
func Name(raw string) string {
	name := nameStripRegex.ReplaceAllString(raw, "")
	name = strings.TrimSpace(whitespaceRegex.ReplaceAllString(name, " "))
	if name == "" {
		return ""
	}

	words := strings.Split(name, " ")
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// Email lowercases raw and drops whitespace. Values without a user@host.tld
// shape yield "".
func Email(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	email = whitespaceRegex.ReplaceAllString(email, "")
	if !emailShapeRegex.MatchString(email) {
		return ""
	}
	return email
}

// Gender maps common spellings to Male, Female or Other. Unknown values are
// returned cleaned with the first letter capitalized.
func Gender(raw string) string {
	g := strings.ToLower(strings.TrimSpace(genderStripRegex.ReplaceAllString(raw, "")))
	if g == "" {
		return ""
	}
	if canonical, ok := genderSynonyms[g]; ok {
		return canonical
	}
	return capitalize(g)
}

// Tags collapses whitespace and removes everything except word characters,
// spaces, commas and hyphens. Commas separate tags.
func Tags(raw string) string {
	tags := strings.TrimSpace(whitespaceRegex.ReplaceAllString(raw, " "))
	return tagsStripRegex.ReplaceAllString(tags, "")
}

// capitalize upper-cases the first byte; callers only pass ASCII-cleaned text.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
