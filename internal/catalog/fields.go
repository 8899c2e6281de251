package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minYear = 1000
	maxYear = 9999
)

// ParseYear accepts a four-digit year in [1000, 9999]. Anything else is unknown (nil).
func ParseYear(text string) *int {
	year, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || year < minYear || year > maxYear {
		return nil
	}
	return &year
}

// ParsePartiture maps the catalog spellings to the tri-state flag. Matching is case-sensitive.
func ParsePartiture(text string) Partiture {
	switch strings.TrimSpace(text) {
	case "yes", "True":
		return PartitureYes
	case "no", "False":
		return PartitureNo
	default:
		return PartitureUnknown
	}
}

const noRangePrefix = "None,"

// ParseVoice splits a voice field into range and name.
//
// Rules, first match wins:
//   - text containing "--": range is the part before the first comma, name the rest
//   - text starting with "None,": no range, name is the remainder
//   - text whose first comma-separated part is a short token ("S, Soprano"): that token is the range
//   - otherwise the whole text is the name
func ParseVoice(text string) Voice {
	text = strings.TrimSpace(text)

	if strings.Contains(text, "--") {
		rangePart, rest, _ := strings.Cut(text, ",")
		return Voice{
			Range: strings.TrimSpace(rangePart),
			Name:  strings.TrimSpace(strings.ReplaceAll(rest, ",", "")),
		}
	}

	if rest, ok := strings.CutPrefix(text, noRangePrefix); ok {
		return Voice{Name: strings.TrimSpace(rest)}
	}

	if rangePart, rest, ok := strings.Cut(text, ","); ok && isRangeToken(strings.TrimSpace(rangePart)) {
		return Voice{
			Range: strings.TrimSpace(rangePart),
			Name:  strings.TrimSpace(rest),
		}
	}

	return Voice{Name: text}
}

// isRangeToken reports whether s looks like a range abbreviation such as "S" or "Bc".
func isRangeToken(s string) bool {
	return s != "" && len([]rune(s)) <= 3 && !strings.ContainsAny(s, " \t")
}

// splitRule is one entry of an ordered delimiter table.
type splitRule struct {
	name  string
	match func(text string) bool
	split func(text string) []string
}

func splitOn(sep string) func(string) []string {
	return func(text string) []string {
		return strings.Split(text, sep)
	}
}

func contains(sub string) func(string) bool {
	return func(text string) bool {
		return strings.Contains(text, sub)
	}
}

// composerRules are evaluated in order; the first matching rule splits the field.
var composerRules = []splitRule{
	{name: "semicolon", match: contains(";"), split: splitOn(";")},
	{name: "slash", match: contains("r/F"), split: splitOn("/")},
	{name: "ampersand", match: contains("&"), split: splitOn("&")},
	{
		name:  "bracketed",
		match: func(text string) bool { return strings.HasPrefix(text, "[") },
		split: func(text string) []string {
			inner := strings.TrimPrefix(text, "[")
			inner = strings.TrimSuffix(inner, "]")
			return strings.Split(inner, "),")
		},
	},
}

// editorRules mirror composerRules for the editor field. The comma rule re-pairs
// "Surname, Initials" fragments when the first fragment has no space.
var editorRules = []splitRule{
	{name: "continuo-by", match: contains(", continuo by"), split: splitOn(", continuo by")},
	{name: "continuo", match: contains(", continuo"), split: splitOn(", continuo")},
	{name: "comma", match: contains(","), split: splitEditorsOnComma},
}

func splitEditorsOnComma(text string) []string {
	parts := strings.Split(text, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if strings.Contains(parts[0], " ") {
		return parts
	}

	paired := make([]string, 0, (len(parts)+1)/2)
	for i := 0; i < len(parts); i += 2 {
		if i+1 < len(parts) {
			paired = append(paired, parts[i]+" "+parts[i+1])
		} else {
			paired = append(paired, parts[i])
		}
	}
	return paired
}

// splitFragments applies the first matching rule and trims every fragment.
// The rule name is returned for diagnostics; it is "single" when nothing matched.
func splitFragments(text string, rules []splitRule) ([]string, string) {
	text = strings.TrimSpace(text)
	for _, rule := range rules {
		if rule.match(text) {
			parts := rule.split(text)
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts, rule.name
		}
	}
	return []string{text}, "single"
}

// ParseComposers splits a composer field into people. Fragments without a name are dropped.
func ParseComposers(text string) []Person {
	fragments, _ := splitFragments(text, composerRules)
	people := make([]Person, 0, len(fragments))
	for _, fragment := range fragments {
		if p, ok := ParseComposer(fragment); ok {
			people = append(people, p)
		}
	}
	return people
}

// yearPattern extracts born/died years from a composer fragment.
type yearPattern struct {
	re      *regexp.Regexp
	extract func(m []string) (born, died *int)
}

func year(s string) *int {
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &y
}

// yearPatterns are tried in order; the first match wins.
var yearPatterns = []yearPattern{
	{regexp.MustCompile(`(\d{4})--(\d{4})`), func(m []string) (*int, *int) { return year(m[1]), year(m[2]) }},
	{regexp.MustCompile(`\*(\d{4})`), func(m []string) (*int, *int) { return year(m[1]), nil }},
	{regexp.MustCompile(`\+(\d{4})`), func(m []string) (*int, *int) { return nil, year(m[1]) }},
	{regexp.MustCompile(`--(\d{4})`), func(m []string) (*int, *int) { return nil, year(m[1]) }},
	{regexp.MustCompile(`(\d{4})--`), func(m []string) (*int, *int) { return year(m[1]), nil }},
}

// ParseComposer builds a composer from a fragment like "Bach, J.S. (1685--1750)".
// It returns false when the fragment has no name.
func ParseComposer(fragment string) (Person, bool) {
	fragment = strings.TrimSpace(fragment)
	name, _, _ := strings.Cut(fragment, "(")
	name = strings.TrimSpace(name)
	if name == "" {
		return Person{}, false
	}

	p := Person{Name: name, Role: RoleComposer}
	for _, pattern := range yearPatterns {
		if m := pattern.re.FindStringSubmatch(fragment); m != nil {
			p.Born, p.Died = pattern.extract(m)
			break
		}
	}
	return p, true
}

// ParseEditors splits an editor field into people. Editors never carry years.
func ParseEditors(text string) []Person {
	fragments, _ := splitFragments(text, editorRules)
	people := make([]Person, 0, len(fragments))
	for _, fragment := range fragments {
		name, _, _ := strings.Cut(fragment, "(")
		name = strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "[]"))
		if name == "" {
			continue
		}
		people = append(people, Person{Name: name, Role: RoleEditor})
	}
	return people
}
