package scorer

import "regexp"

// Formatted-markup signals.
var (
	beginEndPattern = regexp.MustCompile(`\\(begin|end)\{`)
	sectionPattern  = regexp.MustCompile(`\\(section|subsection|chapter)`)
	commandPattern  = regexp.MustCompile(`\\[a-zA-Z]+`)
)

// Natural-language counters.
var (
	englishWordPattern  = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
	markupSymbolPattern = regexp.MustCompile(`[$\{\}\[\]\\]`)
)

// Incomplete-markup signals, anchored at the end of the fragment.
var (
	incompleteMathPattern    = regexp.MustCompile(`\$[^$]*$`)
	incompleteCommandPattern = regexp.MustCompile(`\\[a-zA-Z]+\s*$`)
)

// pureMarkupShape is a whole-fragment shape that is never prose.
type pureMarkupShape struct {
	Name    string
	Pattern *regexp.Regexp
}

var pureMarkupShapes = []pureMarkupShape{
	{Name: "command with argument", Pattern: regexp.MustCompile(`^\\[a-zA-Z]+\{[^}]*\}$`)},
	{Name: "bare command", Pattern: regexp.MustCompile(`^\\[a-zA-Z]+$`)},
	{Name: "inline math", Pattern: regexp.MustCompile(`(?s)^\$.*\$$`)},
	{Name: "environment", Pattern: regexp.MustCompile(`(?s)^\\begin\{[^}]+\}.*\\end\{[^}]+\}$`)},
}

// PureMarkupShape returns the name of the pure-markup shape trimmed text
// matches, or "" when it matches none.
func PureMarkupShape(trimmed string) string {
	for _, s := range pureMarkupShapes {
		if s.Pattern.MatchString(trimmed) {
			return s.Name
		}
	}
	return ""
}

func countMatches(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}
