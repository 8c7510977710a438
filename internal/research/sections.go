package research

import (
	"regexp"
	"strings"
)

// A heading is a markdown heading, a fully bold line, or an optionally
// numbered upper-case title. Numbered sentences in mixed case are content.
var upperTitle = regexp.MustCompile(`^(?:\d+[.)]\s*)?(?:\*\*)?\s*([A-Z][A-Z &/'\-]*[A-Z])\s*(?:\([^)]*\))?\s*:?\s*(?:\*\*)?\s*:?$`)

var upperInline = regexp.MustCompile(`^(?:\d+[.)]\s*)?(?:\*\*)?([A-Z][A-Z &/'\-]{2,}[A-Z])(?:\*\*)?:\s*\S`)

// Single-word labels that still open a section. Other one-word upper-case
// lines are acronyms in the content.
var singleWordLabels = map[string]bool{
	"OVERVIEW":    true,
	"SUMMARY":     true,
	"CULTURE":     true,
	"PRODUCTS":    true,
	"COMPETITORS": true,
	"QUESTIONS":   true,
	"CONCLUSION":  true,
}

var headingPrefix = regexp.MustCompile(`^(?:#+\s*|\d+[.)]\s*|\*\*)+`)

func isHeading(line string) bool {
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, "#"):
		return true
	case len(line) > 4 && strings.HasPrefix(line, "**") && (strings.HasSuffix(line, "**") || strings.HasSuffix(line, "**:")):
		return true
	default:
		if m := upperTitle.FindStringSubmatch(line); m != nil {
			return isLabel(m[1])
		}
		if m := upperInline.FindStringSubmatch(line); m != nil {
			return isLabel(m[1])
		}
		return false
	}
}

func isLabel(title string) bool {
	return len(strings.Fields(title)) >= 2 || singleWordLabels[strings.TrimSpace(title)]
}

// inlineContent returns the text after "LABEL:" when a line carries the label
// and its content on the same line.
func inlineContent(line, label string) (string, bool) {
	stripped := headingPrefix.ReplaceAllString(line, "")
	if !strings.HasPrefix(strings.ToUpper(stripped), label) {
		return "", false
	}
	rest := strings.TrimLeft(stripped[len(label):], "* ")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(rest[1:], "* ")), true
}

// ExtractSection returns the text under the heading containing label, up to
// the next heading. It returns "Information not available" when the section
// is missing or empty.
func ExtractSection(text, label string) string {
	label = strings.ToUpper(strings.TrimSpace(label))
	if label == "" {
		return notAvailable
	}

	var (
		out       []string
		capturing bool
	)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if capturing {
			if isHeading(line) {
				break
			}
			out = append(out, line)
			continue
		}
		if rest, ok := inlineContent(line, label); ok {
			capturing = true
			if rest != "" {
				out = append(out, rest)
			}
			continue
		}
		if isHeading(line) && strings.Contains(strings.ToUpper(line), label) {
			capturing = true
		}
	}

	result := strings.TrimSpace(strings.Join(out, "\n"))
	if result == "" {
		return notAvailable
	}
	return result
}
