// Package patterns clusters failure summaries of CI runs into named
// recurring failure categories.
package patterns

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is one step of the classification cascade. Extract returns the
// cluster name for text, or false when the rule does not apply.
type Rule struct {
	Name    string
	Extract func(text string) (string, bool)
}

type libraryEntry struct {
	re   *regexp.Regexp
	name string
}

// library holds the known recurring failure shapes. First match wins.
var library = []libraryEntry{
	{regexp.MustCompile(`(?i)time[d -]?\s*out[\s\S]{0,80}waiting for[\s\S]{0,30}(locator|element|selector)|waiting for (locator|element|selector)[\s\S]{0,80}time[d -]?\s*out`), "Timeout waiting for locator"},
	{regexp.MustCompile(`(?i)(element|locator|selector)[^\n]{0,40}(not found|could not be found|unable to (find|locate))|no such element|unable to locate element`), "Element not found"},
	{regexp.MustCompile(`(?i)(element|locator)[^\n]{0,40}(not visible|not displayed|is hidden|not interactable)`), "Element not visible"},
	{regexp.MustCompile(`(?i)net::err_|econnrefused|econnreset|etimedout|enotfound|socket hang up|network (error|failure|request failed)|connection (refused|reset)|getaddrinfo`), "Network error"},
	{regexp.MustCompile(`(?i)assertion ?error|assertion failed|assert(ed)?[^\n]{0,40}failed|expect\([^)]*\)\.(to|not)|expected [^\n]{0,80}\b(but (got|was|received)|to (be|equal|have|contain))`), "Assertion failed"},
	{regexp.MustCompile(`(?i)invalid (selector|locator|xpath)|(selector|xpath) (is )?(invalid|malformed)|unexpected token[^\n]{0,40}selector`), "Invalid selector"},
	{regexp.MustCompile(`(?i)(page load|navigation|page\.goto|navigating to)[^\n]{0,60}time[d -]?\s*out|time[d -]?\s*out[^\n]{0,60}(page load|navigation|navigating)`), "Page load timeout"},
	{regexp.MustCompile(`(?i)\b(click|fill|type|press)\b[^\n]{0,20}(action )?(failed|error)|(failed|unable) to (click|fill|type)`), "Click or fill action failed"},
	{regexp.MustCompile(`(?i)stale element|element is not attached|detached from (the )?dom|element (was )?detached`), "Stale element reference"},
	{regexp.MustCompile(`(?i)(javascript|script) error|uncaught (exception|typeerror|referenceerror)|typeerror:|referenceerror:|evaluation failed`), "Script error"},
	{regexp.MustCompile(`(?i)(authentication|auth|login|sign[- ]?in) (failed|failure|error)|401 unauthorized|invalid (credentials|password|token)`), "Authentication failure"},
}

var (
	markdownHeadingRE = regexp.MustCompile(`(?m)^\s*#{1,6}\s*([^#\n:]{3,60}?)\s*:`)
	boldLabelRE       = regexp.MustCompile(`\*\*([^*\n:]{3,60})(?::\*\*|\*\*\s*:)`)
	labelLineRE       = regexp.MustCompile(`^\s*(?:[-*]\s+)?([^:\n]{2,50}):\s*\S`)
	numberedHeadingRE = regexp.MustCompile(`(?m)^\s*\d+\.\s*\*\*([^*\n]{3,60})\*\*`)
	sentenceEndRE     = regexp.MustCompile(`[.!?](\s|$)`)
	leadingLabelRE    = regexp.MustCompile(`^\s*(?:[-*]\s+)?#{0,6}\s*\**([^*:\n]{2,50}?)\**\s*:\**\s*`)
)

var errorKeywords = []string{"timeout", "timed out", "time-out", "error", "failed", "failure", "issue", "problem", "exception", "warning"}

// boilerplate labels carry no failure signal. Matching is by substring, so
// "root cause" also covers "Root Cause Analysis".
var boilerplate = []string{
	"possible cause", "suggest", "based on", "summary", "root cause", "analysis",
	"overview", "details", "findings", "observation", "recommendation",
	"next step", "conclusion", "how to fix",
}

const (
	maxKeyRunes = 80
	minKeyRunes = 3
)

// Rules returns the classification cascade in evaluation order.
func Rules() []Rule {
	return []Rule{
		{Name: "library", Extract: matchLibrary},
		{Name: "heading", Extract: extractHeading},
		{Name: "keyword-label", Extract: extractKeywordLabel},
		{Name: "numbered-heading", Extract: extractNumberedHeading},
		{Name: "keyword-line", Extract: extractKeywordLine},
	}
}

// Classify returns the cluster name for text and the rule that produced it.
// ok is false when no rule applies and the text should be discarded.
func Classify(text string) (name, rule string, ok bool) {
	return classify(Rules(), text)
}

func classify(rules []Rule, text string) (string, string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", "", false
	}
	for _, r := range rules {
		if name, ok := r.Extract(text); ok {
			return name, r.Name, true
		}
	}
	return "", "", false
}

func matchLibrary(text string) (string, bool) {
	for _, e := range library {
		if e.re.MatchString(text) {
			return e.name, true
		}
	}
	return "", false
}

func extractHeading(text string) (string, bool) {
	var candidates []string
	for _, m := range markdownHeadingRE.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	for _, m := range boldLabelRE.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	return firstLabel(candidates)
}

func extractKeywordLabel(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		m := labelLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		label := cleanLabel(m[1])
		if hasErrorKeyword(label) && !isBoilerplate(label) {
			if key, ok := boundedKey(label); ok {
				return key, true
			}
		}
	}
	return "", false
}

func extractNumberedHeading(text string) (string, bool) {
	var candidates []string
	for _, m := range numberedHeadingRE.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, m[1])
	}
	return firstLabel(candidates)
}

func extractKeywordLine(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = cleanLabel(stripBoilerplateLabel(line))
		if !hasErrorKeyword(line) {
			continue
		}
		if loc := sentenceEndRE.FindStringIndex(line); loc != nil {
			line = line[:loc[0]]
		}
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) > maxKeyRunes {
			line = strings.TrimSpace(string([]rune(line)[:maxKeyRunes]))
		}
		if utf8.RuneCountInString(line) >= minKeyRunes {
			return line, true
		}
	}
	return "", false
}

// stripBoilerplateLabel drops a leading generic label such as
// "**Root Cause:**" so the sentence after it becomes the key.
func stripBoilerplateLabel(line string) string {
	m := leadingLabelRE.FindStringSubmatch(line)
	if m == nil || !isBoilerplate(cleanLabel(m[1])) {
		return line
	}
	return line[len(m[0]):]
}

func firstLabel(candidates []string) (string, bool) {
	for _, c := range candidates {
		label := cleanLabel(c)
		if isBoilerplate(label) {
			continue
		}
		if key, ok := boundedKey(label); ok {
			return key, true
		}
	}
	return "", false
}

func cleanLabel(s string) string {
	s = strings.Trim(s, " \t*_`#>-:")
	return strings.Join(strings.Fields(s), " ")
}

func boundedKey(label string) (string, bool) {
	n := utf8.RuneCountInString(label)
	if n < minKeyRunes || n > maxKeyRunes {
		return "", false
	}
	return label, true
}

func hasErrorKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, k := range errorKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isBoilerplate(label string) bool {
	lower := strings.ToLower(label)
	for _, b := range boilerplate {
		if strings.Contains(lower, b) {
			return true
		}
	}
	return false
}
