package llm

import (
	"regexp"
	"strings"
)

var (
	// fencedObjectPattern matches an object inside a markdown fence, with or
	// without a json language tag.
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(\\{.*\\})\\s*```")
	// bareObjectPattern spans from the first '{' to the last '}'.
	bareObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	// danglingCommaPattern matches a comma directly before a closing bracket.
	danglingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of model output that may wrap it in
// prose or markdown fences, then strips line comments and dangling commas.
// It returns "" when no object-looking text is present. The result is not
// guaranteed to be valid JSON; callers still decode it strictly.
func ExtractJSON(content string) string {
	raw := ""
	if m := fencedObjectPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else {
		raw = bareObjectPattern.FindString(content)
	}
	if raw == "" {
		return ""
	}
	return tidyJSON(raw)
}

func tidyJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = dropLineComment(line)
	}
	return danglingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// dropLineComment removes a trailing // comment that sits outside any
// string literal on the line.
func dropLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
