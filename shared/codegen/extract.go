package codegen

import (
	"regexp"
	"strings"
)

var (
	sectionLabelRe  = regexp.MustCompile(`^[A-Za-z\s]+:$`)
	proseSentenceRe = regexp.MustCompile(`^[\s\-\*]*[A-Za-z\s]{6,}[\.?!]$`)
)

// ExtractJS isolates JavaScript from a model reply. A fenced block wins;
// otherwise lines that read like markdown or prose are dropped.
func ExtractJS(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if code, ok := firstJSFence(lines); ok {
		return code
	}

	var kept []string
	for _, line := range lines {
		if isProseLine(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// firstJSFence pairs fence lines in order, so a block whose tag is not
// JavaScript still consumes its closing fence. Unclosed blocks don't count.
func firstJSFence(lines []string) (string, bool) {
	for i := 0; i < len(lines); i++ {
		tag, ok := fenceOpener(lines[i])
		if !ok {
			continue
		}
		end := i + 1
		for end < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[end]), "```") {
			end++
		}
		if end == len(lines) {
			return "", false
		}
		if isJSTag(tag) {
			return strings.TrimSpace(strings.Join(lines[i+1:end], "\n")), true
		}
		i = end
	}
	return "", false
}

// fenceOpener reports whether line opens a fenced block and returns the
// first word of its info string, e.g. "js" for "```js title=a.js".
// One-line spans like "```x```" are not blocks.
func fenceOpener(line string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "```")
	if !ok || strings.Contains(rest, "```") {
		return "", false
	}
	if f := strings.Fields(rest); len(f) > 0 {
		return f[0], true
	}
	return "", true
}

// isJSTag accepts untagged fences and the usual JavaScript info strings.
func isJSTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "", "javascript", "js", "jsx", "mjs", "node":
		return true
	}
	return false
}

func isProseLine(s string) bool {
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return true
	case strings.HasPrefix(s, "#"), strings.HasPrefix(s, "*"), strings.HasPrefix(s, ">"):
		return true
	case strings.HasPrefix(s, "```"):
		return true
	case strings.HasPrefix(lower, "explanation"), strings.HasPrefix(lower, "the above code"):
		return true
	}
	return sectionLabelRe.MatchString(s) || proseSentenceRe.MatchString(s)
}

// LooksLikeJS is the cheap check used before auto-saving a reply.
func LooksLikeJS(content string) bool {
	return strings.Contains(content, "function") ||
		strings.Contains(content, "const") ||
		strings.Contains(content, "=>")
}
