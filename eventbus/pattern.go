package eventbus

import (
	"regexp"
	"strings"
)

// compilePattern translates a dotted topic pattern into an anchored regexp.
// A `*` segment matches exactly one run of non-dot characters, so "agent.*"
// matches "agent.complete" but not "agent.complete.extra". All other
// segments must match verbatim.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	segments := strings.Split(pattern, ".")
	quoted := make([]string, len(segments))
	for i, seg := range segments {
		if seg == "*" {
			quoted[i] = `[^.]+`
			continue
		}
		quoted[i] = regexp.QuoteMeta(seg)
	}
	return regexp.Compile(`^` + strings.Join(quoted, `\.`) + `$`)
}

// MatchTopic reports whether topic matches the given pattern. Invalid
// patterns match nothing.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}
	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(topic)
}
