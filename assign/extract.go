package assign

import "strings"

// thinkDelimiter closes the reasoning trace some local models emit
// before their actual answer.
const thinkDelimiter = "</think>"

// ExtractName isolates an agent name from a raw completion. The text
// after the last reasoning-trace delimiter is taken, then trimmed of
// whitespace and the quoting/punctuation small models like to wrap
// answers in. The result is not validated against any roster; that is
// the resolver's job.
func ExtractName(raw string) string {
	answer := raw
	if i := strings.LastIndex(raw, thinkDelimiter); i >= 0 {
		answer = raw[i+len(thinkDelimiter):]
	}
	answer = strings.TrimSpace(answer)

	// Keep only the first non-empty line; verbose models append
	// explanations on following lines.
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			answer = line
			break
		}
	}

	return strings.TrimSpace(strings.Trim(answer, "\"'`*."))
}
