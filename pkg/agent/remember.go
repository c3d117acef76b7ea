package agent

import "regexp"

// rememberPattern matches the whole word "remember" in any case.
var rememberPattern = regexp.MustCompile(`(?i)\bremember\b`)

// wantsFullHistory reports whether the message text asks the agent to
// use the whole stored history. Best-effort heuristic, not a guarantee
// of relevance.
func wantsFullHistory(message string) bool {
	return rememberPattern.MatchString(message)
}
