package engine

import "strings"

// DefaultRetryPatterns is the known set of transient WebDriver failure
// signatures. A mapped failure whose note contains one of these (case
// insensitive) is worth retrying: the session broke, not the address.
// New signatures belong in this table, not in the retry loop.
var DefaultRetryPatterns = []string{
	"session disconnected",
	"invalid session id",
	"browser has closed",
	"window already closed",
	"no such window",
	"target window already closed",
	"web view not found",
	"chrome not reachable",
	"connection refused",
	"unable to connect to renderer",
	"disconnected: not connected to devtools",
	"timed out receiving message from renderer",
	"通信エラー",
	"セッションが切断",
}

// RetryClassifier decides whether a failed judgement looks transient based
// on its note text.
type RetryClassifier struct {
	patterns []string
}

// NewRetryClassifier creates a classifier with the given substring
// patterns. Patterns are matched case-insensitively. A nil or empty slice
// falls back to DefaultRetryPatterns.
func NewRetryClassifier(patterns []string) *RetryClassifier {
	if len(patterns) == 0 {
		patterns = DefaultRetryPatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(p)
	}
	return &RetryClassifier{patterns: lowered}
}

// Retryable reports whether the note matches any known transient-failure
// signature.
func (c *RetryClassifier) Retryable(note string) bool {
	if note == "" {
		return false
	}
	lowered := strings.ToLower(note)
	for _, p := range c.patterns {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
