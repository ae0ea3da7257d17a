package finalizer

import (
	"regexp"
	"strings"

	"github.com/dxta-dev/clankers/internal/types"
)

// Role inference for messages whose harness events never carried a role.
// Heuristic, ordered: assistant markers first, then user markers, then a
// length fallback.

// assistantOpeners are first-person volitional phrases assistants lead with.
var assistantOpeners = []string{
	"i'll", "let me", "here's", "i can", "i've", "i'm going to", "i will",
	"sure", "certainly", "of course",
}

// userOpeners are imperative verbs and request phrases users lead with.
var userOpeners = []string{
	"create", "fix", "add", "update", "show", "make", "build", "implement",
	"write", "delete", "remove", "change", "modify", "help", "can you",
	"please", "i want", "i need",
}

var (
	yesNoPronounRe = regexp.MustCompile(`(?i)^(yes|no),\s+(i|you|we|they|he|she|it)\b`)
	boldRe         = regexp.MustCompile(`\*\*[^*]+\*\*`)
	numberedBoldRe = regexp.MustCompile(`^\d+\.\s+\*\*`)
)

// longMessageThreshold: past this, unmarked prose is almost always the
// assistant explaining something.
const longMessageThreshold = 500

// InferRole classifies text as "user" or "assistant".
func InferRole(text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, opener := range assistantOpeners {
		if strings.HasPrefix(lower, opener) {
			return types.RoleAssistant
		}
	}
	if strings.Contains(trimmed, "```") {
		return types.RoleAssistant
	}
	if yesNoPronounRe.MatchString(trimmed) {
		return types.RoleAssistant
	}
	if boldRe.MatchString(trimmed) {
		return types.RoleAssistant
	}
	if numberedBoldRe.MatchString(trimmed) {
		return types.RoleAssistant
	}

	if strings.HasSuffix(trimmed, "?") {
		return types.RoleUser
	}
	for _, opener := range userOpeners {
		if strings.HasPrefix(lower, opener) {
			return types.RoleUser
		}
	}
	if strings.HasPrefix(trimmed, "@") {
		return types.RoleUser
	}

	if len(trimmed) > longMessageThreshold {
		return types.RoleAssistant
	}
	return types.RoleUser
}
