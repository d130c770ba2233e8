package chat

import (
	"sort"
	"strings"
)

// persona is the assistant's system prefix.
const persona = "You are Agent, a helpful AI assistant."

// buildPrompt assembles the completion prompt: optional labeled context
// lines, the persona, the user query, and the assistant cue.
func buildPrompt(query string, contextPairs map[string]string) string {
	var b strings.Builder
	if len(contextPairs) > 0 {
		b.WriteString("Context:\n")
		// Deterministic order keeps prompts reproducible for a given input.
		keys := make([]string, 0, len(contextPairs))
		for k := range contextPairs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(contextPairs[k])
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(persona)
	b.WriteString("\n\nUser: ")
	b.WriteString(query)
	b.WriteString("\n\nAgent: ")
	return b.String()
}
