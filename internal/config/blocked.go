package config

import "strings"

// BlockedActionCheck reports whether text contains any blocked action keyword.
type BlockedActionCheck struct {
	Blocked              bool     `json:"blocked"`
	KeywordsFound        []string `json:"keywords_found,omitempty"`
	RequiresConfirmation bool     `json:"requires_confirmation"`
}

// CheckBlockedAction scans text (a model response or an automation command)
// for the configured blocked-action keywords, case-insensitively.
func (c Config) CheckBlockedAction(text string) BlockedActionCheck {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range c.Automation.BlockedActions {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	blocked := len(found) > 0
	return BlockedActionCheck{
		Blocked:              blocked,
		KeywordsFound:        found,
		RequiresConfirmation: blocked && (c.Automation.RequireConfirmation || c.System.SafeMode),
	}
}
