package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/salesops-assistant/agent/contract"
)

var (
	//go:embed template/assistant.txt
	assistantRaw string

	//go:embed template/insights.txt
	insightsRaw string

	//go:embed template/email_suggestion.txt
	emailSuggestionRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Assistant       string
	Insights        string
	EmailSuggestion string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Assistant:       strings.TrimSpace(assistantRaw),
		Insights:        strings.TrimSpace(insightsRaw),
		EmailSuggestion: strings.TrimSpace(emailSuggestionRaw),
	}
}

// Validate reports the first empty prompt.
func (p PromptSet) Validate() error {
	for name, v := range map[string]string{
		"assistant":        p.Assistant,
		"insights":         p.Insights,
		"email_suggestion": p.EmailSuggestion,
	} {
		if v == "" {
			return fmt.Errorf("%w: %s", contractx.ErrPromptMissing, name)
		}
	}
	return nil
}
