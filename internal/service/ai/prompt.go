package ai

import (
	"fmt"
	"strings"
)

// PromptTemplate defines the system prompt for a family of models.
type PromptTemplate struct {
	SystemPrompt string
	Rules        []string
}

// PromptManager picks a system prompt by model id prefix.
type PromptManager struct {
	templates map[string]*PromptTemplate
	fallback  *PromptTemplate
}

// NewPromptManager creates a manager with the default templates.
func NewPromptManager() *PromptManager {
	base := &PromptTemplate{
		SystemPrompt: "You are a coding assistant working in the user's terminal session.",
		Rules: []string{
			"Answer concisely and prefer working code over prose.",
			"Use fenced code blocks for code and command output.",
			"Use `- ` bullet lists for steps.",
			"When you describe a shell command you ran, show it as `$ command` inside a fenced block.",
		},
	}

	return &PromptManager{
		templates: map[string]*PromptTemplate{
			"doubao": {
				SystemPrompt: base.SystemPrompt + " Reply in the user's language.",
				Rules:        base.Rules,
			},
		},
		fallback: base,
	}
}

// BuildSystemPrompt renders the prompt for modelID.
func (pm *PromptManager) BuildSystemPrompt(modelID string) string {
	template := pm.fallback
	for prefix, t := range pm.templates {
		if strings.HasPrefix(modelID, prefix) {
			template = t
			break
		}
	}

	var rules strings.Builder
	for _, rule := range template.Rules {
		rules.WriteString("- ")
		rules.WriteString(rule)
		rules.WriteString("\n")
	}

	return fmt.Sprintf("%s\n\nFormatting rules:\n%s", template.SystemPrompt, strings.TrimRight(rules.String(), "\n"))
}
