package generation

import (
	"strings"

	"github.com/chatrelay/backend/internal/models"
)

// BuildPrompt renders prior turns and the new user text as a single prompt.
// Unresolved and failed ai messages carry no real content and are skipped.
func BuildPrompt(history []*models.Message, userText string) string {
	var b strings.Builder
	wrote := false
	for _, m := range history {
		if m.Sender == models.SenderAI && m.Status != models.MessageStatusCompleted {
			continue
		}
		if !wrote {
			b.WriteString("Previous conversation:\n")
			wrote = true
		} else {
			b.WriteByte('\n')
		}
		if m.Sender == models.SenderUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(m.Content)
	}
	if wrote {
		b.WriteString("\n\n")
	}
	b.WriteString("User: ")
	b.WriteString(userText)
	b.WriteString("\n\nAssistant:")
	return b.String()
}
