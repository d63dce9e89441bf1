package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatrelay/backend/internal/models"
)

func msg(sender string, status models.MessageStatus, content string) *models.Message {
	return &models.Message{Sender: sender, Status: status, Content: content}
}

func TestBuildPrompt(t *testing.T) {
	cases := []struct {
		name    string
		history []*models.Message
		text    string
		want    string
	}{
		{
			name: "no history",
			text: "Hello",
			want: "User: Hello\n\nAssistant:",
		},
		{
			name: "with history",
			history: []*models.Message{
				msg(models.SenderUser, models.MessageStatusCompleted, "Hi"),
				msg(models.SenderAI, models.MessageStatusCompleted, "Hello! How can I help?"),
			},
			text: "Tell me a joke",
			want: "Previous conversation:\nUser: Hi\nAssistant: Hello! How can I help?\n\nUser: Tell me a joke\n\nAssistant:",
		},
		{
			name: "skips unresolved and failed replies",
			history: []*models.Message{
				msg(models.SenderUser, models.MessageStatusCompleted, "one"),
				msg(models.SenderAI, models.MessageStatusPending, models.PlaceholderContent),
				msg(models.SenderUser, models.MessageStatusCompleted, "two"),
				msg(models.SenderAI, models.MessageStatusFailed, models.ErrorContent),
			},
			text: "three",
			want: "Previous conversation:\nUser: one\nUser: two\n\nUser: three\n\nAssistant:",
		},
		{
			name: "only placeholders behaves like no history",
			history: []*models.Message{
				msg(models.SenderAI, models.MessageStatusPending, models.PlaceholderContent),
			},
			text: "x",
			want: "User: x\n\nAssistant:",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, BuildPrompt(tc.history, tc.text))
		})
	}
}
