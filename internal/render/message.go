// ABOUTME: Conversation message formatting with role-colored prefixes.
// ABOUTME: User lines print verbatim; bot lines go through markdown.

package render

import (
	"strings"

	"github.com/sablelabs/docchat/internal/api"
)

// Message formats one conversation message for the terminal. agentName
// labels bot lines; user lines are always labeled "you". A bot message
// still streaming in may be empty, which renders as the bare label.
func (r *Renderer) Message(agentName string, msg api.Message) string {
	if msg.Sender == api.RoleUser {
		return r.userTag.Sprint("you") + "> " + msg.Text
	}
	if agentName == "" {
		agentName = "agent"
	}
	body := msg.Text
	if body != "" {
		body = r.Markdown(body)
	}
	return r.botTag.Sprint(agentName) + "> " + body
}

// History formats a whole conversation, one message per block, separated
// by blank lines.
func (r *Renderer) History(agentName string, messages []api.Message) string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		out = append(out, r.Message(agentName, msg))
	}
	return strings.Join(out, "\n\n")
}
