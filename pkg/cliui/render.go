package cliui

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/chat"
	"github.com/papercomputeco/agentchat/pkg/conversation"
	"github.com/papercomputeco/agentchat/pkg/formschema"
	"github.com/papercomputeco/agentchat/pkg/utils"
)

// MessageOptions controls RenderMessage.
type MessageOptions struct {
	// Markdown renders assistant content through glamour.
	Markdown bool

	// Width is the markdown wrap width. Zero uses 80.
	Width int
}

// RoleLabel returns the styled role name.
func RoleLabel(role chat.Role) string {
	if role == chat.RoleUser {
		return UserRoleStyle.Render("you")
	}
	return AssistantRoleStyle.Render(string(role))
}

// MessageHeader renders the "<role>  <time>" line above a message.
func MessageHeader(m chat.Message) string {
	header := RoleLabel(m.Role)
	if m.Timestamp != 0 {
		header += "  " + DimStyle.Render(m.Time().Local().Format(time.TimeOnly))
	}
	if m.Streaming {
		header += "  " + DimStyle.Render("…")
	}
	return header
}

// RenderMessage renders a message with its header, body, and any form it
// carries.
func RenderMessage(m chat.Message, opts MessageOptions) string {
	var b strings.Builder
	b.WriteString(MessageHeader(m))
	b.WriteString("\n")

	body := m.Content
	if opts.Markdown && m.Role == chat.RoleAssistant && !m.Streaming && body != "" {
		width := opts.Width
		if width <= 0 {
			width = 80
		}
		if rendered, err := RenderMarkdownWidth(body, width); err == nil {
			body = strings.TrimRight(rendered, "\n")
		}
	}
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}

	if m.HasForm() {
		b.WriteString(RenderForm(m.FormTitle, m.FormSchema))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderForm renders a form schema as a bordered field list.
func RenderForm(title string, s formschema.Schema) string {
	if title == "" {
		title = "Form"
	}

	lines := []string{FormTitleStyle.Render(title)}
	for _, f := range s {
		lines = append(lines, FieldLine(f))
		if f.Description != "" {
			lines = append(lines, "    "+DimStyle.Render(f.Description))
		}
	}

	return FormStyle.Render(strings.Join(lines, "\n"))
}

// FieldLine renders one field as "label* (type: a | b)".
func FieldLine(f formschema.Field) string {
	label := f.Label
	if f.IsRequired() {
		label += RequiredMark
	}

	detail := string(f.Type)
	if len(f.Values) > 0 {
		detail += ": " + strings.Join(f.Values, " | ")
	}

	return fmt.Sprintf("  %s %s", KeyStyle.Render(label), DimStyle.Render("("+detail+")"))
}

// FieldPrompt is the prompt shown when asking for a field value.
func FieldPrompt(f formschema.Field) string {
	prompt := f.Label
	if f.Placeholder != "" {
		prompt += " " + DimStyle.Render("["+f.Placeholder+"]")
	} else if f.DefaultValue != nil {
		prompt += " " + DimStyle.Render(fmt.Sprintf("[%v]", f.DefaultValue))
	}
	return prompt + ": "
}

// ConversationRow renders one line of the conversation list. current marks
// the selected conversation.
func ConversationRow(c conversation.Conversation, current bool) string {
	marker := " "
	if current {
		marker = SuccessMark
	}

	return fmt.Sprintf("%s %s  %s  %s  %s",
		marker,
		IDStyle.Render(c.ID),
		NameStyle.Render(utils.Truncate(c.Name, 40)),
		DimStyle.Render(fmt.Sprintf("%d messages", c.MessageCount)),
		DimStyle.Render(c.UpdatedAt.Local().Format(time.DateTime)),
	)
}

// Warnings renders non-fatal stream warnings, one per line.
func Warnings(warnings []error) string {
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	for _, w := range warnings {
		fmt.Fprintf(&b, "  %s %s\n", WarnStyle.Render("!"), DimStyle.Render(w.Error()))
	}
	return b.String()
}
