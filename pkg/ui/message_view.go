package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/flowchat/pkg/conversation"
)

// MessageView renders transcript entries. Text is shown verbatim, keeping
// embedded line breaks; bot text goes through glamour only when markdown
// rendering is enabled.
type MessageView struct {
	width    int
	markdown *glamour.TermRenderer
}

// NewMessageView returns a view wrapping text at width.
func NewMessageView(width int, markdown bool) *MessageView {
	v := &MessageView{}
	v.SetWidth(width, markdown)
	return v
}

// SetWidth updates the wrap width and rebuilds the markdown renderer.
func (v *MessageView) SetWidth(width int, markdown bool) {
	v.width = max(width, 10)
	v.markdown = nil
	if !markdown {
		return
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(v.width-4),
	)
	if err == nil {
		v.markdown = renderer
	}
}

// Render draws one message.
func (v *MessageView) Render(msg conversation.Message) string {
	var b strings.Builder

	b.WriteString(senderLabel(msg.Sender))
	b.WriteString("\n")
	b.WriteString(v.renderText(msg))

	if msg.ImageSrc != "" {
		b.WriteString("\n")
		b.WriteString(attachmentStyle.Render("[image] " + ansi.Truncate(msg.ImageSrc, v.width-12, "...")))
	}

	return b.String()
}

// RenderLoading draws the bot placeholder shown while a reply is pending.
// It never includes message text.
func (v *MessageView) RenderLoading(spinnerFrame string) string {
	return senderLabel(conversation.Bot) + "\n" + bodyStyle.Render(spinnerFrame)
}

func (v *MessageView) renderText(msg conversation.Message) string {
	if msg.Sender == conversation.Bot && v.markdown != nil {
		if out, err := v.markdown.Render(msg.Text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}

	return bodyStyle.Render(ansi.Wrap(msg.Text, v.width-2, ""))
}

func senderLabel(s conversation.Sender) string {
	if s == conversation.Bot {
		return botLabelStyle.Render("Bot")
	}
	return userLabelStyle.Render("You")
}
