package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	attachCommand = "/attach"
	detachCommand = "/detach"
)

// SubmitMsg is emitted by the InputBar when the user sends a message.
type SubmitMsg struct {
	Text     string
	ImageSrc string
}

// InputBar captures a line of text and an optional image reference.
type InputBar struct {
	input      textinput.Model
	attachment string
	disabled   bool
}

// NewInputBar returns a focused input bar.
func NewInputBar() InputBar {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	return InputBar{input: ti}
}

// SetWidth sets the visible width of the text field.
func (b *InputBar) SetWidth(width int) {
	b.input.Width = max(width-4, 10)
}

// SetDisabled blocks or unblocks submissions. Typing is blocked too.
func (b *InputBar) SetDisabled(disabled bool) tea.Cmd {
	b.disabled = disabled
	if disabled {
		b.input.Blur()
		return nil
	}
	return b.input.Focus()
}

// Disabled reports whether submissions are blocked.
func (b *InputBar) Disabled() bool {
	return b.disabled
}

// Value returns the current text.
func (b *InputBar) Value() string {
	return b.input.Value()
}

// SetValue replaces the current text.
func (b *InputBar) SetValue(s string) {
	b.input.SetValue(s)
}

// Attachment returns the staged image reference.
func (b *InputBar) Attachment() string {
	return b.attachment
}

// Submit emits the current text. Blank text and submissions while disabled
// are ignored. "/attach <ref>" stages an image for the next message and
// "/detach" drops it; neither emits.
func (b *InputBar) Submit() (SubmitMsg, bool) {
	if b.disabled {
		return SubmitMsg{}, false
	}

	text := b.input.Value()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SubmitMsg{}, false
	}

	if ref, ok := strings.CutPrefix(trimmed, attachCommand+" "); ok {
		b.attachment = strings.TrimSpace(ref)
		b.input.Reset()
		return SubmitMsg{}, false
	}
	if trimmed == detachCommand {
		b.attachment = ""
		b.input.Reset()
		return SubmitMsg{}, false
	}

	msg := SubmitMsg{Text: text, ImageSrc: b.attachment}
	b.attachment = ""
	b.input.Reset()
	return msg, true
}

// Update handles key input. Enter submits.
func (b *InputBar) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		sub, ok := b.Submit()
		if !ok {
			return nil
		}
		return func() tea.Msg { return sub }
	}

	if b.disabled {
		return nil
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return cmd
}

// View renders the bar.
func (b *InputBar) View(width int) string {
	body := b.input.View()
	if b.attachment != "" {
		body += "\n" + mutedStyle.Render("attached: "+b.attachment+"  (/detach to remove)")
	}
	if b.disabled {
		body += "\n" + mutedStyle.Render("waiting for reply...")
	}
	return inputBoxStyle.Width(max(width-2, 10)).Render(body)
}
