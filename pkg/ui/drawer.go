package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/papercomputeco/flowchat/pkg/conversation"
)

// Drawer intents. The drawer never mutates the store itself.
type (
	SelectConversationMsg struct{ ID string }
	NewConversationMsg    struct{}
	ClearConversationMsg  struct{ ID string }
	DeleteConversationMsg struct{ ID string }
	CloseDrawerMsg        struct{}
)

const drawerHelp = "enter open · n new · c clear · d delete · esc close"

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmClear
	confirmDelete
)

// drawerItem adapts a conversation to list.DefaultItem.
type drawerItem struct {
	conv   conversation.Conversation
	active bool
	width  int
}

func (i drawerItem) Title() string {
	title := i.conv.Title
	if i.active {
		title = "● " + title
	}
	return ansi.Truncate(title, max(i.width-4, 8), "…")
}

func (i drawerItem) Description() string {
	return i.conv.CreatedAt.Local().Format("Jan 2, 2006")
}

func (i drawerItem) FilterValue() string { return i.conv.Title }

// Drawer lists conversations in store order with select, new, clear and
// delete controls. Clear and delete take effect only after a y/n
// confirmation.
type Drawer struct {
	list         list.Model
	width        int
	confirm      confirmKind
	target       drawerItem
	lastActiveID string
}

// NewDrawer returns an empty drawer.
func NewDrawer() Drawer {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(colorAccent).BorderForeground(colorAccent)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(colorTextMuted).BorderForeground(colorAccent)

	l := list.New(nil, delegate, 30, 20)
	l.Title = "Conversations"
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.Styles.Title = headerStyle

	return Drawer{list: l, width: 30}
}

// SetSize sets the drawer dimensions.
func (d *Drawer) SetSize(width, height int) {
	d.width = width
	d.list.SetSize(width-4, max(height-4, 3))
}

// SetConversations refreshes the items. The cursor jumps to the active
// conversation only when the active id changed since the last call;
// otherwise it stays where the user left it.
func (d *Drawer) SetConversations(convs []conversation.Conversation, activeID string) {
	items := make([]list.Item, len(convs))
	selected := d.list.Index()
	moved := activeID != d.lastActiveID
	for i, c := range convs {
		items[i] = drawerItem{conv: c, active: c.ID == activeID, width: d.width}
		if moved && c.ID == activeID {
			selected = i
		}
	}
	d.lastActiveID = activeID

	d.list.SetItems(items)
	if len(items) > 0 {
		d.list.Select(max(min(selected, len(items)-1), 0))
	}
}

// Index returns the cursor position.
func (d *Drawer) Index() int {
	return d.list.Index()
}

// Confirming reports whether a destructive action awaits confirmation.
func (d *Drawer) Confirming() bool {
	return d.confirm != confirmNone
}

// Update handles a key press and returns the resulting intent, if any.
func (d *Drawer) Update(msg tea.Msg) tea.Cmd {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		d.list, cmd = d.list.Update(msg)
		return cmd
	}

	if d.confirm != confirmNone {
		return d.handleConfirm(key)
	}

	switch key.String() {
	case "esc":
		return emit(CloseDrawerMsg{})
	case "n":
		return emit(NewConversationMsg{})
	case "enter":
		if item, ok := d.selected(); ok {
			return emit(SelectConversationMsg{ID: item.conv.ID})
		}
		return nil
	case "c", "d":
		if item, ok := d.selected(); ok {
			d.target = item
			d.confirm = confirmClear
			if key.String() == "d" {
				d.confirm = confirmDelete
			}
		}
		return nil
	}

	var cmd tea.Cmd
	d.list, cmd = d.list.Update(msg)
	return cmd
}

func (d *Drawer) handleConfirm(key tea.KeyMsg) tea.Cmd {
	kind, id := d.confirm, d.target.conv.ID
	switch key.String() {
	case "y", "Y":
		d.confirm = confirmNone
		if kind == confirmDelete {
			return emit(DeleteConversationMsg{ID: id})
		}
		return emit(ClearConversationMsg{ID: id})
	case "n", "N", "esc":
		d.confirm = confirmNone
	}
	return nil
}

func (d *Drawer) selected() (drawerItem, bool) {
	item, ok := d.list.SelectedItem().(drawerItem)
	return item, ok
}

// View renders the drawer.
func (d *Drawer) View() string {
	body := d.list.View()
	if len(d.list.Items()) == 0 {
		body = headerStyle.Render("Conversations") + "\n\n" + mutedStyle.Render("No conversations yet.")
	}

	switch d.confirm {
	case confirmDelete:
		body += "\n" + warningStyle.Render("Delete this conversation? (y/n)")
	case confirmClear:
		body += "\n" + warningStyle.Render("Clear all messages in this conversation? (y/n)")
	default:
		body += "\n" + mutedStyle.Render(ansi.Wrap(drawerHelp, max(d.width-4, 10), ""))
	}

	return drawerStyle.Width(max(d.width-2, 10)).Render(body)
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
