package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/weiawesome/wes-io-chat/pkg/chatclient"
)

type App struct {
	app      *tview.Application
	flex     *tview.Flex
	list     *tview.List
	textView *tview.TextView
	textArea *tview.TextArea
	button   *tview.Button
	client   *chatclient.Client

	peer   string
	unread map[string]int
	system []string
}

func NewApp(client *chatclient.Client) *App {
	app := tview.NewApplication()

	// -------------------------------------------------------------------------

	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true)
	list.SetTitle("Contacts")

	// -------------------------------------------------------------------------

	textView := tview.NewTextView().
		SetTextAlign(tview.AlignLeft).
		SetWordWrap(true).
		SetDynamicColors(true)

	textView.SetBorder(true)
	textView.SetTitle(fmt.Sprintf("*** %s ***", client.Username()))

	// -------------------------------------------------------------------------

	button := tview.NewButton("SEND")
	button.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen).Bold(true))
	button.SetActivatedStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorGreen).Bold(true))
	button.SetBorder(true)
	button.SetBorderColor(tcell.ColorGreen)

	// -------------------------------------------------------------------------

	textArea := tview.NewTextArea()
	textArea.SetWrap(false)
	textArea.SetPlaceholder("Enter message here...")
	textArea.SetBorder(true)
	textArea.SetBorderPadding(0, 0, 1, 0)

	// -------------------------------------------------------------------------

	flex := tview.NewFlex().
		AddItem(list, 24, 1, false).
		AddItem(tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(textView, 0, 5, false).
			AddItem(tview.NewFlex().
				SetDirection(tview.FlexColumn).
				AddItem(textArea, 0, 90, true).
				AddItem(button, 0, 10, false),
				0, 1, true),
			0, 1, true)

	a := &App{
		app:      app,
		flex:     flex,
		list:     list,
		textView: textView,
		textArea: textArea,
		button:   button,
		client:   client,
		unread:   make(map[string]int),
	}

	flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyCtrlR:
			go a.refreshInBackground()
			return nil
		}
		return event
	})

	list.SetChangedFunc(func(_ int, _ string, name string, _ rune) {
		a.selectPeer(name)
	})
	list.SetSelectedFunc(func(_ int, _ string, name string, _ rune) {
		a.selectPeer(name)
		app.SetFocus(textArea)
	})

	button.SetSelectedFunc(a.ButtonHandler)

	textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEnter:
			a.ButtonHandler()
			return nil
		case tcell.KeyTab:
			app.SetFocus(list)
			return nil
		}
		return event
	})

	return a
}

func (a *App) Run() error {
	return a.app.SetRoot(a.flex, true).EnableMouse(true).Run()
}

// RefreshContacts reloads the directory, leaving out our own name.
func (a *App) RefreshContacts(ctx context.Context) error {
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}

	me := a.client.Username()
	contacts := make([]string, 0, len(users))
	for _, u := range users {
		if u != me {
			contacts = append(contacts, u)
		}
	}

	a.app.QueueUpdateDraw(func() {
		a.renderContacts(contacts)
	})
	return nil
}

func (a *App) refreshInBackground() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.RefreshContacts(ctx); err != nil {
		a.WriteSystem(fmt.Sprintf("Error loading contacts: %s", err))
	}
}

// renderContacts must run on the UI goroutine.
func (a *App) renderContacts(contacts []string) {
	current := a.peer
	a.list.Clear()
	for i, name := range contacts {
		shortcut := rune(0)
		if i < 9 {
			shortcut = rune('1' + i)
		}
		a.list.AddItem(name, name, shortcut, nil)
	}

	for i := 0; i < a.list.GetItemCount(); i++ {
		if _, name := a.list.GetItemText(i); name == current {
			a.list.SetCurrentItem(i)
		}
	}
	a.updateLabels()
}

func (a *App) hasContact(name string) bool {
	for i := 0; i < a.list.GetItemCount(); i++ {
		if _, n := a.list.GetItemText(i); n == name {
			return true
		}
	}
	return false
}

func (a *App) updateLabels() {
	for i := 0; i < a.list.GetItemCount(); i++ {
		_, name := a.list.GetItemText(i)
		label := name
		if n := a.unread[name]; n > 0 {
			label = fmt.Sprintf("%s (%d)", name, n)
		}
		a.list.SetItemText(i, label, name)
	}
}

func (a *App) selectPeer(name string) {
	if name == "" {
		return
	}
	a.peer = name
	delete(a.unread, name)
	a.updateLabels()
	a.renderThread()
}

// Listen applies client events to the screen until the connection closes.
func (a *App) Listen() {
	for evt := range a.client.Events() {
		evt := evt
		a.app.QueueUpdateDraw(func() {
			switch evt.Kind {
			case chatclient.EventMessage:
				if evt.Peer != a.peer {
					a.unread[evt.Peer]++
				}
				if !a.hasContact(evt.Peer) {
					go a.refreshInBackground()
				}
				a.updateLabels()
				a.renderThread()
			case chatclient.EventStatus:
				if evt.Peer == a.peer {
					a.renderThread()
				}
			case chatclient.EventError:
				a.writeSystemLocked(fmt.Sprintf("Server error: %s", evt.Err))
			case chatclient.EventClosed:
				a.writeSystemLocked("DISCONNECTED")
			}
		})
		if evt.Kind == chatclient.EventClosed {
			return
		}
	}
}

func (a *App) ButtonHandler() {
	if a.peer == "" {
		a.writeSystemLocked("Select a contact first")
		return
	}

	msg := a.textArea.GetText()
	if msg == "" {
		return
	}

	if _, err := a.client.Send(a.peer, msg); err != nil {
		a.writeSystemLocked(fmt.Sprintf("Error sending message: %s", err))
	}

	a.textArea.SetText("", false)
	a.renderThread()
}

// WriteSystem adds a status line from any goroutine.
func (a *App) WriteSystem(msg string) {
	a.app.QueueUpdateDraw(func() {
		a.writeSystemLocked(msg)
	})
}

func (a *App) writeSystemLocked(msg string) {
	a.system = append(a.system, msg)
	a.renderThread()
}

// renderThread redraws the selected conversation; it must run on the UI
// goroutine.
func (a *App) renderThread() {
	a.textView.Clear()

	for _, line := range a.system {
		fmt.Fprintf(a.textView, "[yellow]system:[-] %s\n", tview.Escape(line))
	}
	if a.peer == "" {
		return
	}

	fmt.Fprintf(a.textView, "[green]----- %s -----[-]\n", tview.Escape(a.peer))
	me := a.client.Username()
	for _, e := range a.client.Thread(a.peer) {
		ts := e.Timestamp.Local().Format("15:04")
		if e.Sender == me {
			fmt.Fprintf(a.textView, "%s You: %s %s\n", ts, tview.Escape(e.Content), mark(e))
			continue
		}
		fmt.Fprintf(a.textView, "%s %s: %s\n", ts, tview.Escape(e.Sender), tview.Escape(e.Content))
	}
	a.textView.ScrollToEnd()
}

func mark(e chatclient.Entry) string {
	switch e.Status {
	case chatclient.StatusPending:
		return "[gray](pending)[-]"
	case chatclient.StatusFailed:
		return "[red](failed)[-]"
	default:
		return "[green]✓[-]"
	}
}
