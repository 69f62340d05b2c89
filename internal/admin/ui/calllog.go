package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmarken/hearth_bbs/internal/admin/app"
)

type callLogModel struct {
	app *app.App

	width  int
	height int

	Done bool

	list list.Model
	err  error
}

type callItem struct {
	title string
	desc  string
}

func (i callItem) Title() string       { return i.title }
func (i callItem) Description() string { return i.desc }
func (i callItem) FilterValue() string { return i.title }

func newCallLogModel(a *app.App) *callLogModel {
	m := &callLogModel{app: a}
	m.reload()
	return m
}

func (m *callLogModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *callLogModel) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc":
			m.Done = true
			return nil
		case "r":
			m.reload()
			return nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *callLogModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Call log error: %v\n\nPress q/Esc to go back.", m.err)
	}
	return m.list.View() + "\n(r to refresh, q to go back)"
}

func (m *callLogModel) reload() {
	if m.app.Calls == nil {
		m.err = fmt.Errorf("database unavailable")
		return
	}

	calls, err := m.app.Calls.List(100)
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(calls))
	for _, c := range calls {
		who := c.Username
		if who == "" {
			who = "(no login)"
		}
		title := fmt.Sprintf("%s  %s", c.ConnectedAt.Format("2006-01-02 15:04"), who)

		desc := c.RemoteAddr
		if c.DisconnectedAt != nil {
			desc += fmt.Sprintf("  online %s", c.DisconnectedAt.Sub(c.ConnectedAt).Round(time.Second))
		} else {
			desc += "  still connected"
		}
		if c.AuthFailures > 0 {
			desc += fmt.Sprintf("  %d failed login(s)", c.AuthFailures)
		}
		items = append(items, callItem{title: title, desc: desc})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
	m.list.Title = "Call Log"
}
