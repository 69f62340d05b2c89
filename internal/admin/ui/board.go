package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tmarken/hearth_bbs/internal/admin/app"
)

type boardModel struct {
	app *app.App

	width  int
	height int

	Done bool

	list list.Model
	err  error
}

type postItem struct {
	id    int
	title string
	desc  string
}

func (i postItem) Title() string       { return i.title }
func (i postItem) Description() string { return i.desc }
func (i postItem) FilterValue() string { return i.title }

func newBoardModel(a *app.App) *boardModel {
	m := &boardModel{app: a}
	m.reload()
	return m
}

func (m *boardModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *boardModel) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc":
			m.Done = true
			return nil
		case "r":
			m.reload()
			return nil
		case "d", "x":
			it, ok := m.list.SelectedItem().(postItem)
			if !ok {
				break
			}
			if err := m.app.Board.Delete(it.id); err != nil {
				m.err = err
				return nil
			}
			m.reload()
			return nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *boardModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Board error: %v\n\nPress q/Esc to go back.", m.err)
	}
	return m.list.View() + "\n(d to delete, r to refresh, q to go back)"
}

func (m *boardModel) reload() {
	if m.app.Board == nil {
		m.err = fmt.Errorf("database unavailable")
		return
	}

	posts, err := m.app.Board.List(100)
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(posts))
	for _, p := range posts {
		title := fmt.Sprintf("%s  <%s>", p.CreatedAt.Format("2006-01-02 15:04"), p.Author)
		items = append(items, postItem{id: p.ID, title: title, desc: p.Body})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
	m.list.Title = "Message Board"
}
