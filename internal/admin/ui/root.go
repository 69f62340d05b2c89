// Package ui holds the admin tool's terminal interface.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmarken/hearth_bbs/internal/admin/app"
)

type screen int

const (
	screenHome screen = iota
	screenUsers
	screenHomeAuto
	screenCallLog
	screenBoard
)

type rootModel struct {
	app *app.App

	width  int
	height int

	active screen

	homeList list.Model
	err      error

	users    *usersModel
	homeauto *homeAutoModel
	calls    *callLogModel
	board    *boardModel
}

type menuItem struct {
	title string
	desc  string
	to    screen
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func NewRootModel(a *app.App) tea.Model {
	items := []list.Item{
		menuItem{title: "Users", desc: "Manage accounts in users.txt", to: screenUsers},
		menuItem{title: "Home Automation", desc: "Server settings, lights and sensors", to: screenHomeAuto},
		menuItem{title: "Call Log", desc: "Recent connections", to: screenCallLog},
		menuItem{title: "Message Board", desc: "View and delete posts", to: screenBoard},
		menuItem{title: "Quit", desc: "Exit", to: -1},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Hearth Admin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	return &rootModel{
		app:      a,
		active:   screenHome,
		homeList: l,
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.homeList.SetSize(msg.Width, msg.Height-2)
		if m.users != nil {
			m.users.SetSize(msg.Width, msg.Height)
		}
		if m.homeauto != nil {
			m.homeauto.SetSize(msg.Width, msg.Height)
		}
		if m.calls != nil {
			m.calls.SetSize(msg.Width, msg.Height)
		}
		if m.board != nil {
			m.board.SetSize(msg.Width, msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	switch m.active {
	case screenHome:
		return m.updateHome(msg)
	case screenUsers:
		cmd := m.users.Update(msg)
		if m.users.Done {
			m.active = screenHome
			m.users = nil
		}
		return m, cmd
	case screenHomeAuto:
		cmd := m.homeauto.Update(msg)
		if m.homeauto.Done {
			m.active = screenHome
			m.homeauto = nil
		}
		return m, cmd
	case screenCallLog:
		cmd := m.calls.Update(msg)
		if m.calls.Done {
			m.active = screenHome
			m.calls = nil
		}
		return m, cmd
	case screenBoard:
		cmd := m.board.Update(msg)
		if m.board.Done {
			m.active = screenHome
			m.board = nil
		}
		return m, cmd
	default:
		return m, nil
	}
}

func (m *rootModel) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.homeList, cmd = m.homeList.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if it, ok := m.homeList.SelectedItem().(menuItem); ok {
			if it.to == -1 {
				return m, tea.Quit
			}
			m.activate(it.to)
			return m, nil
		}
	}
	return m, cmd
}

func (m *rootModel) activate(s screen) {
	m.active = s

	switch s {
	case screenUsers:
		m.users = newUsersModel(m.app)
		m.users.SetSize(m.width, m.height)
	case screenHomeAuto:
		m.homeauto = newHomeAutoModel(m.app)
		m.homeauto.SetSize(m.width, m.height)
	case screenCallLog:
		m.calls = newCallLogModel(m.app)
		m.calls.SetSize(m.width, m.height)
	case screenBoard:
		m.board = newBoardModel(m.app)
		m.board.SetSize(m.width, m.height)
	}
}

func (m *rootModel) View() string {
	if m.err != nil {
		return errStyle.Render("Error: ") + m.err.Error()
	}

	switch m.active {
	case screenHome:
		return m.homeList.View()
	case screenUsers:
		return m.users.View()
	case screenHomeAuto:
		return m.homeauto.View()
	case screenCallLog:
		return m.calls.View()
	case screenBoard:
		return m.board.View()
	default:
		return titleStyle.Render("Unknown screen") + "\n" + fmt.Sprint(m.active)
	}
}
