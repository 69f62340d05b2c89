package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/tmarken/hearth_bbs/internal/admin/app"
	"github.com/tmarken/hearth_bbs/internal/store"
)

type usersModel struct {
	app *app.App

	width  int
	height int

	Done bool

	state usersState

	list list.Model
	err  error

	selected *store.UserRecord

	form *huh.Form

	createUsername string
	createPassword string
	createAdmin    bool
	createSave     bool

	newPassword string
	pwConfirm   string
	pwSave      bool

	adminFlag bool
	adminSave bool

	deleteConfirm bool
}

type usersState int

const (
	usersStateList usersState = iota
	usersStateDetail
	usersStateCreate
	usersStateResetPassword
	usersStateSetAdmin
	usersStateDelete
)

type userItem struct {
	title string
	desc  string
	kind  string
}

func (i userItem) Title() string       { return i.title }
func (i userItem) Description() string { return i.desc }
func (i userItem) FilterValue() string { return i.title }

func newUsersModel(a *app.App) *usersModel {
	m := &usersModel{app: a, state: usersStateList}
	m.reloadList()
	return m
}

func (m *usersModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *usersModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc", "q", "enter":
				m.err = nil
				m.state = usersStateList
				m.form = nil
				m.selected = nil
				m.reloadList()
			}
		}
		return nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q":
			if m.state == usersStateList {
				m.Done = true
				return nil
			}
		case "esc":
			m.back()
			return nil
		}
	}

	switch m.state {
	case usersStateList:
		return m.updateList(msg)
	case usersStateDetail:
		return m.updateDetail(msg)
	default:
		return m.updateForm(msg)
	}
}

func (m *usersModel) updateList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		if it.kind == "create" {
			m.startCreate()
			return nil
		}

		u, err := m.app.Store.FindUser(it.title)
		if err != nil {
			m.err = err
			return nil
		}
		m.selected = u
		m.state = usersStateDetail
		m.list = newUserActionList(m.width, m.height)
		return nil
	}
	return cmd
}

func (m *usersModel) updateDetail(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		switch it.kind {
		case "reset_password":
			m.startResetPassword()
		case "set_admin":
			m.startSetAdmin()
		case "delete":
			m.startDelete()
		case "back":
			m.back()
		}
		return nil
	}
	return cmd
}

func (m *usersModel) updateForm(msg tea.Msg) tea.Cmd {
	if m.form == nil {
		m.err = fmt.Errorf("internal error: form not initialized")
		return nil
	}
	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f
	if m.form.State != huh.StateCompleted {
		return cmd
	}

	switch m.state {
	case usersStateCreate:
		if m.createSave {
			err := m.app.Store.AddUser(store.UserRecord{
				Username: m.createUsername,
				Password: m.createPassword,
				Admin:    m.createAdmin,
			})
			if err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.state = usersStateList
		m.reloadList()
	case usersStateResetPassword:
		if m.pwSave && m.selected != nil {
			if err := m.app.Store.UpdatePassword(m.selected.Username, m.newPassword); err != nil {
				m.err = err
				return nil
			}
		}
		m.toDetail()
	case usersStateSetAdmin:
		if m.adminSave && m.selected != nil {
			if err := m.app.Store.SetAdmin(m.selected.Username, m.adminFlag); err != nil {
				m.err = err
				return nil
			}
		}
		m.toDetail()
	case usersStateDelete:
		if m.deleteConfirm && m.selected != nil {
			if err := m.app.Store.RemoveUser(m.selected.Username); err != nil {
				m.err = err
				return nil
			}
			m.form = nil
			m.selected = nil
			m.state = usersStateList
			m.reloadList()
			return nil
		}
		m.toDetail()
	}
	return nil
}

func (m *usersModel) toDetail() {
	m.refreshSelected()
	m.form = nil
	m.state = usersStateDetail
	m.list = newUserActionList(m.width, m.height)
}

func (m *usersModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Users error: %v\n\nPress Enter/Esc to go back.", m.err)
	}

	switch m.state {
	case usersStateList:
		m.list.Title = "Users"
		return m.list.View() + "\n(q to quit, enter to select)"
	case usersStateDetail:
		if m.selected == nil {
			return "No user selected\n\n(esc to go back)"
		}
		role := "user"
		if m.selected.Admin {
			role = "admin"
		}
		header := fmt.Sprintf("User: %s (%s)\n\n", m.selected.Username, role)
		m.list.Title = "Actions"
		return header + m.list.View() + "\n(esc to go back)"
	default:
		return m.form.View() + "\n\n(esc to go back)"
	}
}

func (m *usersModel) reloadList() {
	users, err := m.app.Store.Users()
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(users)+1)
	items = append(items, userItem{title: "+ Create new user", desc: "Add a new account", kind: "create"})
	for _, u := range users {
		desc := "user"
		if u.Admin {
			desc = "admin"
		}
		items = append(items, userItem{title: u.Username, desc: desc, kind: "user"})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
	m.list.Title = "Users"
}

func newUserActionList(w, h int) list.Model {
	items := []list.Item{
		userItem{title: "Reset password", desc: "Set a new password", kind: "reset_password"},
		userItem{title: "Admin flag", desc: "Grant or revoke admin", kind: "set_admin"},
		userItem{title: "Delete user", desc: "Remove the account record", kind: "delete"},
		userItem{title: "Back", desc: "Return to users list", kind: "back"},
	}
	l := list.New(items, list.NewDefaultDelegate(), w, h-6)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	return l
}

func (m *usersModel) startCreate() {
	m.state = usersStateCreate
	m.createUsername = ""
	m.createPassword = ""
	m.createAdmin = false
	m.createSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&m.createUsername).Validate(nonEmpty("username")),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.createPassword).Validate(nonEmpty("password")),
			huh.NewConfirm().Title("Admin").Value(&m.createAdmin),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Create user?").Value(&m.createSave),
		),
	)
}

func (m *usersModel) startResetPassword() {
	m.state = usersStateResetPassword
	m.newPassword = ""
	m.pwConfirm = ""
	m.pwSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&m.newPassword).Validate(nonEmpty("password")),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&m.pwConfirm).Validate(func(s string) error {
				if s != m.newPassword {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Reset password?").Value(&m.pwSave),
		),
	)
}

func (m *usersModel) startSetAdmin() {
	m.state = usersStateSetAdmin
	m.adminFlag = m.selected.Admin
	m.adminSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Admin enabled").Value(&m.adminFlag),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save admin flag?").Value(&m.adminSave),
		),
	)
}

func (m *usersModel) startDelete() {
	m.state = usersStateDelete
	m.deleteConfirm = false
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(fmt.Sprintf("Delete %s? The mailbox stays on disk.", m.selected.Username)).Value(&m.deleteConfirm),
		),
	)
}

func (m *usersModel) back() {
	switch m.state {
	case usersStateList:
		m.Done = true
	case usersStateDetail:
		m.state = usersStateList
		m.selected = nil
		m.form = nil
		m.reloadList()
	default:
		m.state = usersStateDetail
		m.form = nil
		m.list = newUserActionList(m.width, m.height)
	}
}

func (m *usersModel) refreshSelected() {
	if m.selected == nil {
		return
	}
	u, err := m.app.Store.FindUser(m.selected.Username)
	if err == nil {
		m.selected = u
	}
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
