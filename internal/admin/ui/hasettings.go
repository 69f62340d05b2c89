package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/tmarken/hearth_bbs/internal/admin/app"
	"github.com/tmarken/hearth_bbs/internal/store"
)

type homeAutoModel struct {
	app *app.App

	width  int
	height int

	Done bool

	state haState

	list list.Model
	err  error

	form *huh.Form

	server string
	port   string
	token  string
	save   bool

	entityKind string // "light" or "sensor"
	entityID   string
	entityName string
	entityUnit string
	entitySave bool
}

type haState int

const (
	haStateMenu haState = iota
	haStateServerForm
	haStateEntities
	haStateAddEntity
)

type haItem struct {
	title string
	desc  string
	kind  string
	id    string
}

func (i haItem) Title() string       { return i.title }
func (i haItem) Description() string { return i.desc }
func (i haItem) FilterValue() string { return i.title }

func newHomeAutoModel(a *app.App) *homeAutoModel {
	m := &homeAutoModel{app: a, state: haStateMenu}
	m.reloadMenu()
	return m
}

func (m *homeAutoModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *homeAutoModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc", "q", "enter":
				m.err = nil
				m.state = haStateMenu
				m.form = nil
				m.reloadMenu()
			}
		}
		return nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q":
			if m.state == haStateMenu {
				m.Done = true
				return nil
			}
		case "esc":
			m.back()
			return nil
		}
	}

	switch m.state {
	case haStateMenu:
		return m.updateMenu(msg)
	case haStateEntities:
		return m.updateEntities(msg)
	default:
		return m.updateForm(msg)
	}
}

func (m *homeAutoModel) updateMenu(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(haItem)
		if !ok {
			return cmd
		}
		switch it.kind {
		case "server":
			m.startServerForm()
		case "lights":
			m.entityKind = "light"
			m.state = haStateEntities
			m.reloadEntities()
		case "sensors":
			m.entityKind = "sensor"
			m.state = haStateEntities
			m.reloadEntities()
		case "back":
			m.Done = true
		}
		return nil
	}
	return cmd
}

func (m *homeAutoModel) updateEntities(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			it, ok := m.list.SelectedItem().(haItem)
			if !ok {
				return cmd
			}
			if it.kind == "add" {
				m.startAddEntity()
				return nil
			}
		case "d", "x":
			it, ok := m.list.SelectedItem().(haItem)
			if !ok || it.kind != "entity" {
				return cmd
			}
			var err error
			if m.entityKind == "sensor" {
				err = m.app.Store.RemoveSensor(it.id)
			} else {
				err = m.app.Store.RemoveLight(it.id)
			}
			if err != nil {
				m.err = err
				return nil
			}
			m.reloadEntities()
			return nil
		}
	}
	return cmd
}

func (m *homeAutoModel) updateForm(msg tea.Msg) tea.Cmd {
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
	case haStateServerForm:
		if m.save {
			port, err := strconv.Atoi(m.port)
			if err != nil || port < 1 || port > 65535 {
				m.err = fmt.Errorf("port must be 1-65535")
				return nil
			}
			cfg := store.HAConfig{Server: m.server, Port: port, Token: m.token}
			if err := m.app.Store.SaveHAConfig(cfg); err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.state = haStateMenu
		m.reloadMenu()
	case haStateAddEntity:
		if m.entitySave {
			e := store.Entity{ID: m.entityID, Name: m.entityName, Unit: m.entityUnit}
			var err error
			if m.entityKind == "sensor" {
				err = m.app.Store.AddSensor(e)
			} else {
				err = m.app.Store.AddLight(e)
			}
			if err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.state = haStateEntities
		m.reloadEntities()
	}
	return nil
}

func (m *homeAutoModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Home automation error: %v\n\nPress Enter/Esc to go back.", m.err)
	}

	switch m.state {
	case haStateMenu:
		return m.list.View() + "\n(q to quit, enter to select)"
	case haStateEntities:
		return m.list.View() + "\n(enter to add, d to delete, esc to go back)"
	default:
		return m.form.View() + "\n\n(esc to go back)"
	}
}

func (m *homeAutoModel) reloadMenu() {
	cfg, err := m.app.Store.LoadHAConfig()
	if err != nil {
		m.err = err
		return
	}
	status := "not configured"
	if cfg.Configured() {
		status = fmt.Sprintf("%s:%d", cfg.Server, cfg.Port)
	}

	lights, _ := m.app.Store.Lights()
	sensors, _ := m.app.Store.Sensors()

	items := []list.Item{
		haItem{title: "Server", desc: status, kind: "server"},
		haItem{title: "Lights", desc: fmt.Sprintf("%d configured", len(lights)), kind: "lights"},
		haItem{title: "Sensors", desc: fmt.Sprintf("%d configured", len(sensors)), kind: "sensors"},
		haItem{title: "Back", desc: "Return to main menu", kind: "back"},
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowHelp(true)
	m.list.Title = "Home Automation"
}

func (m *homeAutoModel) reloadEntities() {
	var (
		entities []store.Entity
		err      error
	)
	if m.entityKind == "sensor" {
		entities, err = m.app.Store.Sensors()
	} else {
		entities, err = m.app.Store.Lights()
	}
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(entities)+1)
	items = append(items, haItem{title: "+ Add " + m.entityKind, desc: "Create a new entry", kind: "add"})
	for _, e := range entities {
		desc := e.ID
		if e.Unit != "" {
			desc += " (" + e.Unit + ")"
		}
		items = append(items, haItem{title: e.Name, desc: desc, kind: "entity", id: e.ID})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(false)
	m.list.SetShowHelp(true)
	if m.entityKind == "sensor" {
		m.list.Title = "Sensors"
	} else {
		m.list.Title = "Lights"
	}
}

func (m *homeAutoModel) startServerForm() {
	cfg, err := m.app.Store.LoadHAConfig()
	if err != nil {
		m.err = err
		return
	}

	m.state = haStateServerForm
	m.server = cfg.Server
	m.port = strconv.Itoa(cfg.Port)
	m.token = cfg.Token
	m.save = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Server host").Value(&m.server).Validate(nonEmpty("server")),
			huh.NewInput().Title("Port").Value(&m.port).Validate(func(s string) error {
				n, err := strconv.Atoi(s)
				if err != nil || n < 1 || n > 65535 {
					return fmt.Errorf("must be 1-65535")
				}
				return nil
			}),
			huh.NewInput().Title("Access token").EchoMode(huh.EchoModePassword).Value(&m.token).Validate(nonEmpty("token")),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save settings?").Value(&m.save),
		),
	)
}

func (m *homeAutoModel) startAddEntity() {
	m.state = haStateAddEntity
	m.entityID = ""
	m.entityName = ""
	m.entityUnit = ""
	m.entitySave = true

	fields := []huh.Field{
		huh.NewInput().Title("Entity ID").Value(&m.entityID).Validate(nonEmpty("entity ID")),
		huh.NewInput().Title("Display name").Value(&m.entityName).Validate(nonEmpty("name")),
	}
	if m.entityKind == "sensor" {
		fields = append(fields, huh.NewInput().Title("Unit (optional)").Value(&m.entityUnit))
	}

	m.form = huh.NewForm(
		huh.NewGroup(fields...),
		huh.NewGroup(
			huh.NewConfirm().Title("Add "+m.entityKind+"?").Value(&m.entitySave),
		),
	)
}

func (m *homeAutoModel) back() {
	switch m.state {
	case haStateMenu:
		m.Done = true
	case haStateEntities:
		m.state = haStateMenu
		m.form = nil
		m.reloadMenu()
	case haStateAddEntity:
		m.state = haStateEntities
		m.form = nil
		m.reloadEntities()
	default:
		m.state = haStateMenu
		m.form = nil
		m.reloadMenu()
	}
}
