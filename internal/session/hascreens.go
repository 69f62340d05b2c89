package session

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmarken/hearth_bbs/internal/homeauto"
	"github.com/tmarken/hearth_bbs/internal/store"
)

// --- Home automation setup ---

func renderHASetup(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Home Automation Setup ---")

	cfg, err := s.deps.Store.LoadHAConfig()
	if err != nil {
		s.errorLn("Error reading configuration.")
	}
	status := "NOT CONFIGURED"
	if cfg.Configured() {
		status = "configured"
	}
	s.Term.SendLn(fmt.Sprintf(" Server: %-24s (%s)", orUnset(cfg.Server), status))
	s.Term.SendLn(fmt.Sprintf(" Port:   %d", cfg.Port))
	s.Term.SendLn(" Token:  " + maskToken(cfg.Token))

	lights, _ := s.deps.Store.Lights()
	sensors, _ := s.deps.Store.Sensors()
	s.Term.SendLn(fmt.Sprintf(" Lights: %d   Sensors: %d", len(lights), len(sensors)))
	s.Term.SendLn("")
	s.Term.SendLn(" [1] Set server   [4] Add light")
	s.Term.SendLn(" [2] Set port     [5] Add sensor")
	s.Term.SendLn(" [3] Set token    [6] Back")
	return s.Term.Send("Choice: ")
}

func handleHASetup(s *Session, line string) (MenuState, error) {
	switch line {
	case "1":
		return StateHAServer, nil
	case "2":
		return StateHAPort, nil
	case "3":
		return StateHAToken, nil
	case "4":
		s.pendingEntityKind = "light"
		return StateHAAddLight, nil
	case "5":
		s.pendingEntityKind = "sensor"
		return StateHAAddLight, nil
	case "6", "":
		return StateSettings, nil
	}
	s.errorLn("Invalid choice.")
	return StateHASetup, nil
}

func renderHAServer(s *Session) error {
	return s.Term.Send("\r\nServer host (Enter to cancel): ")
}

func handleHAServer(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateHASetup, nil
	}
	return StateHASetup, s.updateHAConfig(func(cfg *store.HAConfig) { cfg.Server = line })
}

func renderHAPort(s *Session) error {
	return s.Term.Send("\r\nServer port (Enter to cancel): ")
}

func handleHAPort(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateHASetup, nil
	}
	port, err := strconv.Atoi(line)
	if err != nil || port < 1 || port > 65535 {
		s.errorLn("Port must be 1-65535.")
		return StateHAPort, nil
	}
	return StateHASetup, s.updateHAConfig(func(cfg *store.HAConfig) { cfg.Port = port })
}

func renderHAToken(s *Session) error {
	return s.Term.Send("\r\nAccess token (Enter to cancel): ")
}

func handleHAToken(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateHASetup, nil
	}
	return StateHASetup, s.updateHAConfig(func(cfg *store.HAConfig) { cfg.Token = line })
}

func (s *Session) updateHAConfig(apply func(*store.HAConfig)) error {
	cfg, err := s.deps.Store.LoadHAConfig()
	if err != nil {
		return err
	}
	apply(&cfg)
	if err := s.deps.Store.SaveHAConfig(cfg); err != nil {
		return err
	}
	s.Term.SendLn("Saved.")
	return nil
}

func renderHAAddLight(s *Session) error {
	return s.Term.Send(fmt.Sprintf("\r\nNew %s as id:name[:unit] (Enter to cancel): ", s.pendingEntityKind))
}

func handleHAAddLight(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateHASetup, nil
	}
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 2 {
		s.errorLn("Use id:name or id:name:unit.")
		return StateHAAddLight, nil
	}
	e := store.Entity{ID: parts[0], Name: parts[1]}
	if len(parts) == 3 {
		e.Unit = parts[2]
	}

	var err error
	if s.pendingEntityKind == "sensor" {
		err = s.deps.Store.AddSensor(e)
	} else {
		err = s.deps.Store.AddLight(e)
	}
	if err != nil {
		return StateHASetup, err
	}
	s.Term.SendLn("Added.")
	return StateHASetup, nil
}

// --- Home automation control ---

func renderHAControl(s *Session) error {
	s.Term.SendLn("")
	s.headingLn("--- Home Control ---")

	if !s.deps.HA.Configured() {
		s.Term.SendLn("Home automation is not configured.")
		s.Term.SendLn("Set server, port and token under Settings.")
		s.pressEnter(StateMain)
		return nil
	}

	lights, err := s.deps.Store.Lights()
	if err != nil {
		s.errorLn("Error reading light list.")
	}
	if len(lights) == 0 {
		s.Term.SendLn(" No lights configured.")
	}
	for i, l := range lights {
		s.Term.SendLn(fmt.Sprintf(" [%d] %s", i+1, l.Name))
	}
	s.Term.SendLn("")
	s.Term.SendLn(" # toggle light   A toggle all   S sensors   M main menu")
	return s.Term.Send("Choice (Enter for main menu): ")
}

func handleHAControl(s *Session, line string) (MenuState, error) {
	if line == "" {
		return StateMain, nil
	}

	switch upperByte(line[0]) {
	case 'A':
		if len(line) == 1 {
			ok, failed, err := s.deps.HA.ToggleAll()
			if err != nil {
				return StateHAControl, err
			}
			s.Term.SendLn(fmt.Sprintf("Toggled %d light(s), %d failed.", ok, failed))
			return StateHAControl, nil
		}
	case 'S':
		if len(line) == 1 {
			s.showSensors()
			return StateHAControl, nil
		}
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		s.errorLn("Invalid choice.")
		return StateHAControl, nil
	}
	lights, err := s.deps.Store.Lights()
	if err != nil {
		return StateHAControl, err
	}
	if n < 1 || n > len(lights) {
		s.errorLn("Invalid choice.")
		return StateHAControl, nil
	}

	ok, err := s.deps.HA.CallService("light", "toggle", lights[n-1].ID)
	if err != nil || !ok {
		// Refused, timed out or non-200: one generic, non-fatal notice.
		s.errorLn("Could not reach " + lights[n-1].Name + ".")
		return StateHAControl, nil
	}
	s.Term.SendLn("Toggled " + lights[n-1].Name + ".")
	return StateHAControl, nil
}

func (s *Session) showSensors() {
	sensors, err := s.deps.Store.Sensors()
	if err != nil {
		s.errorLn("Error reading sensor list.")
		return
	}
	if len(sensors) == 0 {
		s.Term.SendLn("No sensors configured.")
		return
	}

	for _, sensor := range sensors {
		state, err := s.deps.HA.GetState(sensor.ID)
		if err != nil {
			if errors.Is(err, homeauto.ErrNotConfigured) {
				s.errorLn("Home automation is not configured.")
				return
			}
			s.Term.SendLn(fmt.Sprintf(" %-20s (unavailable)", sensor.Name))
			continue
		}
		unit := sensor.Unit
		if unit != "" {
			unit = " " + unit
		}
		s.Term.SendLn(fmt.Sprintf(" %-20s %s%s", sensor.Name, state, unit))
	}
}

func orUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}

func maskToken(tok string) string {
	if tok == "" {
		return "(unset)"
	}
	if len(tok) <= 4 {
		return "****"
	}
	return tok[:2] + strings.Repeat("*", len(tok)-4) + tok[len(tok)-2:]
}
