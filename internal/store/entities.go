package store

import (
	"errors"
	"path/filepath"
	"strings"
)

// Entity is one line of ha/lights.txt or ha/sensors.txt:
// entityId:displayName[:unit].
type Entity struct {
	ID   string
	Name string
	Unit string
}

func (s *Store) lightsPath() string  { return filepath.Join(s.haDir(), "lights.txt") }
func (s *Store) sensorsPath() string { return filepath.Join(s.haDir(), "sensors.txt") }

// Lights returns the configured light entities in file order.
func (s *Store) Lights() ([]Entity, error) {
	return readEntities(s.lightsPath())
}

// Sensors returns the configured sensor entities in file order.
func (s *Store) Sensors() ([]Entity, error) {
	return readEntities(s.sensorsPath())
}

// AddLight appends a light record.
func (s *Store) AddLight(e Entity) error {
	return addEntity(s.lightsPath(), e)
}

// AddSensor appends a sensor record.
func (s *Store) AddSensor(e Entity) error {
	return addEntity(s.sensorsPath(), e)
}

// RemoveLight deletes the light record with the given entity id.
func (s *Store) RemoveLight(id string) error {
	return removeEntity(s.lightsPath(), id)
}

// RemoveSensor deletes the sensor record with the given entity id.
func (s *Store) RemoveSensor(id string) error {
	return removeEntity(s.sensorsPath(), id)
}

func readEntities(path string) ([]Entity, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var out []Entity
	for _, line := range lines {
		if e, ok := parseEntity(line); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func addEntity(path string, e Entity) error {
	if e.ID == "" || e.Name == "" {
		return errors.New("entity id and name are required")
	}
	if strings.ContainsAny(e.ID+e.Name+e.Unit, ":\r\n") {
		return errors.New("entity fields contain invalid characters")
	}
	return appendLine(path, formatEntity(e))
}

func removeEntity(path, id string) error {
	return replaceRecords(path, func(line string) (string, bool) {
		if e, ok := parseEntity(line); ok && e.ID == id {
			return "", false
		}
		return line, true
	})
}

func parseEntity(line string) (Entity, bool) {
	parts := strings.Split(line, ":")
	if len(parts) < 2 || parts[0] == "" {
		return Entity{}, false
	}
	e := Entity{ID: parts[0], Name: parts[1]}
	if len(parts) >= 3 {
		e.Unit = parts[2]
	}
	return e, true
}

func formatEntity(e Entity) string {
	if e.Unit != "" {
		return e.ID + ":" + e.Name + ":" + e.Unit
	}
	return e.ID + ":" + e.Name
}
