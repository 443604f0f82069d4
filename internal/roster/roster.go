// Package roster holds the fixed participant allow-list.
package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Roster is the set of names allowed to start a quiz.
// Matching trims whitespace but is otherwise exact.
type Roster struct {
	names map[string]struct{}
}

type rosterFile struct {
	Participants []string `yaml:"participants"`
}

// Load reads the allow-list from a YAML file.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read allow-list: %w", err)
	}
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse allow-list %s: %w", path, err)
	}
	return New(rf.Participants), nil
}

// New builds a roster from a list of names, dropping blanks.
func New(names []string) *Roster {
	r := &Roster{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		r.names[n] = struct{}{}
	}
	return r
}

// Contains reports whether name is on the allow-list.
func (r *Roster) Contains(name string) bool {
	_, ok := r.names[strings.TrimSpace(name)]
	return ok
}

// Names returns the allow-list in unspecified order.
func (r *Roster) Names() []string {
	out := make([]string, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	return out
}

// Len returns the number of allowed participants.
func (r *Roster) Len() int {
	return len(r.names)
}
