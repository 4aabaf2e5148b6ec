// Package profile manages the ethics profiles that drive how an agent values
// offers, and selects the active profile from the current context.
package profile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

// Profile assigns weights to tasks and to the conditions an offer may carry.
// Unknown tasks and conditions weigh zero.
type Profile struct {
	Label      string             `yaml:"label"`
	Tasks      map[string]float64 `yaml:"tasks"`
	Conditions map[string]float64 `yaml:"conditions"`
}

// Value is the weight of the offer's task plus the weights of its conditions.
func (p Profile) Value(o wire.Offer) float64 {
	v := p.Tasks[o.Task]
	for _, c := range o.Conditions {
		v += p.Conditions[c]
	}
	return v
}

// clone copies the weight maps so callers cannot mutate the manager's table.
func (p Profile) clone() Profile {
	out := Profile{Label: p.Label}
	if p.Tasks != nil {
		out.Tasks = make(map[string]float64, len(p.Tasks))
		for k, v := range p.Tasks {
			out.Tasks[k] = v
		}
	}
	if p.Conditions != nil {
		out.Conditions = make(map[string]float64, len(p.Conditions))
		for k, v := range p.Conditions {
			out.Conditions[k] = v
		}
	}
	return out
}

// File is the on-disk profile document.
//
//	default: standard
//	context_rules:
//	  hospital: careful
//	profiles:
//	  - label: careful
//	    tasks: {deliver: 2}
//	    conditions: {escort: 1.5, night: -3}
type File struct {
	Default      string            `yaml:"default"`
	ContextRules map[string]string `yaml:"context_rules"`
	Profiles     []Profile         `yaml:"profiles"`
}

// Parse decodes and validates a profile document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewProfileError("parse profiles", err)
	}
	seen := make(map[string]bool, len(f.Profiles))
	for i, p := range f.Profiles {
		if p.Label == "" {
			return nil, errors.NewValidationError("profile without label").
				WithField(fmt.Sprintf("profiles[%d].label", i))
		}
		if seen[p.Label] {
			return nil, errors.NewValidationError("duplicate profile label").
				WithField(fmt.Sprintf("profiles[%d].label", i)).WithValue(p.Label)
		}
		seen[p.Label] = true
	}
	return &f, nil
}

// ReadFile reads and parses a profile document from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewProfileError("read profiles", err).WithPath(path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "profiles %s", path)
	}
	return f, nil
}

func sortedLabels(profiles map[string]Profile) []string {
	labels := make([]string, 0, len(profiles))
	for l := range profiles {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
