package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Iron-Ham/negotiator/internal/errors"
	"github.com/Iron-Ham/negotiator/internal/wire"
)

const sampleYAML = `
default: standard
context_rules:
  hospital: careful
profiles:
  - label: standard
    tasks: {deliver: 1}
    conditions: {fast: 1}
  - label: careful
    tasks: {deliver: 2}
    conditions: {escort: 1.5, night: -3}
`

func TestProfile_Value(t *testing.T) {
	p := Profile{
		Label:      "careful",
		Tasks:      map[string]float64{"deliver": 2},
		Conditions: map[string]float64{"escort": 1.5, "night": -3},
	}

	tests := []struct {
		name  string
		offer wire.Offer
		want  float64
	}{
		{"task only", wire.Offer{Task: "deliver"}, 2},
		{"with conditions", wire.Offer{Task: "deliver", Conditions: []string{"escort", "night"}}, 0.5},
		{"unknown task", wire.Offer{Task: "clean", Conditions: []string{"escort"}}, 1.5},
		{"unknown condition", wire.Offer{Task: "deliver", Conditions: []string{"loud"}}, 2},
		{"zero offer", wire.Offer{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Value(tt.offer); got != tt.want {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Default != "standard" {
		t.Errorf("Default = %q", f.Default)
	}
	if f.ContextRules["hospital"] != "careful" {
		t.Errorf("ContextRules = %v", f.ContextRules)
	}
	if len(f.Profiles) != 2 || f.Profiles[1].Conditions["night"] != -3 {
		t.Errorf("Profiles = %+v", f.Profiles)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "profiles: [\n"},
		{"missing label", "profiles:\n  - tasks: {a: 1}\n"},
		{"duplicate label", "profiles:\n  - label: a\n  - label: a\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	var pe *errors.ProfileError
	if !errors.As(err, &pe) {
		t.Fatalf("ReadFile() error = %v, want ProfileError", err)
	}
	if pe.Path == "" {
		t.Error("ProfileError.Path should be set")
	}
}

func writeProfiles(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	return path
}
