package packager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

// Manifest describes the contents of a WebJob archive.
type Manifest struct {
	Name        string             `yaml:"name"`
	DisplayName string             `yaml:"display_name"`
	Type        deployment.JobType `yaml:"type"`
	// Schedule is a six-field CRON expression. Only triggered jobs use it.
	Schedule   string            `yaml:"schedule"`
	Entrypoint string            `yaml:"entrypoint"`
	SourceDir  string            `yaml:"source_dir"`
	Files      []string          `yaml:"files"`
	Settings   map[string]string `yaml:"settings"`
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	// source_dir is relative to the manifest, not to the working directory.
	if !filepath.IsAbs(m.SourceDir) {
		m.SourceDir = filepath.Join(filepath.Dir(path), m.SourceDir)
	}
	return m, m.Validate()
}

func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Entrypoint == "" {
		return fmt.Errorf("manifest: entrypoint is required")
	}
	jt, err := deployment.ParseJobType(string(m.Type))
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	m.Type = jt
	if m.Schedule != "" {
		if m.Type == deployment.JobContinuous {
			return fmt.Errorf("manifest: continuous jobs cannot have a schedule")
		}
		if n := len(strings.Fields(m.Schedule)); n != 6 {
			return fmt.Errorf("manifest: schedule %q has %d fields, want 6 (sec min hour day month weekday)", m.Schedule, n)
		}
	}
	return nil
}
