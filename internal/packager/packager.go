// Package packager builds WebJob zip archives from a manifest.
package packager

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	settingsJobName = "settings.job"
	configJSONName  = "config.json"
)

var secretMarkers = []string{"key", "secret", "password", "token", "connection_string"}

type jobConfig struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name,omitempty"`
	Type        string            `json:"type"`
	Entrypoint  string            `json:"entrypoint"`
	Settings    map[string]string `json:"settings,omitempty"`
	GeneratedAt string            `json:"generated_at"`
}

// Builder turns a manifest into archive bytes.
type Builder struct {
	Now func() time.Time
}

// Build returns the archive for m. File paths in the archive are relative to
// m.SourceDir and use forward slashes.
func (b Builder) Build(m Manifest) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	files, err := collect(m)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, rel := range files {
		if err := addFile(zw, filepath.Join(m.SourceDir, filepath.FromSlash(rel)), rel); err != nil {
			return nil, err
		}
	}
	if m.Schedule != "" {
		data, err := json.MarshalIndent(map[string]string{"schedule": m.Schedule}, "", "    ")
		if err != nil {
			return nil, err
		}
		if err := addBytes(zw, settingsJobName, append(data, '\n')); err != nil {
			return nil, err
		}
	}
	data, err := json.MarshalIndent(b.jobConfig(m), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := addBytes(zw, configJSONName, data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b Builder) jobConfig(m Manifest) jobConfig {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	cfg := jobConfig{
		Name:        m.Name,
		DisplayName: m.DisplayName,
		Type:        string(m.Type),
		Entrypoint:  m.Entrypoint,
		GeneratedAt: now().UTC().Format(time.RFC3339),
	}
	for k, v := range m.Settings {
		if isSecret(k) {
			continue
		}
		if cfg.Settings == nil {
			cfg.Settings = make(map[string]string)
		}
		cfg.Settings[k] = v
	}
	return cfg
}

func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}

// collect expands the manifest globs into a sorted, de-duplicated list of
// slash-separated paths. The entrypoint is always included.
func collect(m Manifest) ([]string, error) {
	seen := make(map[string]bool)
	patterns := append([]string{m.Entrypoint}, m.Files...)
	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(m.SourceDir, filepath.FromSlash(p)))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", p, err)
		}
		for _, match := range matches {
			fi, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if !fi.Mode().IsRegular() {
				continue
			}
			rel, err := filepath.Rel(m.SourceDir, match)
			if err != nil {
				return nil, err
			}
			if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return nil, fmt.Errorf("pattern %q matches %s outside %s", p, match, m.SourceDir)
			}
			seen[filepath.ToSlash(rel)] = true
		}
	}
	if !seen[filepath.ToSlash(filepath.Clean(m.Entrypoint))] {
		return nil, fmt.Errorf("entrypoint %s not found in %s", m.Entrypoint, m.SourceDir)
	}
	for _, reserved := range []string{settingsJobName, configJSONName} {
		if seen[reserved] {
			return nil, fmt.Errorf("%s is generated and must not be listed in files", reserved)
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func addBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
