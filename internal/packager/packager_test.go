package packager

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/balaji-balu/wjdeploy/pkg/deployment"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		out[f.Name] = string(b)
	}
	return out
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

func TestBuildScheduled(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"run.py":           "print('hi')\n",
		"requirements.txt": "azure-storage-blob>=12.19.0\n",
		"lib/util.py":      "X = 1\n",
		"notes.md":         "not shipped\n",
	})
	m := Manifest{
		Name:        "nightly",
		DisplayName: "Nightly report",
		Type:        deployment.JobTriggered,
		Schedule:    "0 0 9 * * *",
		Entrypoint:  "run.py",
		SourceDir:   dir,
		Files:       []string{"requirements.txt", "lib/*.py", "run.py"},
		Settings: map[string]string{
			"data_container":                  "reports",
			"azure_storage_connection_string": "DefaultEndpointsProtocol=https;...",
			"openai_api_key":                  "sk-...",
		},
	}

	data, err := Builder{Now: fixedNow}.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files := readZip(t, data)

	var names []string
	for n := range files {
		names = append(names, n)
	}
	want := []string{"config.json", "lib/util.py", "requirements.txt", "run.py", "settings.job"}
	if diff := cmp.Diff(want, names, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("archive entries mismatch (-want +got):\n%s", diff)
	}

	var settings map[string]string
	if err := json.Unmarshal([]byte(files["settings.job"]), &settings); err != nil {
		t.Fatalf("settings.job: %v", err)
	}
	if settings["schedule"] != "0 0 9 * * *" {
		t.Errorf("schedule = %q", settings["schedule"])
	}

	var cfg jobConfig
	if err := json.Unmarshal([]byte(files["config.json"]), &cfg); err != nil {
		t.Fatalf("config.json: %v", err)
	}
	wantCfg := jobConfig{
		Name:        "nightly",
		DisplayName: "Nightly report",
		Type:        "triggered",
		Entrypoint:  "run.py",
		Settings:    map[string]string{"data_container": "reports"},
		GeneratedAt: "2026-10-19T09:00:00Z",
	}
	if diff := cmp.Diff(wantCfg, cfg); diff != "" {
		t.Errorf("config.json mismatch (-want +got):\n%s", diff)
	}
	if strings.Contains(files["config.json"], "sk-") {
		t.Error("config.json leaks a secret")
	}
}

func TestBuildManual(t *testing.T) {
	dir := writeTree(t, map[string]string{"run.sh": "#!/bin/sh\necho hi\n"})
	data, err := Builder{Now: fixedNow}.Build(Manifest{Name: "once", Entrypoint: "run.sh", SourceDir: dir})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files := readZip(t, data)
	if _, ok := files["settings.job"]; ok {
		t.Error("unscheduled job has a settings.job")
	}
	if files["run.sh"] != "#!/bin/sh\necho hi\n" {
		t.Errorf("run.sh = %q", files["run.sh"])
	}
}

func TestBuildErrors(t *testing.T) {
	dir := writeTree(t, map[string]string{"run.py": "", "config.json": "{}"})
	outside := writeTree(t, map[string]string{"src/run.py": "", "secret.txt": "hunter2"})
	tests := []struct {
		name string
		m    Manifest
		want string
	}{
		{"no name", Manifest{Entrypoint: "run.py", SourceDir: dir}, "name is required"},
		{"no entrypoint", Manifest{Name: "x", SourceDir: dir}, "entrypoint is required"},
		{"entrypoint missing", Manifest{Name: "x", Entrypoint: "main.py", SourceDir: dir}, "entrypoint main.py not found"},
		{"bad type", Manifest{Name: "x", Type: "weekly", Entrypoint: "run.py", SourceDir: dir}, "unknown job type"},
		{"continuous schedule", Manifest{Name: "x", Type: deployment.JobContinuous, Schedule: "0 0 9 * * *", Entrypoint: "run.py", SourceDir: dir}, "cannot have a schedule"},
		{"five field cron", Manifest{Name: "x", Schedule: "0 9 * * *", Entrypoint: "run.py", SourceDir: dir}, "want 6"},
		{"reserved file", Manifest{Name: "x", Entrypoint: "run.py", SourceDir: dir, Files: []string{"*.json"}}, "config.json is generated"},
		{"escapes source dir", Manifest{Name: "x", Entrypoint: "run.py", SourceDir: filepath.Join(outside, "src"), Files: []string{"../secret.txt"}}, "outside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Builder{}.Build(tt.m)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Build error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"webjob.yaml": `
name: nightly
display_name: Nightly report
type: Triggered
schedule: "0 0 9 * * *"
entrypoint: run.py
files:
  - requirements.txt
settings:
  data_container: reports
`,
	})
	m, err := LoadManifest(filepath.Join(dir, "webjob.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	want := Manifest{
		Name:        "nightly",
		DisplayName: "Nightly report",
		Type:        deployment.JobTriggered,
		Schedule:    "0 0 9 * * *",
		Entrypoint:  "run.py",
		SourceDir:   dir,
		Files:       []string{"requirements.txt"},
		Settings:    map[string]string{"data_container": "reports"},
	}
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadManifest(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Error("LoadManifest succeeded for a missing file")
	}
}

func TestLoadManifestFromSubdirectory(t *testing.T) {
	root := writeTree(t, map[string]string{
		"jobs/nightly/webjob.yaml": "name: nightly\nentrypoint: run.py\nfiles:\n  - lib/*.py\n",
		"jobs/nightly/run.py":      "print('hi')\n",
		"jobs/nightly/lib/util.py": "X = 1\n",
		"run.py":                   "print('wrong tree')\n",
	})
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	m, err := LoadManifest(filepath.Join("jobs", "nightly", "webjob.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if want := filepath.Join("jobs", "nightly"); m.SourceDir != want {
		t.Errorf("SourceDir = %q, want %q", m.SourceDir, want)
	}
	data, err := Builder{Now: fixedNow}.Build(m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files := readZip(t, data)
	if files["run.py"] != "print('hi')\n" {
		t.Errorf("run.py = %q, want the manifest's copy", files["run.py"])
	}
	if _, ok := files["lib/util.py"]; !ok {
		t.Errorf("lib/util.py missing from archive")
	}
}
