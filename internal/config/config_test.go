package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{CLI: "az", Login: LoginAuto, LogEnv: "production"}
	want.Trace.Exporter = "none"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wjdeploy.yaml")
	data := []byte("resource_group: demo-rg\nname: demo-app\nlogin: never\ntrace:\n  exporter: otlp\n  endpoint: collector:4317\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WJDEPLOY_CLI", "/opt/az/bin/az")
	t.Setenv("WJDEPLOY_TRACE_ENDPOINT", "otel:4317")

	v := NewViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}
	v.Set("verbose", true)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Config{
		CLI:    "/opt/az/bin/az",
		Login:  LoginNever,
		LogEnv: "development",
	}
	want.Trace.Exporter = "otlp"
	want.Trace.Endpoint = "otel:4317"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"login":          "sometimes",
		"trace.exporter": "zipkin",
		"cli":            "",
	}
	for key, val := range tests {
		v := NewViper()
		v.Set(key, val)
		if _, err := Load(v); err == nil {
			t.Errorf("Load accepted %s=%q", key, val)
		}
	}
}
