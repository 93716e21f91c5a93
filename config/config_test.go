package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `scheduler:
  timezone: "America/New_York"
  working_start_hour: 7
  working_end_hour: 23
calendar:
  mode: "mock"
  mock_address: ":9090"
store:
  backend: "sqlite"
  path: "diaguru.db"
http:
  address: ":9000"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"scheduler.timezone", cfg.Scheduler.Timezone, "America/New_York"},
		{"scheduler.working_start_hour", cfg.Scheduler.WorkingStartHour, 7},
		{"calendar.mode", cfg.Calendar.Mode, "mock"},
		{"calendar.mock_address", cfg.Calendar.MockAddress, ":9090"},
		{"store.backend", cfg.Store.Backend, "sqlite"},
		{"http.address", cfg.HTTP.Address, ":9000"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestStoreConfigValidate(t *testing.T) {
	c := StoreConfig{Backend: "postgres"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
