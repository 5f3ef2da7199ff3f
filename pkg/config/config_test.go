package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("data_dir: /var/lib/siodb/inst1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.DataDir != "/var/lib/siodb/inst1" {
		t.Fatalf("DataDir = %q", opts.DataDir)
	}
	if opts.CipherID != "none" || opts.LogLevel != "info" || opts.DataBlockAreaSize != 1<<20 {
		t.Fatalf("defaults not applied: %+v", opts)
	}
}

func TestLoadRequiresDataDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error when data_dir is missing")
	}
}

func TestResolveInstanceNamePrefersFlag(t *testing.T) {
	t.Setenv("SIODB_INSTANCE", "fromenv")
	name, err := ResolveInstanceName("fromflag")
	if err != nil || name != "fromflag" {
		t.Fatalf("ResolveInstanceName = (%q, %v)", name, err)
	}
}

func TestResolveInstanceNameFallsBackToEnv(t *testing.T) {
	t.Setenv("SIODB_INSTANCE", "fromenv")
	name, err := ResolveInstanceName("")
	if err != nil || name != "fromenv" {
		t.Fatalf("ResolveInstanceName = (%q, %v)", name, err)
	}
}

func TestResolveInstanceNameErrorsWhenNeitherSet(t *testing.T) {
	t.Setenv("SIODB_INSTANCE", "")
	if _, err := ResolveInstanceName(""); err == nil {
		t.Fatal("expected an error when neither flag nor env is set")
	}
}
