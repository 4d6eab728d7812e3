package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nebulaops/vnetctl/pkg/constants"
)

// TestLoadConfig verifies basic config loading.
func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config == nil {
		t.Fatal("LoadConfig() returned nil config")
	}

	// Verify defaults are set
	// Note: LogLevel may be empty (triggers precedence logic in logger.go)
	if config.LogFormat == "" {
		t.Error("LogFormat not set to default")
	}
	if config.Timeout == 0 {
		t.Error("Timeout not set to default")
	}
}

// TestConfig_FrontendEnvironment verifies the OpenNebula environment
// variables are picked up.
func TestConfig_FrontendEnvironment(t *testing.T) {
	t.Setenv(constants.EnvEndpoint, "http://frontend.example:2633/RPC2")
	t.Setenv(constants.EnvAuth, "alice:secret")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Endpoint != "http://frontend.example:2633/RPC2" {
		t.Errorf("Endpoint = %s, want ONE_XMLRPC value", config.Endpoint)
	}
	if config.Credential != "alice:secret" {
		t.Errorf("Credential = %s, want ONE_AUTH value", config.Credential)
	}
}

// TestConfig_ExplicitFile verifies a named config file is actually read.
func TestConfig_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vnetctl.yaml")
	content := "endpoint: http://cfg.example:2633/RPC2\ntimeout: 45s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig(%s) failed: %v", path, err)
	}

	if config.Endpoint != "http://cfg.example:2633/RPC2" {
		t.Errorf("Endpoint = %s, want value from config file", config.Endpoint)
	}
	if config.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", config.Timeout)
	}
	if config.ConfigFile != path {
		t.Errorf("ConfigFile = %s, want %s", config.ConfigFile, path)
	}
}

// TestConfig_ExplicitFileMissing verifies a named file that cannot be
// read is an error rather than silently ignored.
func TestConfig_ExplicitFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.yaml")

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("LoadConfig(%s) succeeded, want error", path)
	}
}

// TestConfig_Timeout verifies time duration parsing.
func TestConfig_Timeout(t *testing.T) {
	t.Setenv("TIMEOUT", "1m")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if config.Timeout != time.Minute {
		t.Errorf("Timeout = %v, want 1m", config.Timeout)
	}
}

// TestConfig_UpdateFromFlags verifies flags take precedence.
func TestConfig_UpdateFromFlags(t *testing.T) {
	config := &Config{Format: "table", LogLevel: "info"}

	config.UpdateFromFlags(true, false, true, "json", "debug")

	if !config.Verbose {
		t.Error("Verbose not updated from flags")
	}
	if !config.NoColor {
		t.Error("NoColor not updated from flags")
	}
	if config.Format != "json" {
		t.Errorf("Format = %s, want json", config.Format)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", config.LogLevel)
	}

	// Empty flag values keep the existing configuration
	config.UpdateFromFlags(false, false, false, "", "")
	if config.Format != "json" {
		t.Errorf("Format = %s, empty flag should not override", config.Format)
	}
	if config.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, empty flag should not override", config.LogLevel)
	}
}
