package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/dupegraph/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestFullConfig_SimilarThresholds(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	cfg.Similar.GroupingThreshold = 0.3
	if err := cfg.Validate(); err == nil {
		t.Fatal("grouping threshold below 0.5 should fail")
	}
}

func TestFullConfig_SSEThrottle(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.SSE.Throttle(); got != 2*time.Second {
		t.Errorf("default throttle = %v", got)
	}
	cfg.SSE.ThrottleMS = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative throttle should fail")
	}
}

func TestLoad_YAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DUPEGRAPH_TEST_TOKEN", "s3cret")

	yamlPath := filepath.Join(dir, "config.yaml")
	yamlDoc := `app:
  log_level: debug
  http:
    port: 9090
vault:
  path: ./vault
sqlite:
  path: ./test.db
auth:
  mode: token
  token: ${DUPEGRAPH_TEST_TOKEN}
similar:
  similarity_threshold: 0.9
  grouping_threshold: 0.95
  exclude_unused: false
  exclude_organization: true
watch:
  enabled: false
sse:
  throttle_ms: 500
`
	if err := os.WriteFile(yamlPath, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	tomlPath := filepath.Join(dir, "config.toml")
	tomlDoc := `[app]
log_level = "debug"

[app.http]
port = 9090

[vault]
path = "./vault"

[sqlite]
path = "./test.db"

[auth]
mode = "token"
token = "${DUPEGRAPH_TEST_TOKEN}"

[similar]
similarity_threshold = 0.9
grouping_threshold = 0.95
exclude_unused = false
exclude_organization = true

[watch]
enabled = false

[sse]
throttle_ms = 500
`
	if err := os.WriteFile(tomlPath, []byte(tomlDoc), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{yamlPath, tomlPath} {
		cfg := NewDefaultConfig()
		if err := pkgconfig.Load(path, cfg); err != nil {
			t.Fatalf("load %s: %v", filepath.Base(path), err)
		}
		if cfg.App.HTTP.Port != 9090 || cfg.App.LogLevel != slog.LevelDebug {
			t.Errorf("%s: app = %+v", filepath.Base(path), cfg.App)
		}
		if cfg.Auth.Token != "s3cret" {
			t.Errorf("%s: token not expanded: %q", filepath.Base(path), cfg.Auth.Token)
		}
		if cfg.Similar.SimilarityThreshold != 0.9 || cfg.Similar.ExcludeUnused {
			t.Errorf("%s: similar = %+v", filepath.Base(path), cfg.Similar)
		}
		if cfg.Watch.Enabled || cfg.SSE.ThrottleMS != 500 {
			t.Errorf("%s: watch/sse = %+v %+v", filepath.Base(path), cfg.Watch, cfg.SSE)
		}
	}
}
