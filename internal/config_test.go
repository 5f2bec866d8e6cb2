package internal

import (
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/c-c-k/progirl/pkg/config"
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

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.SQLite.Enabled() {
		t.Error("index should be disabled without a database path")
	}
}

func TestResolverConfig_UnknownStrategy(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Resolver.Strategies = []string{"collection", "magic"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown strategy should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.Resolver.Mode = "magic"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown mode should fail validation")
	}
}

func TestAutoIDConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AutoID.Format = "base64"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown format should fail validation")
	}

	cfg = NewDefaultConfig()
	cfg.AutoID.Format = "hex"
	cfg.AutoID.Width = 6
	a := cfg.AutoID.Allocator(nil)
	if a.Format != "hex" || a.Width != 6 || a.Retries != cfg.AutoID.Retries {
		t.Errorf("allocator = %+v", a)
	}
}

func TestAutoIDConfig_StaleAfter(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.AutoID.StaleAfter = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero stale_after should disable recovery, got %v", err)
	}
	if a := cfg.AutoID.Allocator(nil); a.StaleAfter != 0 {
		t.Errorf("allocator stale after = %v, want 0", a.StaleAfter)
	}

	cfg.AutoID.StaleAfter = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("negative stale_after should fail validation")
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := NewDefaultConfig()
	if got := cfg.App.HTTP.Address(); got != "127.0.0.1:8080" {
		t.Errorf("default address = %q, want loopback", got)
	}
	cfg.App.HTTP.Host = ""
	if got := cfg.App.HTTP.Address(); got != ":8080" {
		t.Errorf("address = %q, want :8080", got)
	}
}

func TestPKBConfig_MissingPrefix(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.PKB.Prefix = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty prefix should fail validation")
	}
}

func TestExampleConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load("../config/config.yaml", cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.PKB.Collections) != 2 || cfg.PKB.Active != "default" {
		t.Errorf("pkb = %+v", cfg.PKB)
	}
	if got := cfg.PKB.Collections[1].FilenameTemplate; got != "${AUTO_ID}-${TITLE_CLEAN}${EXTENSION}" {
		t.Errorf("filename template = %q", got)
	}
	if cfg.AutoID.RetryDelay != 10*time.Millisecond || cfg.AutoID.StaleAfter != 2*time.Second {
		t.Errorf("auto_id = %+v", cfg.AutoID)
	}
	if !cfg.SQLite.Enabled() {
		t.Error("example config should enable the index")
	}
}
