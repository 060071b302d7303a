package main

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("KPRINT_PRINTERS", "lobby  lab\tlibrary")
	t.Setenv("KPRINT_CUPS_URL", "ipp://cups.internal:631")
	t.Setenv("KPRINT_CUPS_PROXY_TOKEN", "Bearer proxy")
	t.Setenv("KPRINT_OIDC_CLIENT_ID", "kprint-dev")
	t.Setenv("KPRINT_ALLOWED_ORIGINS", "https://print.example,http://localhost:8081")

	c, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if want := (printerList{"lobby", "lab", "library"}); !reflect.DeepEqual(c.Printers, want) {
		t.Errorf("expected printers %v, got %v", want, c.Printers)
	}
	if c.CupsURL != "ipp://cups.internal:631" || c.CupsProxyToken != "Bearer proxy" {
		t.Errorf("unexpected print server settings %q %q", c.CupsURL, c.CupsProxyToken)
	}
	if c.OIDCClientID != "kprint-dev" {
		t.Errorf("unexpected client id %q", c.OIDCClientID)
	}
	if c.OIDCIssuer != "https://sso.csh.rit.edu/auth/realms/csh" {
		t.Errorf("expected the default issuer, got %q", c.OIDCIssuer)
	}
	if c.OIDCDiscoveryTimeout != 10*time.Second || c.PublicScheme != "https" || c.ChunkSize != 32768 {
		t.Errorf("unexpected defaults %+v", c)
	}
	if len(c.AllowedOrigins) != 2 {
		t.Errorf("expected two origins, got %v", c.AllowedOrigins)
	}
}

func TestLoadConfigRequired(t *testing.T) {
	t.Setenv("KPRINT_PRINTERS", "")
	t.Setenv("KPRINT_CUPS_URL", "")

	if _, err := loadConfig(); err == nil {
		t.Error("expected an error without printers and a print server url")
	}
}
