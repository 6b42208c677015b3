package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENRICH_LLM_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	cfg := Load()

	if cfg.Server.Port != 8080 || cfg.Server.Mode != "release" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.LLM.Model != "gemini-2.5-flash-lite" || cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Pipeline.MaxCandidates != 10 || cfg.Pipeline.Workers != 1 || !cfg.Pipeline.SpecializedFallback {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.RecoveryLenient || cfg.LLM.TargetLanguage != "" {
		t.Error("lenient recovery and translation must default off")
	}
	if cfg.Scraper.AcceptLanguage != "en-GB,en;q=0.9" {
		t.Errorf("AcceptLanguage = %q", cfg.Scraper.AcceptLanguage)
	}
	if len(cfg.Engine.EscalationDelays) != 3 || cfg.Engine.EscalationDelays[2] != 5*time.Second {
		t.Errorf("EscalationDelays = %v", cfg.Engine.EscalationDelays)
	}
}

func TestLoadFallbackNames(t *testing.T) {
	t.Setenv("ENRICH_LLM_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("ENRICH_LLM_MODEL", "")
	t.Setenv("GEMINI_MODEL", "gemini-x")
	t.Setenv("ENRICH_DATABASE_URL", "")
	t.Setenv("SQL_CONN_STRING", "postgres://u@h/db")
	t.Setenv("API_KEY", "cse-key")
	t.Setenv("SEARCH_ENGINE_ID", "cx")

	cfg := Load()
	if cfg.LLM.APIKey != "g-key" || cfg.LLM.Model != "gemini-x" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Store.DatabaseURL != "postgres://u@h/db" {
		t.Errorf("DatabaseURL = %q", cfg.Store.DatabaseURL)
	}
	if cfg.Search.GoogleAPIKey != "cse-key" || cfg.Search.GoogleEngineID != "cx" {
		t.Errorf("Search = %+v", cfg.Search)
	}

	t.Setenv("ENRICH_LLM_API_KEY", "primary")
	if got := Load().LLM.APIKey; got != "primary" {
		t.Errorf("APIKey = %q, want the primary name to win", got)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENRICH_WORKERS", "4")
	t.Setenv("ENRICH_SPECIALIZED_FALLBACK", "false")
	t.Setenv("ENRICH_API_KEYS", " a , b ,,")
	t.Setenv("ENRICH_ESCALATION_DELAYS", "0s, 1s")
	t.Setenv("ENRICH_MAX_CANDIDATES", "not-a-number")

	cfg := Load()
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.SpecializedFallback {
		t.Errorf("Pipeline = %+v", cfg.Pipeline)
	}
	if strings.Join(cfg.Auth.APIKeys, "|") != "a|b" {
		t.Errorf("APIKeys = %q", cfg.Auth.APIKeys)
	}
	if len(cfg.Engine.EscalationDelays) != 2 || cfg.Engine.EscalationDelays[1] != time.Second {
		t.Errorf("EscalationDelays = %v", cfg.Engine.EscalationDelays)
	}
	if cfg.Pipeline.MaxCandidates != 10 {
		t.Errorf("MaxCandidates = %d, want default on parse error", cfg.Pipeline.MaxCandidates)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("ENRICH_LLM_API_KEY", "k")
	t.Setenv("ENRICH_DATABASE_URL", "")
	t.Setenv("SQL_CONN_STRING", "")
	t.Setenv("ENRICH_SEARCH_PROVIDER", "")

	cfg := Load()
	if err := cfg.Validate(false); err != nil {
		t.Errorf("dry run Validate = %v", err)
	}
	if err := cfg.Validate(true); err == nil || !strings.Contains(err.Error(), "ENRICH_DATABASE_URL") {
		t.Errorf("Validate(true) = %v, want missing database", err)
	}

	cfg.Search.Provider = "google"
	cfg.Pipeline.Workers = 0
	err := cfg.Validate(false)
	if err == nil || !strings.Contains(err.Error(), "SEARCH_ENGINE_ID") || !strings.Contains(err.Error(), "ENRICH_WORKERS") {
		t.Errorf("Validate = %v", err)
	}
}
