package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"API_PORT", "LOG_LEVEL", "POSTGRES_DSN", "NATS_URL", "NATS_SUBJECT",
		"OLLAMA_URL", "OLLAMA_GEN_MODEL", "OLLAMA_EMBED_MODEL",
		"QDRANT_URL", "QDRANT_COLLECTION", "STORAGE_PATH",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "TOP_K_RESULTS", "MAX_CONTEXT_CHARS", "TOP_SOURCES",
		"EXPANSION_RULES_PATH", "MAX_UPLOAD_BYTES", "ALLOWED_EXTENSIONS",
		"API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST", "API_MAX_CONCURRENT", "API_QUEUE_TIMEOUT_MS",
		"WORKER_METRICS_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.OllamaGenModel != "gemma3:1b" {
		t.Errorf("OllamaGenModel = %q, want gemma3:1b", cfg.OllamaGenModel)
	}
	if cfg.OllamaEmbedModel != "nomic-embed-text" {
		t.Errorf("OllamaEmbedModel = %q, want nomic-embed-text", cfg.OllamaEmbedModel)
	}
	if cfg.QdrantCollection != "documents" {
		t.Errorf("QdrantCollection = %q, want documents", cfg.QdrantCollection)
	}
	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 150 {
		t.Errorf("chunking = %d/%d, want 800/150", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopKResults != 10 || cfg.MaxContextChars != 2000 || cfg.TopSources != 5 {
		t.Errorf("retrieval = %d/%d/%d, want 10/2000/5", cfg.TopKResults, cfg.MaxContextChars, cfg.TopSources)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want 10485760", cfg.MaxUploadBytes)
	}
	if cfg.APIRateLimitRPS != 0 || cfg.APIMaxConcurrent != 64 {
		t.Errorf("traffic = %d/%d, want 0/64", cfg.APIRateLimitRPS, cfg.APIMaxConcurrent)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9999")
	t.Setenv("CHUNK_SIZE", "512")
	t.Setenv("MAX_UPLOAD_BYTES", "2048")
	t.Setenv("OLLAMA_GEN_MODEL", "llama3:8b")

	cfg := Load()

	if cfg.APIPort != "9999" {
		t.Errorf("APIPort = %q, want 9999", cfg.APIPort)
	}
	if cfg.ChunkSize != 512 {
		t.Errorf("ChunkSize = %d, want 512", cfg.ChunkSize)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Errorf("MaxUploadBytes = %d, want 2048", cfg.MaxUploadBytes)
	}
	if cfg.OllamaGenModel != "llama3:8b" {
		t.Errorf("OllamaGenModel = %q, want llama3:8b", cfg.OllamaGenModel)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("MAX_UPLOAD_BYTES", "ten megabytes")

	cfg := Load()

	if cfg.ChunkSize != 800 {
		t.Errorf("ChunkSize = %d, want fallback 800", cfg.ChunkSize)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Errorf("MaxUploadBytes = %d, want fallback 10485760", cfg.MaxUploadBytes)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Load()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }},
		{"overlap >= size", func(c *Config) { c.ChunkSize = 100; c.ChunkOverlap = 100 }},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.TopKResults = 0 }},
		{"zero context budget", func(c *Config) { c.MaxContextChars = 0 }},
		{"zero top sources", func(c *Config) { c.TopSources = 0 }},
		{"zero upload cap", func(c *Config) { c.MaxUploadBytes = 0 }},
		{"empty extensions", func(c *Config) { c.AllowedExtensions = " , " }},
		{"missing ollama url", func(c *Config) { c.OllamaURL = "" }},
		{"missing gen model", func(c *Config) { c.OllamaGenModel = "" }},
		{"missing qdrant url", func(c *Config) { c.QdrantURL = "" }},
		{"missing collection", func(c *Config) { c.QdrantCollection = "" }},
		{"missing dsn", func(c *Config) { c.PostgresDSN = "" }},
		{"missing nats subject", func(c *Config) { c.NATSSubject = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestAllowedExtensionList(t *testing.T) {
	cfg := Config{AllowedExtensions: " .PDF, txt ,,.md"}

	got := cfg.AllowedExtensionList()
	want := []string{".pdf", ".txt", ".md"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ext[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoadExpansionRulesDefaults(t *testing.T) {
	rules, err := LoadExpansionRules("")
	if err != nil {
		t.Fatalf("LoadExpansionRules: %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("expected built-in rules, got none")
	}
	for i, rule := range rules {
		if len(rule.Keywords) == 0 || rule.Probe == "" {
			t.Errorf("rule %d incomplete: %+v", i, rule)
		}
	}
	if !rules[1].Matches("what skills does he have?") {
		t.Error("skills rule should match a skills question")
	}
}

func TestLoadExpansionRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - keywords: ["Project", " built "]
    probe: "projects and work experience"
    k: 3
  - keywords: ["education"]
    probe: "education and degrees"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadExpansionRules(path)
	if err != nil {
		t.Fatalf("LoadExpansionRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	if rules[0].Keywords[0] != "project" || rules[0].Keywords[1] != "built" {
		t.Errorf("keywords not normalized: %v", rules[0].Keywords)
	}
	if rules[0].K != 3 {
		t.Errorf("K = %d, want 3", rules[0].K)
	}
	if rules[1].K != 0 {
		t.Errorf("unset K = %d, want 0", rules[1].K)
	}
}

func TestLoadExpansionRulesRejectsIncompleteRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `rules:
  - keywords: ["project"]
    probe: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadExpansionRules(path); err == nil {
		t.Fatal("expected error for rule without probe")
	}
}

func TestLoadExpansionRulesMissingFile(t *testing.T) {
	if _, err := LoadExpansionRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
