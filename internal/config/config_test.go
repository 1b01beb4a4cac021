package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DOCSITE_API_KEY", "DB_PATH", "WORKER_COUNT", "MAX_QUEUE_SIZE", "MAX_UPLOAD_BYTES", "JOB_TTL", "STATS_WINDOW", "PREVIEW_LIMIT", "PDF_FALLBACK_PDFTOTEXT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" || cfg.DBPath != "docsite.db" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 || cfg.MaxUploadBytes != 52428800 {
		t.Errorf("unexpected pool defaults %+v", cfg)
	}
	if cfg.JobTTL != time.Hour || cfg.StatsWindow != time.Hour || cfg.PreviewLimit != 6 {
		t.Errorf("unexpected duration defaults %+v", cfg)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback enabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("JOB_TTL", "15m")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")
	cfg := Load()
	if cfg.Port != "9000" || cfg.WorkerCount != 8 || cfg.JobTTL != 15*time.Minute || cfg.PDFFallbackPdftotext {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_NonPositiveFallsBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "0")
	t.Setenv("MAX_QUEUE_SIZE", "-3")
	t.Setenv("STATS_WINDOW", "-1s")
	t.Setenv("PREVIEW_LIMIT", "abc")
	cfg := Load()
	if cfg.WorkerCount != 4 || cfg.MaxQueueSize != 100 || cfg.StatsWindow != time.Hour || cfg.PreviewLimit != 6 {
		t.Errorf("expected defaults for invalid values, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{DBPath: "x.db"}).Validate(); err == nil {
		t.Error("expected error without api key")
	}
	if err := (Config{DocsiteAPIKey: "k"}).Validate(); err == nil {
		t.Error("expected error without db path")
	}
	if err := (Config{DocsiteAPIKey: "k", DBPath: "x.db"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
