package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "carebot-api" {
		t.Errorf("App.Name = %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Storage.DatabaseFile != "carebot.json" {
		t.Errorf("Storage.DatabaseFile = %q", cfg.Storage.DatabaseFile)
	}
	if cfg.Upload.MaxFileSize != 10*1024*1024 {
		t.Errorf("Upload.MaxFileSize = %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Upload.Dir != "uploads" {
		t.Errorf("Upload.Dir = %q", cfg.Upload.Dir)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_FILE_SIZE", "1048576")
	t.Setenv("UPLOAD_DIR", "/tmp/carebot-uploads")
	t.Setenv("ALLOWED_FILE_TYPES", "application/pdf, image/png")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if cfg.Upload.MaxFileSize != 1048576 {
		t.Errorf("Upload.MaxFileSize = %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if len(cfg.Upload.AllowedTypes) != 2 || cfg.Upload.AllowedTypes[1] != "image/png" {
		t.Errorf("Upload.AllowedTypes = %v", cfg.Upload.AllowedTypes)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	t.Setenv("PORT", "70000")
	t.Setenv("MAX_FILE_SIZE", "-1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "PORT") || !strings.Contains(err.Error(), "MAX_FILE_SIZE") {
		t.Errorf("expected both failures reported, got %v", err)
	}
}

func TestTypeAllowed(t *testing.T) {
	u := UploadConfig{AllowedTypes: []string{"application/pdf", "image/png"}}

	if !u.TypeAllowed("application/pdf") {
		t.Error("expected pdf allowed")
	}
	if u.TypeAllowed("application/zip") {
		t.Error("expected zip rejected")
	}
	if u.TypeAllowed("") {
		t.Error("expected empty type rejected")
	}
}

func TestMaxFileSizeMB(t *testing.T) {
	u := UploadConfig{MaxFileSize: 10 * 1024 * 1024}
	if got := u.MaxFileSizeMB(); got != 10 {
		t.Errorf("MaxFileSizeMB = %v", got)
	}
}
