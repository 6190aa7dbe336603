package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{"JWT_SECRET": "secret"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.Mongo.URI != "mongodb://localhost:27017" {
					t.Errorf("expected default mongo uri, got %s", cfg.Mongo.URI)
				}
				if cfg.Mongo.ConnectTimeout != 10*time.Second {
					t.Errorf("expected connect timeout 10s, got %v", cfg.Mongo.ConnectTimeout)
				}
				if cfg.Auth.Mode != AuthModeLocal {
					t.Errorf("expected auth mode local, got %s", cfg.Auth.Mode)
				}
				if cfg.Mail.Mode != MailModeLog {
					t.Errorf("expected mail mode log, got %s", cfg.Mail.Mode)
				}
				if cfg.Gemini.Timeout != 60*time.Second {
					t.Errorf("expected gemini timeout 60s, got %v", cfg.Gemini.Timeout)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":               "9000",
				"LOG_LEVEL":          "debug",
				"JWT_SECRET":         "secret",
				"TENANTS":            "acme, globex ,",
				"ALLOWED_ORIGINS":    "http://example.com,http://test.com",
				"GEMINI_TEMPERATURE": "0.2",
				"REDIS_ADDR":         "localhost:6379",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("expected log level debug, got %s", cfg.LogLevel)
				}
				if len(cfg.Mongo.Tenants) != 2 || cfg.Mongo.Tenants[1] != "globex" {
					t.Errorf("expected trimmed tenants [acme globex], got %v", cfg.Mongo.Tenants)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Errorf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
				}
				if cfg.Gemini.Temperature != 0.2 {
					t.Errorf("expected temperature 0.2, got %v", cfg.Gemini.Temperature)
				}
				if cfg.Redis.Addr != "localhost:6379" {
					t.Errorf("expected redis addr, got %s", cfg.Redis.Addr)
				}
			},
		},
		{
			name:    "local auth without secret",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "oidc without issuer",
			env:     map[string]string{"AUTH_MODE": "oidc"},
			wantErr: true,
		},
		{
			name:    "auth disabled in production",
			env:     map[string]string{"AUTH_MODE": "none", "ENV": "production"},
			wantErr: true,
		},
		{
			name:    "unknown auth mode",
			env:     map[string]string{"AUTH_MODE": "magic"},
			wantErr: true,
		},
		{
			name:    "invalid duration",
			env:     map[string]string{"JWT_SECRET": "secret", "MONGO_CONNECT_TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "invalid mail mode",
			env:     map[string]string{"JWT_SECRET": "secret", "MAIL_MODE": "pigeon"},
			wantErr: true,
		},
		{
			name:    "temperature out of range",
			env:     map[string]string{"JWT_SECRET": "secret", "GEMINI_TEMPERATURE": "3"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	for env, want := range map[string]bool{
		"development": false,
		"test":        false,
		"production":  true,
		"staging":     true,
	} {
		cfg := &Config{Env: env}
		if got := cfg.IsProduction(); got != want {
			t.Errorf("IsProduction(%q) = %v, want %v", env, got, want)
		}
	}
}
