package config

import (
	"os"
	"testing"
	"time"
)

func setMemoryEnv() {
	os.Clearenv()
	os.Setenv("STORE_DRIVER", "memory")
}

func TestLoad_Defaults(t *testing.T) {
	setMemoryEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "titan-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "titan-auth")
	}
	if cfg.JWTAudience != "titan-web" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "titan-web")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.EmailSender != "titan@localhost" {
		t.Errorf("EmailSender = %q, want default", cfg.EmailSender)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q, want development", cfg.Env)
	}
	if cfg.MailgunEnabled() {
		t.Error("MailgunEnabled should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setMemoryEnv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "14")
	os.Setenv("MAILGUN_DOMAIN", "mg.example.com")
	os.Setenv("MAILGUN_API_KEY", "key-123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
	if !cfg.MailgunEnabled() {
		t.Error("MailgunEnabled should be true when domain and key are set")
	}
}

func TestLoad_StoreDriver(t *testing.T) {
	testCases := []struct {
		name   string
		driver string
		dsn    string
		env    string
		err    bool
	}{
		{"memory", "memory", "", "", false},
		{"postgres with dsn", "postgres", "postgres://localhost/titan", "", false},
		{"postgres without dsn", "postgres", "", "", true},
		{"unknown driver", "mongo", "", "", true},
		{"memory in production", "memory", "", "production", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("STORE_DRIVER", tc.driver)
			if tc.dsn != "" {
				os.Setenv("DATABASE_URL", tc.dsn)
			}
			if tc.env != "" {
				os.Setenv("APP_ENV", tc.env)
				os.Setenv("COOKIE_KEY", "0123456789abcdef0123456789abcdef")
			}
			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				if cfg != nil {
					t.Error("Load should return nil config on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.StoreDriver != tc.driver {
				t.Errorf("StoreDriver = %q, want %q", cfg.StoreDriver, tc.driver)
			}
		})
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 12, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setMemoryEnv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_CookieKey(t *testing.T) {
	setMemoryEnv()
	os.Setenv("COOKIE_KEY", "too-short")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject a short COOKIE_KEY")
	}

	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost/titan")
	os.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("Load should require COOKIE_KEY in production")
	}
}

func TestSessionTTL(t *testing.T) {
	testCases := []struct {
		raw  string
		want time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"invalid", 168 * time.Hour},
		{"", 168 * time.Hour},
		{"-1h", 168 * time.Hour},
	}
	for _, tc := range testCases {
		cfg := &Config{SessionTTLRaw: tc.raw, InvitationTTLRaw: tc.raw}
		if got := cfg.SessionTTL(); got != tc.want {
			t.Errorf("SessionTTL(%q) = %v, want %v", tc.raw, got, tc.want)
		}
		if got := cfg.InvitationTTL(); got != tc.want {
			t.Errorf("InvitationTTL(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
