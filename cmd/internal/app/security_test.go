package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/Roro253/JBV-Microsite-Anthropic-sub000/cmd/security/token"
)

const testSecret = "0123456789abcdef0123456789abcdef-app-test"

func TestValidateSecurityConfig(t *testing.T) {
	cases := []struct {
		name    string
		secret  string
		cfg     Config
		wantErr string
	}{
		{name: "missing secret", secret: "", cfg: Config{}, wantErr: "missing"},
		{name: "short secret", secret: "short", cfg: Config{}, wantErr: "too short"},
		{name: "dev ok", secret: testSecret, cfg: Config{Env: "development"}},
		{name: "prod without smtp", secret: testSecret, cfg: Config{Env: "production", AuthorizedEmails: []string{"a@b.co"}}, wantErr: "JBV_SMTP_ADDR"},
		{name: "prod without registry", secret: testSecret, cfg: Config{Env: "production", SMTPAddr: "smtp:587", SMTPFrom: "ir@jbv.example"}, wantErr: "JBV_REGISTRY_URL"},
		{name: "prod registry db without database", secret: testSecret, cfg: Config{Env: "production", SMTPAddr: "smtp:587", SMTPFrom: "ir@jbv.example", RegistryDB: true}, wantErr: "JBV_DATABASE_URL"},
		{name: "prod registry db", secret: testSecret, cfg: Config{Env: "production", SMTPAddr: "smtp:587", SMTPFrom: "ir@jbv.example", RegistryDB: true, DatabaseURL: "postgres://localhost/jbv"}},
		{name: "prod ok", secret: testSecret, cfg: Config{Env: "prod", SMTPAddr: "smtp:587", SMTPFrom: "ir@jbv.example", RegistryURL: "https://registry.example/check"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(token.SecretEnvKey, tc.secret)
			err := ValidateSecurityConfig(tc.cfg)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrSecurityPolicy) || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v want %q", err, tc.wantErr)
			}
		})
	}
}
