package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCredentialsYAMLExpandsEnv(t *testing.T) {
	t.Setenv("GUARDIAN_KEY", "secret-g")
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	content := `credentials:
  - provider_id: theguardian.com
    endpoint_url: https://content.guardianapis.com/search
    api_key: ${GUARDIAN_KEY}
  - provider_id: newsapi.org
    endpoint_url: https://newsapi.org/v2/everything
    api_key: plain
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	creds, err := LoadCredentials(path)
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if len(creds) != 2 || creds[0].APIKey != "secret-g" || creds[1].APIKey != "plain" {
		t.Fatalf("unexpected credentials %+v", creds)
	}

	store := NewMemoryStore()
	if err := SeedCredentials(context.Background(), store, creds); err != nil {
		t.Fatalf("SeedCredentials: %v", err)
	}
	got, err := store.Credential(context.Background(), "theguardian.com")
	if err != nil || got.APIKey != "secret-g" {
		t.Fatalf("seeded credential missing: %+v err=%v", got, err)
	}
}

func TestLoadCredentialsRejectsMissingKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	content := `{"credentials":[{"provider_id":"nytimes.com","endpoint_url":"https://api.nytimes.com","api_key":"${UNSET_NYT_KEY_FOR_TEST}"}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCredentials(path); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}
