package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-news-ingest/internal/domain"
)

type credentialsFile struct {
	Credentials []domain.Credential `json:"credentials" yaml:"credentials"`
}

// LoadCredentials reads provider credentials from a YAML or JSON file.
// ${VAR} references in endpoint_url and api_key are expanded from the environment.
func LoadCredentials(path string) ([]domain.Credential, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var file credentialsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &file)
	default:
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	if len(file.Credentials) == 0 {
		return nil, errors.New("credentials file contains no credentials entries")
	}

	out := make([]domain.Credential, 0, len(file.Credentials))
	for i, c := range file.Credentials {
		c.ProviderID = strings.TrimSpace(c.ProviderID)
		c.EndpointURL = strings.TrimSpace(os.ExpandEnv(c.EndpointURL))
		c.APIKey = strings.TrimSpace(os.ExpandEnv(c.APIKey))
		if err := validateCredential(c); err != nil {
			return nil, fmt.Errorf("credentials[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// SeedCredentials upserts every credential into the store.
func SeedCredentials(ctx context.Context, store CredentialStore, creds []domain.Credential) error {
	var errs []error
	for _, c := range creds {
		if err := store.PutCredential(ctx, c); err != nil {
			errs = append(errs, fmt.Errorf("seed %s: %w", c.ProviderID, err))
		}
	}
	return errors.Join(errs...)
}
