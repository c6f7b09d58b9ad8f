package cli

import (
	"os"
	"path/filepath"
	"time"

	json "github.com/json-iterator/go"
)

// Credentials is the saved session
type Credentials struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
}

// Valid reports whether the token is present and unexpired
func (c *Credentials) Valid() bool {
	return c != nil && c.Token != "" && time.Now().Before(c.ExpiresAt)
}

type credentialStore struct {
	path string
}

func newCredentialStore(dir string) credentialStore {
	return credentialStore{path: filepath.Join(dir, "credentials")}
}

// Load returns nil, nil when nothing has been saved
func (s credentialStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s credentialStore) Save(creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s credentialStore) Delete() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
