package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Credential lifecycle statuses.
const (
	StatusConfigured    = "configured"    // API key + secret stored
	StatusAuthenticated = "authenticated" // access token present
)

// ErrCredentialsNotFound is returned when a broker has no stored credentials.
var ErrCredentialsNotFound = errors.New("credentials not found")

// Credential is one broker's stored API credential set. Secret and access
// token are decrypted on read.
type Credential struct {
	Broker      string
	APIKey      string
	APISecret   string
	AccessToken string
	Status      string
	UpdatedAt   time.Time
}

// CredentialStore keeps broker API credentials in SQLite with secrets and
// access tokens encrypted (AES-256-GCM) at rest.
type CredentialStore struct {
	db  *sql.DB
	key []byte
}

const credentialSchema = `
CREATE TABLE IF NOT EXISTS broker_credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	broker TEXT UNIQUE NOT NULL,
	api_key TEXT NOT NULL,
	api_secret_encrypted TEXT NOT NULL,
	access_token_encrypted TEXT,
	status TEXT DEFAULT 'configured',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_broker_credentials_broker ON broker_credentials(broker);
`

// NewCredentialStore opens (or creates) the SQLite database at path and
// prepares the schema. encryptionKey must be a base64-encoded 32-byte key.
func NewCredentialStore(path, encryptionKey string) (*CredentialStore, error) {
	key, err := base64.StdEncoding.DecodeString(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open credential db: %w", err)
	}
	if _, err := db.Exec(credentialSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init credential schema: %w", err)
	}

	return &CredentialStore{db: db, key: key}, nil
}

// Close releases the underlying database handle.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}

// SaveCredentials stores or replaces a broker's API key and secret. Any
// previously stored access token is cleared and the status reset.
func (s *CredentialStore) SaveCredentials(broker, apiKey, apiSecret string) error {
	encSecret, err := s.encrypt(apiSecret)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO broker_credentials (broker, api_key, api_secret_encrypted, status, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(broker) DO UPDATE SET
			api_key = excluded.api_key,
			api_secret_encrypted = excluded.api_secret_encrypted,
			access_token_encrypted = NULL,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP`,
		broker, apiKey, encSecret, StatusConfigured)
	return err
}

// SaveAccessToken stores a broker's access token and marks it authenticated.
func (s *CredentialStore) SaveAccessToken(broker, accessToken string) error {
	encToken, err := s.encrypt(accessToken)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE broker_credentials
		SET access_token_encrypted = ?, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE broker = ?`,
		encToken, StatusAuthenticated, broker)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCredentialsNotFound
	}
	return nil
}

// ClearAccessToken drops a broker's access token, reverting it to configured.
func (s *CredentialStore) ClearAccessToken(broker string) error {
	_, err := s.db.Exec(`
		UPDATE broker_credentials
		SET access_token_encrypted = NULL, status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE broker = ?`,
		StatusConfigured, broker)
	return err
}

// Get returns a broker's decrypted credentials.
func (s *CredentialStore) Get(broker string) (*Credential, error) {
	row := s.db.QueryRow(`
		SELECT api_key, api_secret_encrypted, access_token_encrypted, status, updated_at
		FROM broker_credentials WHERE broker = ?`, broker)

	var (
		cred     = Credential{Broker: broker}
		encSec   string
		encToken sql.NullString
	)
	err := row.Scan(&cred.APIKey, &encSec, &encToken, &cred.Status, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCredentialsNotFound
	}
	if err != nil {
		return nil, err
	}

	if cred.APISecret, err = s.decrypt(encSec); err != nil {
		return nil, fmt.Errorf("decrypt api secret: %w", err)
	}
	if encToken.Valid && encToken.String != "" {
		if cred.AccessToken, err = s.decrypt(encToken.String); err != nil {
			return nil, fmt.Errorf("decrypt access token: %w", err)
		}
	}
	return &cred, nil
}

// Delete removes a broker's credentials entirely.
func (s *CredentialStore) Delete(broker string) error {
	_, err := s.db.Exec(`DELETE FROM broker_credentials WHERE broker = ?`, broker)
	return err
}

// List returns the broker names with stored credentials and their statuses.
func (s *CredentialStore) List() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT broker, status FROM broker_credentials ORDER BY broker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[string]string)
	for rows.Next() {
		var broker, status string
		if err := rows.Scan(&broker, &status); err != nil {
			return nil, err
		}
		statuses[broker] = status
	}
	return statuses, rows.Err()
}

// --- Encryption ---

// encrypt seals plaintext with AES-256-GCM; output is base64(nonce||cipher).
func (s *CredentialStore) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *CredentialStore) decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// GenerateEncryptionKey returns a fresh random base64 key suitable for
// NewCredentialStore.
func GenerateEncryptionKey() (string, error) {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
