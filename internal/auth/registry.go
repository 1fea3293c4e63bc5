// Package auth implements the identity and role gate: a sqlite-backed agent
// registry for self-issued API keys, an operator bypass secret, and a client
// for the legacy external verification service. A resolver tries the three
// paths in priority order; the first applicable path decides.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("agent not found")

// Registry is the durable store of self-registered agents. API keys are
// hashed before storage; the cleartext key is only returned at registration.
type Registry struct {
	db *sql.DB
}

type RegisteredAgent struct {
	ID         string
	Name       string
	APIKey     string
	ClaimToken string
}

type ClaimResult struct {
	AgentName      string
	AlreadyClaimed bool
}

// Verification is the result of an API-key lookup. An unclaimed key is not
// valid but carries the claim token so the caller can self-remediate.
type Verification struct {
	Valid      bool
	AgentID    string
	Name       string
	ClaimToken string
	Error      string
}

type AgentStatus struct {
	Exists    bool   `json:"exists"`
	Claimed   bool   `json:"claimed"`
	AgentName string `json:"agentName,omitempty"`
}

func OpenRegistry(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("empty registry path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	schema := `CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		api_key_hash TEXT NOT NULL UNIQUE,
		claim_token TEXT NOT NULL UNIQUE,
		claimed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		claimed_at TEXT
	);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error { return r.db.Close() }

func (r *Registry) Register(name, description string) (RegisteredAgent, error) {
	var out RegisteredAgent
	if name == "" || len(name) > 50 {
		return out, fmt.Errorf("name required (1-50 characters)")
	}

	key, err := newAPIKey()
	if err != nil {
		return out, err
	}
	out = RegisteredAgent{
		ID:         uuid.NewString(),
		Name:       name,
		APIKey:     key,
		ClaimToken: uuid.NewString(),
	}
	_, err = r.db.Exec(
		`INSERT INTO agents (id, name, description, api_key_hash, claim_token, claimed, created_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?)`,
		out.ID, out.Name, description, hashKey(key), out.ClaimToken, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return RegisteredAgent{}, err
	}
	return out, nil
}

func (r *Registry) Claim(token string) (ClaimResult, error) {
	var out ClaimResult
	if token == "" {
		return out, fmt.Errorf("claim token required")
	}
	var claimed int
	err := r.db.QueryRow(`SELECT name, claimed FROM agents WHERE claim_token = ?`, token).
		Scan(&out.AgentName, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return out, ErrNotFound
	}
	if err != nil {
		return out, err
	}
	if claimed != 0 {
		out.AlreadyClaimed = true
		return out, nil
	}
	_, err = r.db.Exec(`UPDATE agents SET claimed = 1, claimed_at = ? WHERE claim_token = ?`,
		time.Now().UTC().Format(time.RFC3339), token)
	if err != nil {
		return ClaimResult{}, err
	}
	return out, nil
}

func (r *Registry) Verify(apiKey string) (Verification, error) {
	var v Verification
	var claimed int
	err := r.db.QueryRow(
		`SELECT id, name, claim_token, claimed FROM agents WHERE api_key_hash = ?`, hashKey(apiKey)).
		Scan(&v.AgentID, &v.Name, &v.ClaimToken, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		v.Error = "unknown API key"
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if claimed == 0 {
		v.Error = "agent not yet claimed by a human"
		return v, nil
	}
	v.Valid = true
	v.ClaimToken = ""
	return v, nil
}

func (r *Registry) Status(apiKey string) (AgentStatus, error) {
	var s AgentStatus
	var claimed int
	err := r.db.QueryRow(`SELECT name, claimed FROM agents WHERE api_key_hash = ?`, hashKey(apiKey)).
		Scan(&s.AgentName, &claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	s.Exists = true
	s.Claimed = claimed != 0
	return s, nil
}

func newAPIKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "awk_" + hex.EncodeToString(raw), nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
