package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LegacyVerifier calls the external verification service used before the
// self-hosted registry existed. The call is bounded by Timeout; a connection
// whose verification times out is rejected, never left hanging.
type LegacyVerifier struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

type legacyResponse struct {
	Valid        bool   `json:"valid"`
	AgentName    string `json:"agentName"`
	PersistentID string `json:"persistentId"`
	Error        string `json:"error"`
	ClaimURL     string `json:"claimUrl"`
}

// LegacyResult mirrors the service's boundary: {valid, agentName,
// persistentId} on success, or an error with an optional claim URL.
type LegacyResult struct {
	Valid        bool
	AgentName    string
	PersistentID string
	Error        string
	ClaimURL     string
}

func (v *LegacyVerifier) Verify(ctx context.Context, apiKey string) (LegacyResult, error) {
	var out LegacyResult
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"apiKey": apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.BaseURL+"/api/verify", bytes.NewReader(body))
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	var lr legacyResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return out, fmt.Errorf("legacy verifier: %w", err)
	}
	out = LegacyResult{
		Valid:        lr.Valid,
		AgentName:    lr.AgentName,
		PersistentID: lr.PersistentID,
		Error:        lr.Error,
		ClaimURL:     lr.ClaimURL,
	}
	if out.Valid && out.PersistentID == "" {
		out.PersistentID = out.AgentName
	}
	return out, nil
}
