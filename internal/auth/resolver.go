package auth

import (
	"context"
	"fmt"

	"aiworld.dev/internal/protocol"
)

// Identity is a verified agent identity bound to a connection: the durable
// persistentId survives reconnects, the display name is what other agents see.
type Identity struct {
	PersistentID string
	Name         string
	Verified     bool
}

// Rejection explains a failed resolution with enough detail for the caller to
// self-remediate (machine-readable code, claim URL when applicable).
type Rejection struct {
	Code     string
	Error    string
	ClaimURL string
	Hint     string
}

// Resolver tries the three credential paths in priority order: self-issued
// API key, operator bypass secret, legacy external service. Presenting a
// credential for an earlier path makes that path's outcome final; there is no
// fallback to later paths.
type Resolver struct {
	Registry     *Registry
	BypassSecret string
	Legacy       *LegacyVerifier
	ClaimBaseURL string
}

func (r *Resolver) Resolve(ctx context.Context, msg protocol.IdentifyMsg) (Identity, *Rejection) {
	// Path 1: self-issued API key against the registry.
	if msg.APIKey != "" {
		if r.Registry == nil {
			return Identity{}, &Rejection{
				Code:  protocol.ErrAuthRequired,
				Error: "agent registry is not enabled on this server",
			}
		}
		v, err := r.Registry.Verify(msg.APIKey)
		if err != nil {
			return Identity{}, &Rejection{Code: protocol.ErrAuthRequired, Error: "verification failed, try again"}
		}
		if !v.Valid {
			rej := &Rejection{Code: protocol.ErrAuthRequired, Error: v.Error}
			if v.ClaimToken != "" {
				rej.Code = protocol.ErrUnclaimed
				rej.ClaimURL = fmt.Sprintf("%s/claim/%s", r.ClaimBaseURL, v.ClaimToken)
				rej.Hint = "have your human visit the claim URL, then reconnect"
			}
			return Identity{}, rej
		}
		return Identity{PersistentID: v.AgentID, Name: v.Name, Verified: true}, nil
	}

	// Path 2: operator bypass for trusted/dev connections.
	if r.BypassSecret != "" && msg.BypassKey == r.BypassSecret {
		name := msg.AgentName
		if name == "" {
			name = "DevLobster"
		}
		return Identity{PersistentID: name, Name: name, Verified: true}, nil
	}

	// Path 3: legacy external verification.
	if msg.LegacyAPIKey != "" {
		if r.Legacy == nil {
			return Identity{}, &Rejection{
				Code:  protocol.ErrAuthRequired,
				Error: "legacy verification is not enabled on this server",
			}
		}
		res, err := r.Legacy.Verify(ctx, msg.LegacyAPIKey)
		if err != nil {
			return Identity{}, &Rejection{Code: protocol.ErrAuthRequired, Error: "legacy verification failed: " + err.Error()}
		}
		if !res.Valid {
			return Identity{}, &Rejection{
				Code:     protocol.ErrAuthRequired,
				Error:    res.Error,
				ClaimURL: res.ClaimURL,
			}
		}
		return Identity{PersistentID: res.PersistentID, Name: res.AgentName, Verified: true}, nil
	}

	return Identity{}, &Rejection{
		Code:  protocol.ErrAuthRequired,
		Error: "API key required",
		Hint:  "register at POST /api/agents/register, or supply apiKey / legacyApiKey",
	}
}
