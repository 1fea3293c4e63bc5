package protocol

const (
	// Authorization.
	ErrNoPermission = "E_NO_PERMISSION"
	ErrAuthRequired = "E_AUTH_REQUIRED"
	ErrUnclaimed    = "E_UNCLAIMED"

	// Request validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Domain rules.
	ErrNoFunds     = "E_NO_FUNDS"
	ErrDailyCap    = "E_DAILY_CAP"
	ErrNotListed   = "E_NOT_LISTED"
	ErrNotFound    = "E_NOT_FOUND"
	ErrConflict    = "E_CONFLICT"
	ErrWorldFull   = "E_WORLD_FULL"
	ErrAlreadyDone = "E_ALREADY_DONE"
)

var knownCodes = map[string]struct{}{
	ErrNoPermission: {},
	ErrAuthRequired: {},
	ErrUnclaimed:    {},
	ErrBadRequest:   {},
	ErrNoFunds:      {},
	ErrDailyCap:     {},
	ErrNotListed:    {},
	ErrNotFound:     {},
	ErrConflict:     {},
	ErrWorldFull:    {},
	ErrAlreadyDone:  {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
