package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Persistence errors
	ErrPersistence     = fmt.Errorf("persistence failure")
	ErrCorruptSnapshot = fmt.Errorf("corrupt snapshot")

	// Collaborator errors
	ErrFetchFailed     = fmt.Errorf("fetch failed")
	ErrDownloadFailed  = fmt.Errorf("download failed")
	ErrToolUnavailable = fmt.Errorf("external tool unavailable")

	// Access errors
	ErrRestrictedAccess = fmt.Errorf("restricted access")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrNotFound        = fmt.Errorf("not found")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidPlaylist = fmt.Errorf("invalid playlist")
	ErrInvalidVideo    = fmt.Errorf("invalid video")
)

// RestrictedAccessError reports a playlist that requires authentication or is not visible.
//
// ItemCountHint is a best-effort count obtained from metadata and may be 0.
type RestrictedAccessError struct {
	PlaylistURL    string
	ItemCountHint  int
	AuthConfigured bool
	Liked          bool // Liked marks the provider's built-in liked/favorites collection
}

func (e *RestrictedAccessError) Error() string {
	var msg string
	if e.Liked {
		msg = "liked videos collection is private to its owner"
	} else {
		msg = "playlist is private or restricted"
	}
	if e.ItemCountHint > 0 {
		msg = fmt.Sprintf("%s (%d videos)", msg, e.ItemCountHint)
	}
	if e.AuthConfigured {
		return msg + ": browser cookies are enabled but were not accepted"
	}
	return msg + ": enable browser cookies to access it"
}

// Is matches [ErrRestrictedAccess].
func (e *RestrictedAccessError) Is(target error) bool {
	return target == ErrRestrictedAccess
}

// AsRestrictedAccess unwraps err into a [RestrictedAccessError] if it carries one.
func AsRestrictedAccess(err error) (*RestrictedAccessError, bool) {
	var rae *RestrictedAccessError
	if errors.As(err, &rae) {
		return rae, true
	}
	return nil, false
}
