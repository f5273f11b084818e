package tasks

import "strings"

// FetchOutcome classifies the result of listing a playlist's items.
type FetchOutcome int

const (
	FetchOK FetchOutcome = iota
	FetchEmpty
	FetchRestricted
	FetchTransportError
)

func (o FetchOutcome) String() string {
	switch o {
	case FetchOK:
		return "ok"
	case FetchEmpty:
		return "empty"
	case FetchRestricted:
		return "restricted"
	case FetchTransportError:
		return "transport_error"
	default:
		return "unknown"
	}
}

// restrictionMarkers are matched case-insensitively against fetch diagnostics.
var restrictionMarkers = []string{
	"this playlist is private",
	"private",
	"members-only",
	"members only",
	"sign in",
	"login required",
	"unavailable",
	"does not exist",
}

// transportPhrases contain a marker word but describe a transport failure.
var transportPhrases = []string{
	"service unavailable",
	"temporarily unavailable",
}

// Classify maps a fetch's diagnostic text, item count and success flag to a [FetchOutcome].
//
// Restriction markers only count when no items were listed. A failed fetch without a marker is a
// transport error. A successful fetch with no items is [FetchEmpty]; the engine double-checks those
// against playlist metadata.
func Classify(diagnostic string, itemCount int, ok bool) FetchOutcome {
	if itemCount == 0 && hasRestrictionMarker(diagnostic) {
		return FetchRestricted
	}
	if !ok {
		return FetchTransportError
	}
	if itemCount == 0 {
		return FetchEmpty
	}
	return FetchOK
}

func hasRestrictionMarker(diagnostic string) bool {
	text := strings.ToLower(diagnostic)
	for _, phrase := range transportPhrases {
		text = strings.ReplaceAll(text, phrase, "")
	}
	for _, marker := range restrictionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
