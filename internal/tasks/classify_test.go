package tasks

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		diagnostic string
		items      int
		ok         bool
		want       FetchOutcome
	}{
		{"Items", "", 3, true, FetchOK},
		{"Empty", "", 0, true, FetchEmpty},
		{"Private", "ERROR: [youtube:tab] PLx: This playlist is private", 0, false, FetchRestricted},
		{"PrivateLowercase", "this playlist is private", 0, true, FetchRestricted},
		{"MembersOnly", "Join this channel to get access to members-only content", 0, false, FetchRestricted},
		{"MembersOnlySpaced", "This video is available to Members Only", 0, false, FetchRestricted},
		{"SignIn", "Sign in to confirm you're not a bot", 0, false, FetchRestricted},
		{"LoginRequired", "login required", 0, false, FetchRestricted},
		{"Unavailable", "ERROR: The playlist is unavailable", 0, false, FetchRestricted},
		{"DoesNotExist", "ERROR: The playlist does not exist.", 0, false, FetchRestricted},
		{"MarkerWithItems", "WARNING: 2 private videos are hidden", 5, true, FetchOK},
		{"MarkerWithItemsFailed", "private", 5, false, FetchTransportError},
		{"ServiceUnavailable", "ERROR: HTTP Error 503: Service Unavailable", 0, false, FetchTransportError},
		{"TemporarilyUnavailable", "temporarily unavailable, try again", 0, false, FetchTransportError},
		{"ServiceUnavailableAndPrivate", "Service Unavailable; this playlist is private", 0, false, FetchRestricted},
		{"Network", "ERROR: Unable to download webpage: timed out", 0, false, FetchTransportError},
		{"FailedWithoutText", "", 0, false, FetchTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.diagnostic, tt.items, tt.ok); got != tt.want {
				t.Errorf("Classify(%q, %d, %v) = %s, want %s", tt.diagnostic, tt.items, tt.ok, got, tt.want)
			}
		})
	}
}

func TestFetchOutcomeString(t *testing.T) {
	for outcome, want := range map[FetchOutcome]string{
		FetchOK:             "ok",
		FetchEmpty:          "empty",
		FetchRestricted:     "restricted",
		FetchTransportError: "transport_error",
		FetchOutcome(99):    "unknown",
	} {
		if got := outcome.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
