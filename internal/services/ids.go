package services

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

var playlistIDPattern = regexp.MustCompile(`list=([a-zA-Z0-9_-]+)`)

// likedIDs are the provider's built-in liked videos and liked music collections.
var likedIDs = map[string]bool{"LL": true, "LM": true}

// ExtractPlaylistID returns the "list=" value of locator, or "pl-" followed by the FNV-1a hash of the locator.
func ExtractPlaylistID(locator string) string {
	if m := playlistIDPattern.FindStringSubmatch(locator); m != nil {
		return m[1]
	}

	h := fnv.New64a()
	h.Write([]byte(strings.TrimSpace(locator)))
	return fmt.Sprintf("pl-%016x", h.Sum64())
}

// IsLikedCollection reports whether locator points at the liked/favorites collection.
func IsLikedCollection(locator string) bool {
	if strings.HasPrefix(strings.TrimSpace(locator), ":ytfav") {
		return true
	}
	m := playlistIDPattern.FindStringSubmatch(locator)
	return m != nil && likedIDs[m[1]]
}

// VideoURL is the watch URL used when an entry carries no URL of its own.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
