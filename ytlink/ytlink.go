// Package ytlink extracts YouTube channel links from comment text and
// resolves them into channel lookup keys.
package ytlink

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// linkPattern matches a YouTube link up to the first whitespace or
// bracket/paren character, so links inside markdown survive intact.
var linkPattern = regexp.MustCompile(`https?://(?:www\.|m\.)?youtube\.com[^\s\[\]()]*`)

// Homepage is what Extract returns for a comment with no body at all. It
// keeps "comment had no body" distinguishable from "body checked, no link
// found" (empty string); the comment filter drops both before verification.
const Homepage = "https://www.youtube.com"

const canonicalHost = "https://www.youtube.com"

// Extract returns the first YouTube link in body, in canonical, www-prefixed,
// bare, or mobile form, truncated at the first whitespace or bracket/paren
// character. An empty body yields Homepage; a body without a link yields "".
func Extract(body string) string {
	if body == "" {
		return Homepage
	}
	return linkPattern.FindString(body)
}

// Normalize canonicalizes a YouTube link: https scheme, www host (mobile and
// bare-domain variants rewritten), query string and fragment stripped,
// trailing slash trimmed. Links that cannot be parsed are returned unchanged;
// resolution fails on them later.
func Normalize(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return link
	}
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	return canonicalHost + path
}

// KeyKind discriminates the lookup modes the video platform supports.
type KeyKind int

const (
	// ByID looks a channel up by its opaque channel ID.
	ByID KeyKind = iota
	// ByLegacyUsername looks a channel up by its legacy username, which also
	// covers top-level vanity names.
	ByLegacyUsername
	// ByHandle looks a channel up by its @handle.
	ByHandle
)

// ChannelKey identifies a channel by exactly one lookup mode.
type ChannelKey struct {
	Kind  KeyKind
	Value string
}

// ErrNoChannelPath reports a link with nothing after the host to resolve a
// channel from.
var ErrNoChannelPath = errors.New("link has no channel path")

// Resolve maps a normalized link to its channel lookup key. The caller is
// expected to have run Normalize first; Resolve only inspects the path.
func Resolve(link string) (ChannelKey, error) {
	path := strings.TrimPrefix(link, canonicalHost)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return ChannelKey{}, ErrNoChannelPath
	}

	switch {
	case strings.Contains(path, "user/"):
		return ChannelKey{Kind: ByLegacyUsername, Value: textAfter(path, "user/")}, nil
	case strings.Contains(path, "channel/"):
		return ChannelKey{Kind: ByID, Value: textAfter(path, "channel/")}, nil
	case strings.HasPrefix(path, "@"):
		return ChannelKey{Kind: ByHandle, Value: strings.TrimPrefix(path, "@")}, nil
	default:
		// Bare path segment: a top-level vanity name.
		return ChannelKey{Kind: ByLegacyUsername, Value: path}, nil
	}
}

func textAfter(s, marker string) string {
	return s[strings.Index(s, marker)+len(marker):]
}
