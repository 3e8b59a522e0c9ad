// Package youtube maps pasted YouTube links to video identifiers and the
// static thumbnail URLs published for them.
package youtube

import (
	"errors"
	"regexp"
	"strings"
)

// VideoID is the 11 character token naming a video. Values are only produced
// by Extract or ParseVideoID, so holders can treat them as validated.
type VideoID string

func (id VideoID) String() string { return string(id) }

var (
	// ErrMissingURL is returned when the input is empty after trimming.
	ErrMissingURL = errors.New("youtube: missing url")
	// ErrInvalidURL is returned when no known URL shape matches.
	ErrInvalidURL = errors.New("youtube: unrecognized url format")
	// ErrInvalidVideoID is returned by ParseVideoID for malformed bare identifiers.
	ErrInvalidVideoID = errors.New("youtube: invalid video id")
)

// User facing messages for the two input errors.
const (
	MissingURLMessage = "Please enter a YouTube video URL."
	InvalidURLMessage = "This is not a valid YouTube URL. Please check it and try again."
)

// Pattern is one recognized URL shape.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Patterns are tried in order; the first one that matches wins.
var Patterns = []Pattern{
	{Name: "watch", re: regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/watch\?v=([a-zA-Z0-9_-]{11})`)},
	{Name: "embed", re: regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`)},
	{Name: "v", re: regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/v/([a-zA-Z0-9_-]{11})`)},
	{Name: "short", re: regexp.MustCompile(`(?:https?://)?youtu\.be/([a-zA-Z0-9_-]{11})`)},
	{Name: "shorts", re: regexp.MustCompile(`(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`)},
}

var bareIDRE = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// Extract returns the identifier embedded in rawURL.
func Extract(rawURL string) (VideoID, error) {
	id, _, err := ExtractWithPattern(rawURL)
	return id, err
}

// ExtractWithPattern is Extract that also reports which pattern matched.
func ExtractWithPattern(rawURL string) (VideoID, string, error) {
	input := strings.TrimSpace(rawURL)
	if input == "" {
		return "", "", ErrMissingURL
	}

	for _, p := range Patterns {
		if m := p.re.FindStringSubmatch(input); len(m) > 1 && m[1] != "" {
			return VideoID(m[1]), p.Name, nil
		}
	}

	return "", "", ErrInvalidURL
}

// ParseVideoID accepts a bare identifier, e.g. from a route parameter.
func ParseVideoID(s string) (VideoID, error) {
	if !bareIDRE.MatchString(s) {
		return "", ErrInvalidVideoID
	}
	return VideoID(s), nil
}

// Message returns the user facing text for an extraction error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingURL):
		return MissingURLMessage
	case errors.Is(err, ErrInvalidURL):
		return InvalidURLMessage
	case errors.Is(err, ErrInvalidVideoID):
		return "Invalid YouTube video id."
	case errors.Is(err, ErrUnknownTier):
		return "Unknown thumbnail quality."
	default:
		return "Invalid request."
	}
}
