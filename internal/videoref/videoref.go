// Package videoref resolves pasted YouTube URLs into canonical content
// identifiers and converts between MM:SS timestamps and seconds.
package videoref

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// contentRefLength is the fixed size of a YouTube video identifier.
const contentRefLength = 11

var refPattern = regexp.MustCompile(`(?:youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*)`)

// ExtractContentRef pulls the canonical 11-character content identifier out
// of a URL. It recognizes youtu.be short links, /v/, /u/<user>/, /embed/,
// watch?v= and &v= forms. Anything else, including captures of the wrong
// length, yields the empty string.
func ExtractContentRef(url string) string {
	matches := refPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return ""
	}
	if len(matches[1]) != contentRefLength {
		return ""
	}
	return matches[1]
}

// ParseError reports a timestamp that could not be parsed.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed timestamp %q, expected MM:SS", e.Input)
}

// ParseTimestamp converts an MM:SS string into seconds. Malformed input
// fails with a *ParseError.
func ParseTimestamp(text string) (int, error) {
	parts := strings.Split(text, ":")
	if len(parts) != 2 {
		return 0, &ParseError{Input: text}
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, &ParseError{Input: text}
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, &ParseError{Input: text}
	}
	return minutes*60 + seconds, nil
}

// FormatTimestamp renders a second count as MM:SS, mirroring the format the
// backend uses for retrieved transcript context.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// WatchURL rebuilds the full watch URL for a content ref. Outbound chat
// frames carry this form rather than the bare identifier.
func WatchURL(ref string) string {
	return "https://www.youtube.com/watch?v=" + ref
}

// EmbedURL builds an embeddable player link starting at the given offset.
func EmbedURL(ref string, startSeconds int) string {
	return fmt.Sprintf("https://www.youtube.com/embed/%s?start=%d&autoplay=1", ref, startSeconds)
}
