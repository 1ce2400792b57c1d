// Package command parses the small fixed grammar of inbound chat messages
// into a search keyword and time window.
package command

import "strings"

// Window lengths in minutes for each recognized prefix.
const (
	windowDefault   = 60
	windowToday     = 24 * 60
	windowPastWeek  = 7 * 24 * 60
	windowPastMonth = 30 * 24 * 60
)

// markers maps a message prefix to its window length. Order matters: the
// longest match wins, so the slice is checked longest-prefix first.
var markers = []struct {
	prefix  string
	minutes int
}{
	{"近一個月", windowPastMonth},
	{"近一週", windowPastWeek},
	{"今天", windowToday},
}

// Request is the parsed form of one inbound message.
type Request struct {
	Keyword       string
	WindowMinutes int
}

// Parse derives the search window from a marker prefix ("今天" for the past
// day, "近一週" for the past week, "近一個月" for the past month, otherwise
// the default 60 minutes). Any text remaining after the marker, if
// non-empty, overrides the default keyword.
func Parse(text, defaultKeyword string) Request {
	text = strings.TrimSpace(text)

	req := Request{
		Keyword:       defaultKeyword,
		WindowMinutes: windowDefault,
	}

	remainder := text
	for _, m := range markers {
		if strings.HasPrefix(text, m.prefix) {
			req.WindowMinutes = m.minutes
			remainder = strings.TrimSpace(strings.TrimPrefix(text, m.prefix))
			break
		}
	}

	if remainder != "" {
		req.Keyword = remainder
	}

	return req
}
