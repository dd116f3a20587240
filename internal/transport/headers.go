package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrHeadersReleased = errors.New("header list has been released")

// HeaderList is an ordered list of raw "Name: value" header lines.
//
// Two forms carry special meaning:
//   - "Name:" with nothing after the colon removes a header the transport
//     would otherwise send on its own
//   - "Name;" sends the header with an empty value
type HeaderList struct {
	lines    []string
	released bool
}

func NewHeaderList() *HeaderList {
	return &HeaderList{}
}

// Append validates and adds a header line to the end of the list
func (l *HeaderList) Append(line string) error {
	if l.released {
		return ErrHeadersReleased
	}
	if _, err := parseHeaderLine(line); err != nil {
		return err
	}

	l.lines = append(l.lines, line)
	return nil
}

// snapshot returns a copy of the header lines in order
func (l *HeaderList) snapshot() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *HeaderList) count() int {
	return len(l.lines)
}

func (l *HeaderList) Release() {
	l.lines = nil
	l.released = true
}

type headerLine struct {
	name     string
	value    string
	suppress bool
}

func parseHeaderLine(line string) (headerLine, error) {
	if strings.ContainsAny(line, "\r\n") {
		return headerLine{}, fmt.Errorf("invalid header line %q: contains line break", line)
	}

	idx := strings.IndexAny(line, ":;")
	if idx <= 0 {
		return headerLine{}, fmt.Errorf("invalid header line %q: missing name", line)
	}

	name := http.CanonicalHeaderKey(strings.TrimSpace(line[:idx]))
	rest := strings.TrimSpace(line[idx+1:])

	if line[idx] == ';' {
		if rest != "" {
			return headerLine{}, fmt.Errorf("invalid header line %q: unexpected data after ';'", line)
		}
		return headerLine{name: name}, nil
	}

	if rest == "" {
		return headerLine{name: name, suppress: true}, nil
	}
	return headerLine{name: name, value: rest}, nil
}

// apply writes the list onto req. The first custom line for a name replaces any
// value the transport set itself, later lines for the same name add to it.
func (l *HeaderList) apply(req *http.Request) {
	seen := make(map[string]bool)

	for _, line := range l.lines {
		// Lines were validated by Append
		hl, _ := parseHeaderLine(line)

		switch {
		case hl.suppress && hl.name == "User-Agent":
			// net/http only skips its default agent when the key is present
			req.Header["User-Agent"] = []string{""}
		case hl.suppress:
			req.Header.Del(hl.name)
		case hl.name == "Host":
			req.Host = hl.value
		case seen[hl.name]:
			req.Header.Add(hl.name, hl.value)
		default:
			req.Header.Set(hl.name, hl.value)
		}

		seen[hl.name] = true
	}
}
