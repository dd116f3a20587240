package transport

import (
	"runtime"
	"strings"
	"unicode/utf8"
)

const (
	// LibraryName identifies this transport in the default user agent
	LibraryName = "go-http"

	// userAgentBuffer is the capacity reserved for the user agent, one byte of
	// which is kept back for the terminator the wire format never sends.
	userAgentBuffer = 1024
)

// Version is the version of the HTTP stack, which ships with the Go runtime
func Version() string {
	return strings.TrimPrefix(runtime.Version(), "go")
}

// UserAgent returns "<library>/<version>" for the running transport
func UserAgent() string {
	return BoundedUserAgent(LibraryName, Version())
}

// BoundedUserAgent formats "<name>/<version>" and truncates it to fit the
// user agent buffer without splitting a UTF-8 sequence.
func BoundedUserAgent(name, version string) string {
	ua := name + "/" + version

	limit := userAgentBuffer - 1
	if len(ua) <= limit {
		return ua
	}

	ua = ua[:limit]
	for i := 0; i < utf8.UTFMax-1 && len(ua) > 0; i++ {
		r, size := utf8.DecodeLastRuneInString(ua)
		if r != utf8.RuneError || size != 1 {
			break
		}
		ua = ua[:len(ua)-1]
	}

	return ua
}
