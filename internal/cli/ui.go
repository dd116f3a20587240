package cli

import (
	"errors"
	"fmt"

	"github.com/gookit/color"
	"github.com/jwtly10/go-postjson/internal/sender"
)

const usage = "Usage: postjson <name> <value>"

// fatal prints the last line a failed run leaves on stderr
func (a *App) fatal(msg string) {
	fmt.Fprintf(a.stderr, "%s %s\n", color.Red.Sprint("Fatal:"), msg)
}

// diagnostic prints one line naming the stage that failed
func (a *App) diagnostic(err error) {
	var sErr *sender.Error
	if !errors.As(err, &sErr) {
		fmt.Fprintln(a.stderr, err)
		return
	}

	if code, ok := sErr.TransportCode(); ok {
		fmt.Fprintf(a.stderr, "%s failed (code %d): %v\n", sErr.Stage, int(code), sErr.Err)
		return
	}
	fmt.Fprintf(a.stderr, "%s failed: %v\n", sErr.Stage, sErr.Err)
}
