package sender

import (
	"errors"
	"fmt"

	"github.com/jwtly10/go-postjson/internal/transport"
)

// Stage names the step of Post that failed
type Stage string

const (
	StageDocumentBuild         Stage = "document build"
	StageInsertionVerification Stage = "insertion verification"
	StageSerialization         Stage = "serialization"
	StageTransportInit         Stage = "transport init"
	StageTransport             Stage = "transport"
)

type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TransportCode returns the result code of a failed transfer, if there was one
func (e *Error) TransportCode() (transport.Code, bool) {
	var tErr *transport.Error
	if errors.As(e.Err, &tErr) {
		return tErr.Code, true
	}
	return transport.OK, false
}
