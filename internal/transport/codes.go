package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
)

// Code is the terminal result of a transfer
type Code int

const (
	OK                     Code = 0
	UnsupportedProtocol    Code = 1
	FailedInit             Code = 2
	URLMalformat           Code = 3
	CouldntResolveProxy    Code = 5
	CouldntResolveHost     Code = 6
	CouldntConnect         Code = 7
	WriteError             Code = 23
	OperationTimedout      Code = 28
	SSLConnectError        Code = 35
	AbortedByCallback      Code = 42
	GotNothing             Code = 52
	SendError              Code = 55
	RecvError              Code = 56
	PeerFailedVerification Code = 60
	SSLCACertBadFile       Code = 77
)

var descriptions = map[Code]string{
	OK:                     "No error",
	UnsupportedProtocol:    "Unsupported protocol",
	FailedInit:             "Failed initialization",
	URLMalformat:           "URL using bad/illegal format or missing URL",
	CouldntResolveProxy:    "Couldn't resolve proxy name",
	CouldntResolveHost:     "Couldn't resolve host name",
	CouldntConnect:         "Couldn't connect to server",
	WriteError:             "Failed writing received data to the output",
	OperationTimedout:      "Timeout was reached",
	SSLConnectError:        "SSL connect error",
	AbortedByCallback:      "Operation was aborted by the caller",
	GotNothing:             "Server returned nothing (no headers, no data)",
	SendError:              "Failed sending data to the peer",
	RecvError:              "Failure when receiving data from the peer",
	PeerFailedVerification: "SSL peer certificate was not OK",
	SSLCACertBadFile:       "Problem with the SSL CA cert (path? access rights?)",
}

// String returns the human-readable description of the code
func (c Code) String() string {
	if d, ok := descriptions[c]; ok {
		return d
	}
	return fmt.Sprintf("Unknown error (%d)", int(c))
}

// Error is a failed transfer. The message always starts with the code description.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

var (
	errProxy       = errors.New("proxy resolution failed")
	errOutputWrite = errors.New("output write failed")
)

// classify maps an error returned from the HTTP round trip onto a result code.
// Order matters: the more specific TLS and DNS failures are all net errors too.
func classify(ctx context.Context, err error) Code {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return AbortedByCallback
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return OperationTimedout
	case errors.Is(err, errProxy):
		return CouldntResolveProxy
	case errors.Is(err, errOutputWrite):
		return WriteError
	}

	var (
		dnsErr       *net.DNSError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		opErr        *net.OpError
		netErr       net.Error
	)

	switch {
	case errors.As(err, &dnsErr):
		return CouldntResolveHost
	case errors.As(err, &verifyErr), errors.As(err, &authorityErr),
		errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return PeerFailedVerification
	case errors.As(err, &recordErr), errors.As(err, &alertErr):
		return SSLConnectError
	case errors.As(err, &netErr) && netErr.Timeout():
		return OperationTimedout
	case errors.As(err, &opErr):
		switch opErr.Op {
		case "dial":
			return CouldntConnect
		case "write":
			return SendError
		case "remote error":
			return SSLConnectError
		}
		return RecvError
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return GotNothing
	}

	return RecvError
}
