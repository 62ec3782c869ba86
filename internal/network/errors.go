package network

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch failed. The set is closed.
type ErrorKind int

const (
	// TransportError covers DNS failures, refused connections, timeouts and
	// a body that could not be read.
	TransportError ErrorKind = iota + 1
	// InvalidResponse means the server answered with anything but 200.
	InvalidResponse
	// InvalidData means a 200 arrived with an empty body.
	InvalidData
	// DecodingError means the body was not JSON of the expected shape.
	DecodingError
)

func (k ErrorKind) String() string {
	switch k {
	case TransportError:
		return "transport error"
	case InvalidResponse:
		return "invalid response"
	case InvalidData:
		return "invalid data"
	case DecodingError:
		return "decoding error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels for errors.Is; a *NetworkError matches the one for its Kind.
var (
	ErrTransport       = errors.New("transport error")
	ErrInvalidResponse = errors.New("invalid response")
	ErrInvalidData     = errors.New("invalid data")
	ErrDecoding        = errors.New("decoding error")
)

// NetworkError is the only error type Get and Fetch produce.
type NetworkError struct {
	Kind ErrorKind
	// Message is the underlying transport or decoder message. Empty for
	// InvalidResponse and InvalidData.
	Message string
	// StatusCode is set for InvalidResponse, for diagnostics only.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Message != "":
		return e.Kind.String() + ": " + e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
	default:
		return e.Kind.String()
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == TransportError
	case ErrInvalidResponse:
		return e.Kind == InvalidResponse
	case ErrInvalidData:
		return e.Kind == InvalidData
	case ErrDecoding:
		return e.Kind == DecodingError
	}
	return false
}

func transportError(err error) *NetworkError {
	return &NetworkError{Kind: TransportError, Message: err.Error(), Err: err}
}

func invalidResponse(statusCode int) *NetworkError {
	return &NetworkError{Kind: InvalidResponse, StatusCode: statusCode}
}

func invalidData() *NetworkError {
	return &NetworkError{Kind: InvalidData}
}

func decodingError(err error) *NetworkError {
	return &NetworkError{Kind: DecodingError, Message: err.Error(), Err: err}
}
