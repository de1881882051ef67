package media

import (
	"errors"
	"fmt"
)

type Kind int32

const (
	_ Kind = iota
	KindInvalidInput
	KindMetadataUnavailable
	KindEngineInit
	KindEncode
	KindTranscode
	KindRemoteService
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindMetadataUnavailable:
		return "METADATA_UNAVAILABLE"
	case KindEngineInit:
		return "ENGINE_INIT_FAILURE"
	case KindEncode:
		return "ENCODE_FAILURE"
	case KindTranscode:
		return "TRANSCODE_FAILURE"
	case KindRemoteService:
		return "REMOTE_SERVICE_ERROR"
	default:
		return fmt.Sprintf("UNKNOWN KIND %d", k)
	}
}

var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrMetadataUnavailable = &Error{Kind: KindMetadataUnavailable}
	ErrEngineInit          = &Error{Kind: KindEngineInit}
	ErrEncode              = &Error{Kind: KindEncode}
	ErrTranscode           = &Error{Kind: KindTranscode}
	ErrRemoteService       = &Error{Kind: KindRemoteService}
)

// Error is a classified failure of the compression core.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so the package sentinels can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return 0
}
