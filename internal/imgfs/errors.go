package imgfs

import "errors"

// Code is the closed set of failures reported by the store. A Code is an
// error itself, so operations wrap it with fmt.Errorf("%w: ...") and
// callers match with errors.Is or extract it with CodeOf.
type Code uint8

const (
	ErrInvalidArgument Code = iota + 1
	ErrInvalidIdentifier
	ErrResolution
	ErrImageNotFound
	ErrDuplicateID
	ErrStoreFull
	ErrOutOfMemory
	ErrIO
	ErrImageLibrary
)

var codeMessages = map[Code]string{
	ErrInvalidArgument:   "invalid argument",
	ErrInvalidIdentifier: "invalid image ID",
	ErrResolution:        "invalid resolution(s)",
	ErrImageNotFound:     "image not found",
	ErrDuplicateID:       "existing image ID",
	ErrStoreFull:         "imgFS is full",
	ErrOutOfMemory:       "out of memory",
	ErrIO:                "I/O error",
	ErrImageLibrary:      "image library error",
}

func (c Code) Error() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "unknown error"
}

// CodeOf returns the Code carried by err, or 0 when err is nil or was not
// produced by this package.
func CodeOf(err error) Code {
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return 0
}
