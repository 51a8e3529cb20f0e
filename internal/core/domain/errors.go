package domain

import "errors"

// Failure classes shared by every component. Wrap them with fmt.Errorf("...: %w")
// and test with errors.Is.
var (
	// ErrTransport is a network or timeout failure on an external call.
	ErrTransport = errors.New("transport error")

	// ErrMalformedResponse is a schema violation in an external payload.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrEncoding is a serialization or compression failure.
	ErrEncoding = errors.New("encoding error")

	// ErrUploadRejected means the archival network refused the write.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrPersistence is a failed archive index store write.
	ErrPersistence = errors.New("persistence error")

	// ErrIndexUnreachable means the archive index scan could not complete.
	ErrIndexUnreachable = errors.New("archive index unreachable")
)
