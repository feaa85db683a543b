package channel

import "errors"

// Domain errors for the test channel package.
//
// Each error kind is distinguishable with errors.Is so a test driver can
// assert on "the harness rejected an oversized argument" versus "the socket
// dropped". All are terminal for the operation that raised them; nothing is
// retried internally.
var (
	// ErrNotEncodable is returned when a command name or argument is not
	// valid UTF-8 text.
	ErrNotEncodable = errors.New("channel: input is not valid UTF-8")

	// ErrSizeLimit is returned when a command name, argument count, or
	// argument length exceeds one-octet field capacity.
	ErrSizeLimit = errors.New("channel: size exceeds one-octet field capacity")

	// ErrTransport is returned when the underlying connect or write fails.
	// The connection is left in an undefined state; the client must be
	// recreated.
	ErrTransport = errors.New("channel: transport failure")

	// ErrClosed is returned when an operation is attempted after Close.
	ErrClosed = errors.New("channel: client is closed")

	// ErrInvalidFrame is returned when a received frame is malformed.
	ErrInvalidFrame = errors.New("channel: invalid frame")
)
