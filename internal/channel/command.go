package channel

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Well-known test channel command names.
//
// The controller's test channel accepts these in addition to arbitrary
// pass-through names; the harness only defines the ones its shell sends.
const (
	// CmdClear resets the controller to its original, unmodified state.
	CmdClear = "CLEAR"

	// CmdDiscover reports one or more fake devices as inquiry results.
	// Arguments are name,address pairs, two per device.
	CmdDiscover = "DISCOVER"

	// CmdDiscoverInterval reports a fake device on a recurring interval.
	// Arguments are interval in milliseconds, then a name,address pair.
	CmdDiscoverInterval = "DISCOVER_INTERVAL"

	// CmdTimeoutAll causes all HCI commands to time out.
	CmdTimeoutAll = "TIMEOUT_ALL"

	// CmdCloseTestChannel tells the controller the channel is going away.
	CmdCloseTestChannel = "CLOSE_TEST_CHANNEL"
)

// Frame size limits. Every length on the wire is a single octet.
const (
	// MaxNameLen is the maximum encoded length of a command name.
	MaxNameLen = 255

	// MaxArgCount is the maximum number of arguments per command.
	MaxArgCount = 255

	// MaxArgLen is the maximum encoded length of a single argument.
	MaxArgLen = 255
)

// Command is one named command with ordered string arguments, ready to be
// framed for the controller.
//
// Wire format (one frame per command, no separators between frames):
//
//	Byte 0:    name length (0-255)
//	Byte 1+:   name bytes
//	Next byte: argument count (0-255)
//	Per argument, in order: 1 length byte (0-255) + that many bytes
//
// There is no terminator and no checksum; the length prefixes are the only
// framing mechanism. The receiver reads one length byte, then that many
// payload bytes, repeated, with no backtracking.
//
// Length prefixes count bytes. Some existing senders count characters
// instead, which coincides for ASCII but diverges from the UTF-8 byte
// length otherwise; byte counting keeps the frame self-describing for any
// input that passes Validate. See DESIGN.md for the full note on this
// protocol ambiguity.
type Command struct {
	// Name is the command name (e.g. "CLEAR", "DISCOVER").
	Name string

	// Args are the command arguments, in transmission order.
	Args []string
}

// Validate checks the command against the encoding constraints.
//
// It runs strictly before serialization: a command that fails validation
// produces no bytes at all, so no partial frame ever reaches the transport.
//
// Returns:
//   - ErrNotEncodable: name or an argument is not valid UTF-8
//   - ErrSizeLimit: name, argument count, or an argument exceeds 255
func (c Command) Validate() error {
	if !utf8.ValidString(c.Name) {
		return fmt.Errorf("%w: command name", ErrNotEncodable)
	}
	for i, arg := range c.Args {
		if !utf8.ValidString(arg) {
			return fmt.Errorf("%w: argument %d", ErrNotEncodable, i)
		}
	}

	if len(c.Name) > MaxNameLen {
		return fmt.Errorf("%w: name length %d", ErrSizeLimit, len(c.Name))
	}
	if len(c.Args) > MaxArgCount {
		return fmt.Errorf("%w: argument count %d", ErrSizeLimit, len(c.Args))
	}
	for i, arg := range c.Args {
		if len(arg) > MaxArgLen {
			return fmt.Errorf("%w: argument %d length %d", ErrSizeLimit, i, len(arg))
		}
	}

	return nil
}

// EncodedLen returns the exact frame length for this command:
// 1 + len(name) + 1 + sum over args of (1 + len(arg)).
func (c Command) EncodedLen() int {
	n := 2 + len(c.Name)
	for _, arg := range c.Args {
		n += 1 + len(arg)
	}
	return n
}

// Encode validates the command and serializes it into a single frame.
//
// Encoding is deterministic and total for any command that passes Validate.
func (c Command) Encode() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, c.EncodedLen())
	buf = append(buf, byte(len(c.Name)))
	buf = append(buf, c.Name...)
	buf = append(buf, byte(len(c.Args)))
	for _, arg := range c.Args {
		buf = append(buf, byte(len(arg)))
		buf = append(buf, arg...)
	}
	return buf, nil
}

// ReadCommand reads one complete frame from r and decodes it.
//
// This is the receiver side of Encode, used by test drivers standing in for
// the controller. It reads exactly one frame: one length byte, that many
// payload bytes, repeated, leaving any following frame unread.
//
// Returns ErrInvalidFrame (wrapping io errors) if the stream ends mid-frame.
func ReadCommand(r io.Reader) (Command, error) {
	name, err := readChunk(r)
	if err != nil {
		return Command{}, fmt.Errorf("%w: name: %w", ErrInvalidFrame, err)
	}

	var countBuf [1]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return Command{}, fmt.Errorf("%w: argument count: %w", ErrInvalidFrame, err)
	}

	count := int(countBuf[0])
	args := make([]string, 0, count)
	for i := 0; i < count; i++ {
		arg, err := readChunk(r)
		if err != nil {
			return Command{}, fmt.Errorf("%w: argument %d: %w", ErrInvalidFrame, i, err)
		}
		args = append(args, arg)
	}

	return Command{Name: name, Args: args}, nil
}

// ParseCommand decodes a single frame from buf. The frame must occupy the
// whole buffer; trailing bytes are an error.
func ParseCommand(buf []byte) (Command, error) {
	r := bytes.NewReader(buf)
	cmd, err := ReadCommand(r)
	if err != nil {
		return Command{}, err
	}
	if r.Len() > 0 {
		return Command{}, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFrame, r.Len())
	}
	return cmd, nil
}

// readChunk reads one length-prefixed chunk: a single length byte followed
// by that many payload bytes.
func readChunk(r io.Reader) (string, error) {
	var lenBuf [1]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := int(lenBuf[0])
	if n == 0 {
		return "", nil
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}
	return string(payload), nil
}

// String returns a human-readable representation of the command.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return fmt.Sprintf("Command{%s}", c.Name)
	}
	return fmt.Sprintf("Command{%s %s}", c.Name, strings.Join(c.Args, " "))
}
