// Package channel implements the test channel protocol for driving a
// simulated Bluetooth controller.
//
// The test channel is a byte-stream connection over which a harness sends
// named commands with string arguments to a controller under test. Commands
// are serialized as single length-prefixed frames and written in full; the
// controller never replies on this channel.
//
// # Architecture
//
//	┌─────────────────┐   TCP (framed commands)   ┌─────────────────┐
//	│  Test harness   │──────────────────────────►│    Simulated    │
//	│   (this pkg)    │                           │   controller    │
//	└─────────────────┘                           └─────────────────┘
//
// # Key Responsibilities
//
//   - Validate command names and arguments (UTF-8, one-octet size limits)
//   - Serialize commands into the length-prefixed wire format
//   - Own the connection lifecycle (Open -> Closed, one way)
//   - Track devices reported to the controller during discovery
//
// # Wire Format
//
// Each command is one frame, with no separators between frames:
//
//	[1-byte name length][name bytes]
//	[1-byte arg count]
//	per argument: [1-byte arg length][arg bytes]
//
// All lengths are 0-255 inclusive. Values above that range are rejected
// before transmission, never truncated.
//
// # Error Handling
//
// Errors are sentinel values checked with errors.Is: ErrNotEncodable and
// ErrSizeLimit are raised before any byte is written, ErrTransport after a
// failed connect or write (fatal to the session), and ErrClosed for any
// send attempted after Close. None are retried internally.
//
// # Thread Safety
//
// Client methods are safe for concurrent use, though the protocol itself is
// strictly single-command-at-a-time; writes are serialised so frames are
// never interleaved on the stream.
package channel
