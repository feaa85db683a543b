package channel

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/testchannel/internal/device"
)

// Default timeouts for test channel communication.
const (
	// defaultConnectTimeout is the maximum time to wait for the initial
	// connection to the controller.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout is the timeout for a single frame write.
	defaultWriteTimeout = 5 * time.Second
)

// Config holds test channel connection configuration.
type Config struct {
	// Address is the controller's test channel endpoint as "host:port".
	Address string

	// ConnectTimeout is the maximum time to wait for connection.
	// Default: 10 seconds.
	ConnectTimeout time.Duration

	// WriteTimeout is the timeout for frame writes.
	// Default: 5 seconds.
	WriteTimeout time.Duration
}

// Stats holds operational statistics.
type Stats struct {
	CommandsTx   uint64
	BytesTx      uint64
	ErrorsTotal  uint64
	LastActivity time.Time
	Connected    bool
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sender is the interface the shell drives. It is satisfied by *Client and
// allows mocking the channel in tests.
type Sender interface {
	SendCommand(ctx context.Context, name string, args []string) error
	SendRaw(ctx context.Context, frame []byte) error
	DiscoverDevice(name, address string) (device.Device, error)
	Discover(ctx context.Context, names ...string) ([]device.Device, error)
	Devices() []device.Device
	Close() error
}

// Ensure Client implements Sender.
var _ Sender = (*Client)(nil)

// Client owns one byte-stream connection to the controller's test channel
// and the registry of devices discovered over it.
//
// The channel is strictly request-only and single-command-at-a-time: each
// send validates, encodes, and writes one complete frame before returning.
// There is no reconnection and no retry anywhere - a transport failure
// leaves the connection in an undefined state and the client must be
// recreated.
//
// Lifecycle is Open -> Closed, one way. Every send after Close fails with
// ErrClosed before any write is attempted.
type Client struct {
	cfg      Config
	registry *device.Registry

	// Connection state. conn is never replaced after Connect; mu guards
	// closed and serialises writes so frames are never interleaved.
	mu     sync.Mutex
	conn   net.Conn
	closed bool

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for cheap reads)
	commandsTx   atomic.Uint64
	bytesTx      atomic.Uint64
	errorsTotal  atomic.Uint64
	lastActivity atomic.Int64 // Unix timestamp
	connected    atomic.Bool
}

// Connect establishes the TCP connection to the controller's test channel.
//
// Parameters:
//   - ctx: Context for cancellation of the dial
//   - cfg: Connection configuration
//
// Returns:
//   - *Client: Connected client with an empty device registry
//   - error: ErrTransport wrapping the dial failure
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	if ctx == nil {
		ctx = context.Background()
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(connectCtx, "tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransport, cfg.Address, err)
	}

	return newClient(conn, cfg), nil
}

// newClient wraps an established connection. Split from Connect so tests
// can drive the client over synthetic connections.
func newClient(conn net.Conn, cfg Config) *Client {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	c := &Client{
		cfg:      cfg,
		conn:     conn,
		registry: device.NewRegistry(),
		logger:   noopLogger{},
	}
	c.connected.Store(true)
	c.lastActivity.Store(time.Now().Unix())
	return c
}

// SendCommand validates and encodes a command, then writes the resulting
// frame to the connection in full.
//
// Validation failures (ErrNotEncodable, ErrSizeLimit) are raised before any
// byte is written; no partial frame ever reaches the transport. A write
// failure is returned as ErrTransport and is fatal to the session.
func (c *Client) SendCommand(ctx context.Context, name string, args []string) error {
	cmd := Command{Name: name, Args: args}
	frame, err := cmd.Encode()
	if err != nil {
		c.errorsTotal.Add(1)
		return err
	}

	if err := c.writeFrame(ctx, frame); err != nil {
		return err
	}

	c.commandsTx.Add(1)
	c.logDebug("command sent", "name", name, "args", len(args), "bytes", len(frame))
	return nil
}

// SendRaw writes a pre-encoded frame to the connection, bypassing the
// command codec. Used for raw pass-through packets such as HCI Reset.
func (c *Client) SendRaw(ctx context.Context, frame []byte) error {
	if err := c.writeFrame(ctx, frame); err != nil {
		return err
	}
	c.logDebug("raw frame sent", "bytes", len(frame))
	return nil
}

// writeFrame writes one complete frame, honouring the write timeout and
// context deadline. The mutex serialises concurrent writers and gates on
// the closed state.
func (c *Client) writeFrame(ctx context.Context, frame []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrTransport, ctx.Err())
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		c.errorsTotal.Add(1)
		return fmt.Errorf("%w: set deadline: %w", ErrTransport, err)
	}

	if _, err := c.conn.Write(frame); err != nil {
		c.errorsTotal.Add(1)
		c.connected.Store(false)
		return fmt.Errorf("%w: write: %w", ErrTransport, err)
	}

	c.bytesTx.Add(uint64(len(frame)))
	c.lastActivity.Store(time.Now().Unix())
	return nil
}

// DiscoverDevice creates a device (generating any missing field) and
// registers it. The caller is expected to report it to the controller via a
// DISCOVER-style command.
//
// Returns ErrClosed after Close; the registry is part of the session.
func (c *Client) DiscoverDevice(name, address string) (device.Device, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return device.Device{}, ErrClosed
	}

	d := device.New(name, address)
	c.registry.Add(d)
	return d, nil
}

// Discover creates one device per name (one fully random device when no
// names are given), registers them, and sends a DISCOVER command carrying
// each device's name and address as consecutive arguments.
func (c *Client) Discover(ctx context.Context, names ...string) ([]device.Device, error) {
	if len(names) == 0 {
		names = []string{""}
	}

	devices := make([]device.Device, 0, len(names))
	args := make([]string, 0, 2*len(names))
	for _, name := range names {
		d, err := c.DiscoverDevice(name, "")
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
		args = append(args, d.Name, d.Address)
	}

	if err := c.SendCommand(ctx, CmdDiscover, args); err != nil {
		return nil, err
	}
	return devices, nil
}

// Devices returns a snapshot of the session's registered devices.
func (c *Client) Devices() []device.Device {
	return c.registry.List()
}

// SetLogger sets the logger for this client and its registry.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
	c.registry.SetLogger(logger)
}

// IsConnected returns true until Close is called or a write fails.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Stats returns current operational statistics.
func (c *Client) Stats() Stats {
	return Stats{
		CommandsTx:   c.commandsTx.Load(),
		BytesTx:      c.bytesTx.Load(),
		ErrorsTotal:  c.errorsTotal.Load(),
		LastActivity: time.Unix(c.lastActivity.Load(), 0),
		Connected:    c.connected.Load(),
	}
}

// Close releases the underlying connection. Safe to call multiple times.
// Subsequent sends fail with ErrClosed; the transition is irreversible.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.connected.Store(false)

	err := c.conn.Close()
	c.logInfo("channel closed")
	if err != nil {
		return fmt.Errorf("%w: close: %w", ErrTransport, err)
	}
	return nil
}

// logDebug logs a debug message if a logger is set.
func (c *Client) logDebug(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()
	logger.Debug(msg, args...)
}

// logInfo logs an info message if a logger is set.
func (c *Client) logInfo(msg string, args ...any) {
	c.loggerMu.RLock()
	logger := c.logger
	c.loggerMu.RUnlock()
	logger.Info(msg, args...)
}
