package channel

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// newTestClient connects a Client to an in-memory pipe and returns the
// controller end alongside it.
func newTestClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	local, remote := net.Pipe()
	c := newClient(local, Config{Address: "pipe", WriteTimeout: time.Second})
	t.Cleanup(func() {
		_ = c.Close()
		_ = remote.Close()
	})
	return c, remote
}

// readFrame reads one command frame from the controller end.
func readFrame(t *testing.T, conn net.Conn) Command {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	cmd, err := ReadCommand(conn)
	if err != nil {
		t.Fatalf("ReadCommand() error = %v", err)
	}
	return cmd
}

// ─── Sending ───────────────────────────────────────────────────────

func TestClientSendCommand(t *testing.T) {
	c, remote := newTestClient(t)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := remote.Read(buf)
		got <- buf[:n]
	}()

	if err := c.SendCommand(context.Background(), "CLEAR", nil); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}

	want := []byte{5, 'C', 'L', 'E', 'A', 'R', 0}
	if frame := <-got; !bytes.Equal(frame, want) {
		t.Errorf("wire frame = %v, want %v", frame, want)
	}

	stats := c.Stats()
	if stats.CommandsTx != 1 {
		t.Errorf("CommandsTx = %d, want 1", stats.CommandsTx)
	}
	if stats.BytesTx != uint64(len(want)) {
		t.Errorf("BytesTx = %d, want %d", stats.BytesTx, len(want))
	}
	if !stats.Connected {
		t.Error("Connected = false, want true")
	}
}

func TestClientSendCommandValidationWritesNothing(t *testing.T) {
	c, remote := newTestClient(t)

	type result struct {
		data []byte
		err  error
	}
	read := make(chan result, 1)
	go func() {
		// The pipe is synchronous: any write would block until this read
		// accepts it. A clean EOF with zero bytes proves nothing was written.
		data, err := io.ReadAll(remote)
		read <- result{data, err}
	}()

	err := c.SendCommand(context.Background(), strings.Repeat("A", 300), nil)
	if !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("SendCommand() error = %v, want ErrSizeLimit", err)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	res := <-read
	if res.err != nil && !errors.Is(res.err, io.ErrClosedPipe) {
		t.Errorf("controller read error = %v", res.err)
	}
	if len(res.data) != 0 {
		t.Errorf("controller received %d bytes, want none", len(res.data))
	}
}

func TestClientSendRaw(t *testing.T) {
	c, remote := newTestClient(t)

	got := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := remote.Read(buf)
		got <- buf[:n]
	}()

	hciReset := []byte{0x01, 0x03, 0x0C, 0x00}
	if err := c.SendRaw(context.Background(), hciReset); err != nil {
		t.Fatalf("SendRaw() error = %v", err)
	}
	if frame := <-got; !bytes.Equal(frame, hciReset) {
		t.Errorf("wire frame = %v, want %v", frame, hciReset)
	}
}

// ─── Error kinds ───────────────────────────────────────────────────

func TestClientSendAfterClose(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := c.SendCommand(context.Background(), "CLEAR", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("SendCommand() after Close error = %v, want ErrClosed", err)
	}
	if err := c.SendRaw(context.Background(), []byte{0x01}); !errors.Is(err, ErrClosed) {
		t.Errorf("SendRaw() after Close error = %v, want ErrClosed", err)
	}
	if _, err := c.DiscoverDevice("", ""); !errors.Is(err, ErrClosed) {
		t.Errorf("DiscoverDevice() after Close error = %v, want ErrClosed", err)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	c, _ := newTestClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestClientWriteFailureIsTransportError(t *testing.T) {
	c, remote := newTestClient(t)

	// Tear down the controller end; the next write has nowhere to go.
	_ = remote.Close()

	err := c.SendCommand(context.Background(), "CLEAR", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("SendCommand() error = %v, want ErrTransport", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after transport failure")
	}

	// Error kinds must stay distinguishable.
	if errors.Is(err, ErrClosed) || errors.Is(err, ErrSizeLimit) || errors.Is(err, ErrNotEncodable) {
		t.Errorf("transport error matched an unrelated kind: %v", err)
	}
}

func TestClientSendCancelledContext(t *testing.T) {
	c, _ := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.SendCommand(ctx, "CLEAR", nil)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("SendCommand() with cancelled context error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("SendCommand() error = %v, want wrapped context.Canceled", err)
	}
}

func TestClientConnectRefused(t *testing.T) {
	// Grab a port and close the listener so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	_, err = Connect(context.Background(), Config{Address: addr, ConnectTimeout: time.Second})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Connect() error = %v, want ErrTransport", err)
	}
}

// ─── Discovery ─────────────────────────────────────────────────────

func TestClientDiscover(t *testing.T) {
	c, remote := newTestClient(t)

	got := make(chan Command, 1)
	go func() {
		cmd, err := ReadCommand(remote)
		if err != nil {
			return
		}
		got <- cmd
	}()

	devices, err := c.Discover(context.Background(), "ALPHA1", "BRAVO2")
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Discover() returned %d devices, want 2", len(devices))
	}

	cmd := <-got
	if cmd.Name != CmdDiscover {
		t.Errorf("command name = %q, want %q", cmd.Name, CmdDiscover)
	}
	if len(cmd.Args) != 4 {
		t.Fatalf("argument count = %d, want 4 (two name,address pairs)", len(cmd.Args))
	}
	if cmd.Args[0] != "ALPHA1" || cmd.Args[2] != "BRAVO2" {
		t.Errorf("device names on wire = %q, %q", cmd.Args[0], cmd.Args[2])
	}
	for _, i := range []int{1, 3} {
		addr := cmd.Args[i]
		if len(addr) != 6 {
			t.Errorf("address %q length = %d, want 6", addr, len(addr))
		}
		for _, r := range addr {
			if r < '0' || r > '9' {
				t.Errorf("address %q contains non-digit %q", addr, r)
			}
		}
	}

	if c.registry.Count() != 2 {
		t.Errorf("registry count = %d, want 2", c.registry.Count())
	}
}

func TestClientDiscoverNoNames(t *testing.T) {
	c, remote := newTestClient(t)

	go func() {
		_, _ = ReadCommand(remote)
	}()

	devices, err := c.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("Discover() returned %d devices, want 1", len(devices))
	}
	if len(devices[0].Name) != 6 {
		t.Errorf("generated name %q length = %d, want 6", devices[0].Name, len(devices[0].Name))
	}
}

func TestClientDevicesSnapshot(t *testing.T) {
	c, _ := newTestClient(t)

	if _, err := c.DiscoverDevice("KBD001", "111111"); err != nil {
		t.Fatalf("DiscoverDevice() error = %v", err)
	}
	if _, err := c.DiscoverDevice("MOUSE1", "222222"); err != nil {
		t.Fatalf("DiscoverDevice() error = %v", err)
	}

	devices := c.Devices()
	if len(devices) != 2 {
		t.Fatalf("Devices() returned %d, want 2", len(devices))
	}
	if devices[0].Address != "111111" || devices[1].Address != "222222" {
		t.Errorf("Devices() not ordered by address: %v", devices)
	}
}
