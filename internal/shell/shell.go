// Package shell provides the interactive command loop for the test channel
// harness.
//
// The shell reads lines, tokenizes them on whitespace, and dispatches over a
// fixed command table - a closed set, not dynamic lookup. Each entry maps a
// typed-in name to a handler that drives the channel client. Validation and
// transport errors surface per command; transport and closed-channel errors
// end the session, since the channel cannot be reused after either.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nerrad567/testchannel/internal/channel"
)

// defaultPrompt is shown before each input line.
const defaultPrompt = "$ "

// hciResetPacket is a raw HCI Reset command packet (H4 framing: packet
// type 0x01, opcode 0x0C03 little-endian, zero parameter length). It is
// written past the command codec, straight onto the channel.
var hciResetPacket = []byte{0x01, 0x03, 0x0C, 0x00}

// errQuit signals a clean, user-requested exit from the loop.
var errQuit = errors.New("shell: quit")

// Logger defines the logging interface used by the Shell.
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

// command is one entry in the closed dispatch table.
type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string) error
}

// Options configures a Shell.
type Options struct {
	// Channel is the connected test channel client.
	Channel channel.Sender

	// Input is the line source. Defaults to nothing useful; callers pass
	// os.Stdin in production and a buffer in tests.
	Input io.Reader

	// Output receives prompts and command results.
	Output io.Writer

	// Prompt overrides the default "$ " prompt.
	Prompt string

	// Logger is optional.
	Logger Logger
}

// Shell is the interactive front end over one channel session.
type Shell struct {
	channel  channel.Sender
	in       io.Reader
	out      io.Writer
	prompt   string
	logger   Logger
	commands []command
}

// New creates a shell bound to a channel client.
func New(opts Options) (*Shell, error) {
	if opts.Channel == nil {
		return nil, fmt.Errorf("shell: channel is required")
	}
	if opts.Input == nil || opts.Output == nil {
		return nil, fmt.Errorf("shell: input and output are required")
	}

	sh := &Shell{
		channel: opts.Channel,
		in:      opts.Input,
		out:     opts.Output,
		prompt:  opts.Prompt,
		logger:  opts.Logger,
	}
	if sh.prompt == "" {
		sh.prompt = defaultPrompt
	}
	if sh.logger == nil {
		sh.logger = noopLogger{}
	}
	sh.commands = sh.commandSet()
	return sh, nil
}

// commandSet builds the closed dispatch table.
func (sh *Shell) commandSet() []command {
	return []command{
		{
			name:  "discover",
			usage: "discover [name ...] - report fake inquiry results; random name if none given",
			run:   sh.runDiscover,
		},
		{
			name:  "discover_interval",
			usage: "discover_interval <ms> - report a random device every <ms> milliseconds",
			run:   sh.runDiscoverInterval,
		},
		{
			name:  "clear",
			usage: "clear - reset the controller to its original state",
			run:   sh.runClear,
		},
		{
			name:  "timeout_all",
			usage: "timeout_all - cause all HCI commands to time out",
			run:   sh.runTimeoutAll,
		},
		{
			name:  "hci_reset",
			usage: "hci_reset - send a raw HCI Reset packet",
			run:   sh.runHCIReset,
		},
		{
			name:  "devices",
			usage: "devices - list devices discovered this session",
			run:   sh.runDevices,
		},
		{
			name:  "help",
			usage: "help - show this list",
			run:   sh.runHelp,
		},
		{
			name:  "quit",
			usage: "quit - tell the controller the channel is closing, then exit",
			run:   sh.runQuit,
		},
	}
}

// Run reads and dispatches commands until the input ends, the user quits,
// or the channel becomes unusable. It returns nil on a clean exit.
func (sh *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(sh.out, "Type 'help' for more information.")

	scanner := bufio.NewScanner(sh.in)
	for {
		fmt.Fprint(sh.out, sh.prompt)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			fmt.Fprintln(sh.out)
			return nil // EOF
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		err := sh.dispatch(ctx, fields[0], fields[1:])
		switch {
		case err == nil:
			continue
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, channel.ErrTransport), errors.Is(err, channel.ErrClosed):
			// The session is gone; the channel must be recreated.
			fmt.Fprintf(sh.out, "fatal: %v\n", err)
			return err
		default:
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

// dispatch finds and runs the named command.
func (sh *Shell) dispatch(ctx context.Context, name string, args []string) error {
	for _, cmd := range sh.commands {
		if cmd.name == name {
			sh.logger.Debug("dispatching command", "command", name, "args", len(args))
			return cmd.run(ctx, args)
		}
	}
	return fmt.Errorf("unknown command %q (try 'help')", name)
}

// ─── Handlers ──────────────────────────────────────────────────────

func (sh *Shell) runDiscover(ctx context.Context, args []string) error {
	devices, err := sh.channel.Discover(ctx, args...)
	if err != nil {
		return err
	}
	for _, d := range devices {
		fmt.Fprintf(sh.out, "discovered %s (address %s)\n", d.Name, d.Address)
	}
	return nil
}

func (sh *Shell) runDiscoverInterval(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: discover_interval <ms>")
	}
	interval, err := strconv.Atoi(args[0])
	if err != nil || interval <= 0 {
		return fmt.Errorf("interval must be a positive integer, got %q", args[0])
	}

	d, err := sh.channel.DiscoverDevice("", "")
	if err != nil {
		return err
	}
	if err := sh.channel.SendCommand(ctx, channel.CmdDiscoverInterval,
		[]string{strconv.Itoa(interval), d.Name, d.Address}); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "discovering %s (address %s) every %dms\n", d.Name, d.Address, interval)
	return nil
}

func (sh *Shell) runClear(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: clear")
	}
	return sh.channel.SendCommand(ctx, channel.CmdClear, nil)
}

func (sh *Shell) runTimeoutAll(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: timeout_all")
	}
	return sh.channel.SendCommand(ctx, channel.CmdTimeoutAll, nil)
}

func (sh *Shell) runHCIReset(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: hci_reset")
	}
	return sh.channel.SendRaw(ctx, hciResetPacket)
}

func (sh *Shell) runDevices(_ context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: devices")
	}
	devices := sh.channel.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(sh.out, "no devices discovered")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(sh.out, "%s  %s\n", d.Address, d.Name)
	}
	return nil
}

func (sh *Shell) runHelp(_ context.Context, _ []string) error {
	for _, cmd := range sh.commands {
		fmt.Fprintln(sh.out, cmd.usage)
	}
	return nil
}

func (sh *Shell) runQuit(ctx context.Context, _ []string) error {
	// Best effort: the controller is told the channel is going away, but a
	// dead transport must not keep the user trapped in the shell.
	if err := sh.channel.SendCommand(ctx, channel.CmdCloseTestChannel, nil); err != nil {
		sh.logger.Warn("close notification failed", "error", err)
	}
	if err := sh.channel.Close(); err != nil {
		sh.logger.Warn("channel close failed", "error", err)
	}
	fmt.Fprintln(sh.out, "Goodbye.")
	return errQuit
}
