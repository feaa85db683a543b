package device

import (
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
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

// Registry maintains the fake devices that have been "discovered" during a
// channel session.
//
// Devices are keyed by address. At most one device exists per address; a
// later Add with a colliding address silently replaces the earlier entry.
// The registry is memory-resident only and is discarded with the session.
//
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	logger  Logger
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Add inserts a device, keyed by address. If a device with the same address
// is already registered, it is replaced (last write wins).
func (r *Registry) Add(d Device) {
	r.mu.Lock()
	_, replaced := r.devices[d.Address]
	r.devices[d.Address] = d
	logger := r.logger
	r.mu.Unlock()

	if replaced {
		logger.Warn("device replaced", "address", d.Address, "name", d.Name)
	} else {
		logger.Debug("device registered", "address", d.Address, "name", d.Name)
	}
}

// Get retrieves a device by address.
func (r *Registry) Get(address string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[address]
	return d, ok
}

// List returns all registered devices, ordered by address for stable output.
func (r *Registry) List() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
