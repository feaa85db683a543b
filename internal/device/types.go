package device

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Generated name/address lengths and alphabets.
//
// These match the format of inquiry results from real controllers: a short
// uppercase-alphanumeric friendly name and a numeric address string.
const (
	// NameLength is the length of a generated device name.
	NameLength = 6

	// AddressLength is the length of a generated device address.
	AddressLength = 6

	// nameAlphabet is the character set for generated names.
	nameAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// addressAlphabet is the character set for generated addresses.
	addressAlphabet = "0123456789"
)

// Device is a simulated peer returned in inquiry and scan results.
//
// Devices are immutable values. Name and Address are always populated: if
// either is not supplied at construction, a random value is generated in its
// place. The ID is internal bookkeeping and never appears on the wire.
type Device struct {
	// ID uniquely identifies this discovery event.
	ID string

	// Name is the device name for use in extended inquiry results.
	Name string

	// Address is the device address the registry keys on.
	Address string

	// DiscoveredAt records when the device was created.
	DiscoveredAt time.Time
}

// New creates a Device. An empty name or address is independently replaced
// with a randomly generated value.
func New(name, address string) Device {
	if name == "" {
		name = GenerateName()
	}
	if address == "" {
		address = GenerateAddress()
	}
	return Device{
		ID:           GenerateID(),
		Name:         name,
		Address:      address,
		DiscoveredAt: time.Now().UTC(),
	}
}

// String returns a human-readable representation of the device.
func (d Device) String() string {
	return fmt.Sprintf("Device{Name:%s, Address:%s}", d.Name, d.Address)
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}

// GenerateName returns a random device name: NameLength characters drawn
// from uppercase letters and digits.
func GenerateName() string {
	return randomString(nameAlphabet, NameLength)
}

// GenerateAddress returns a random device address: AddressLength digit
// characters.
func GenerateAddress() string {
	return randomString(addressAlphabet, AddressLength)
}

// randomString returns n characters drawn from alphabet using the system
// CSPRNG. The modulo mapping has a slight bias, which is acceptable here:
// the values are test fixtures that only need to be non-colliding and
// unpredictable across runs, not uniformly distributed.
func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	// crypto/rand.Read never returns an error on supported platforms.
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("device: reading random bytes: %v", err))
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}
