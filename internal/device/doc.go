// Package device manages the simulated peer devices that the test channel
// reports to the controller during discovery.
//
// A Device is an immutable value: once created it is never modified. Devices
// without an explicit name or address get randomly generated ones, matching
// what a real inquiry result would carry:
//
//	d := device.New("", "")        // random name and address
//	d := device.New("KBD001", "")  // explicit name, random address
//
// The Registry keeps discovered devices keyed by address. Addresses are
// unique; registering a second device with the same address replaces the
// first (last write wins). The registry lives for the duration of one
// channel session and is never persisted.
//
// # Thread Safety
//
// Registry methods are safe for concurrent use. Device values are immutable
// and safe to share.
package device
