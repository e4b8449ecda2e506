// Package testutil provides shared test helpers for the dongle engine's
// packages: random byte/MAC generation and a polling waiter.
package testutil

import (
	"crypto/rand"
	"time"
)

// RandomBytes generates cryptographically random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return b
}

// RandomMAC generates a random 8-byte sensor/dongle MAC, as used by the Wyze
// Sense wire protocol (not an IEEE-802 MAC despite the name).
func RandomMAC() []byte {
	return RandomBytes(8)
}

// WaitFor polls condition every 10ms until it reports true or timeout
// elapses, returning whether it succeeded.
func WaitFor(timeout time.Duration, condition func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return condition()
}
