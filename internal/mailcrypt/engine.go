// Package mailcrypt implements the device-bound mail transform.
//
// The key is derived fresh at every login from machine and session
// entropy and held only in memory; the transform is a 4-byte repeating
// XOR keystream. This is deliberately not a cryptographic cipher: it
// binds stored mail to the device and identity that wrote it. Replacing
// it with a real cipher, or persisting the key, would remove the binding
// property the product depends on.
package mailcrypt

import (
	"crypto/rand"
	"net"
	"time"
)

// Key is the 32-bit session mail key.
type Key uint32

// noiseSamples is how many entropy bytes stand in for the analog noise
// reads of the original hardware.
const noiseSamples = 8

// Derive builds a session key by XOR-accumulating noise samples, the
// device's link-layer hardware address, the username bytes and the
// current clock. The result is never persisted.
func Derive(username string) Key {
	var k uint32

	var noise [noiseSamples]byte
	rand.Read(noise[:])
	for _, b := range noise {
		k = mix(k, b)
	}

	for _, b := range hardwareAddr() {
		k = mix(k, b)
	}

	for i := 0; i < len(username); i++ {
		k = mix(k, username[i])
	}

	now := uint64(time.Now().UnixNano())
	for i := 0; i < 8; i++ {
		k = mix(k, byte(now>>(8*i)))
	}

	return Key(k)
}

// mix folds one byte into the accumulator with a rotate so position
// matters, not just the XOR of all inputs.
func mix(k uint32, b byte) uint32 {
	return (k<<5 | k>>27) ^ uint32(b)
}

// hardwareAddr returns the MAC of the first non-loopback interface that
// has one, or nil when the host exposes none.
func hardwareAddr() net.HardwareAddr {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || len(ifc.HardwareAddr) == 0 {
			continue
		}
		return ifc.HardwareAddr
	}
	return nil
}

// Transform applies the keystream to data and returns a new slice.
// Applying it twice with the same key recovers the input exactly.
func Transform(data []byte, k Key) []byte {
	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ keyByte(k, i)
	}
	return out
}

func keyByte(k Key, i int) byte {
	return byte(uint32(k) >> (8 * (i % 4)))
}
