package streaming

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// defaultPortTimeout bounds a whole port allocation pass. Allocation is a
// handful of local socket opens, so hitting this means the system is in
// real trouble; the bound just keeps Prepare from hanging a viewer forever.
const defaultPortTimeout = 5 * time.Second

// allocateUDPPorts reserves n distinct ephemeral UDP ports from the OS.
// The listeners are closed before returning: the reservation guarantees
// the ports were free at allocation time, which is the same contract every
// external-process media tool lives with.
func allocateUDPPorts(n int, timeout time.Duration) ([]int, error) {
	deadline := time.Now().Add(timeout)
	listeners := make([]*net.UDPConn, 0, n)
	defer func() {
		for _, l := range listeners {
			l.Close()
		}
	}()

	ports := make([]int, 0, n)
	for len(ports) < n {
		if time.Now().After(deadline) {
			return nil, NewSessionError(ErrCodePortAllocation,
				fmt.Sprintf("allocated %d of %d ports before timeout", len(ports), n), nil)
		}
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
		if err != nil {
			return nil, NewSessionError(ErrCodePortAllocation, "failed to reserve UDP port", err)
		}
		listeners = append(listeners, conn)
		ports = append(ports, conn.LocalAddr().(*net.UDPAddr).Port)
	}
	return ports, nil
}

// newSSRC draws a random synchronization source identifier. The top byte
// is zeroed: ffmpeg parses -ssrc as a signed 32-bit option and rejects
// anything above math.MaxInt32.
func newSSRC() uint32 {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failure on Linux means the process is beyond saving
		panic(err)
	}
	buf[0] = 0
	return binary.BigEndian.Uint32(buf[:])
}
