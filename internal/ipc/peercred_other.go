//go:build !linux

package ipc

import (
	"errors"
	"net"
)

// The socket file mode is the only access control here.
func peerIsCurrentUser(net.Conn) (bool, error) {
	return true, errors.New("peer credentials not supported on this platform")
}
