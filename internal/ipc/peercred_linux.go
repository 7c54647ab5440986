//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// peerIsCurrentUser reports whether the process on the other end of conn
// runs as the same user as the daemon.
func peerIsCurrentUser(conn net.Conn) (bool, error) {
	unixConn, isUnix := conn.(*net.UnixConn)
	if !isUnix {
		return false, fmt.Errorf("not a unix connection")
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return false, fmt.Errorf("get raw conn: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	err = rawConn.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return false, fmt.Errorf("control: %w", err)
	}
	if credErr != nil {
		return false, fmt.Errorf("getsockopt: %w", credErr)
	}

	return int(cred.Uid) == os.Getuid(), nil
}
