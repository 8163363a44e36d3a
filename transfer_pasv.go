// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrNoAvailableListeningPort is returned when no port could be bound for
// a passive data connection.
var ErrNoAvailableListeningPort = errors.New("could not find any port to listen to")

// handlePASV opens a listening socket for the client to connect back to
// and replies with its address, encoded the way RFC 959 and both
// lineages of this server agree on: p1 = port/256, p2 = port - p1*256.
func (server *FtpServer) handlePASV(sess *Session, _ string) error {
	listener, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		return &ResourceExhaustionError{Msg: ErrNoAvailableListeningPort.Error(), Err: err}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	p1 := port / 256
	p2 := port - p1*256

	sess.abortArmedDataConnection()

	dc, handle := newDataConnection(server.table, sess, modePassiveListener)
	dc.listener = listener
	sess.setDataRef(handle)

	quads := server.currentIP()

	return sess.sendReply(ReplyEnteringPassive, fmt.Sprintf(
		"Entering Passive Mode (%s,%s,%s,%s,%d,%d)", quads[0], quads[1], quads[2], quads[3], p1, p2))
}

// currentIP returns the quad-dotted octets advertised in the PASV reply.
// Grounded on original_source's handler_read.rs, which always advertises
// "0,0,0,0" and lets the client connect back to the bound port on
// whatever address it already used for the control connection; a
// configured PublicHost overrides this for deployments behind a fixed
// address.
func (server *FtpServer) currentIP() []string {
	ip := server.settings.PublicHost
	if ip == "" {
		ip = "0.0.0.0"
	}

	return strings.Split(ip, ".")
}
