// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// dataMode records how a DataConnection's socket was obtained.
type dataMode int

const (
	modePassiveListener dataMode = iota // PASV: listening, no peer yet
	modeActiveStream                    // PORT: dialed out to the client
	modePassiveStream                   // PASV: peer has connected
)

// payloadKind distinguishes the three shapes a transfer payload can take,
// matching the Rust original's FileTransferType.
type payloadKind int

const (
	payloadBuffer payloadKind = iota
	payloadFileDownload
	payloadFileUpload
)

// DataConnection is one armed or in-flight data transfer. At most one is
// ever registered against a given Session at a time (an invariant the
// connection table and the command handlers both enforce).
type DataConnection struct {
	handle      uint64
	peerSession uint64 // handle of the owning Session in the connection table
	table       *connTable

	mode     dataMode
	listener net.Listener // set by PASV until connection() has accepted the peer

	mu   sync.Mutex
	conn net.Conn // set once the stream side is live
	kind payloadKind
	buf  []byte // payloadBuffer: bytes still to send
	file afero.File

	closed bool
}

// newDataConnection registers a fresh, not-yet-connected data connection
// for sess and returns its handle alongside the record.
func newDataConnection(table *connTable, sess *Session, mode dataMode) (*DataConnection, uint64) {
	dc := &DataConnection{peerSession: sess.handle, table: table, mode: mode}
	handle := table.Insert(dc)
	dc.handle = handle

	return dc, handle
}

// attach supplies the live net.Conn that handlePORT dialed. A PASV data
// connection gets its conn from connection() instead, which accepts on
// the listener.
func (d *DataConnection) attach(conn net.Conn) {
	d.mu.Lock()
	d.conn = conn
	d.mode = modeActiveStream
	d.mu.Unlock()
}

// setBuffer arms a Buffer payload (used for LIST output).
func (d *DataConnection) setBuffer(b []byte) {
	d.mu.Lock()
	d.kind = payloadBuffer
	d.buf = b
	d.mu.Unlock()
}

// setFileDownload arms a FileDownload payload (RETR).
func (d *DataConnection) setFileDownload(f afero.File) {
	d.mu.Lock()
	d.kind = payloadFileDownload
	d.file = f
	d.mu.Unlock()
}

// setFileUpload arms a FileUpload payload (STOR).
func (d *DataConnection) setFileUpload(f afero.File) {
	d.mu.Lock()
	d.kind = payloadFileUpload
	d.file = f
	d.mu.Unlock()
}

// connection returns the live net.Conn, accepting on the passive
// listener first if the peer has not connected yet (the PASV listener
// is created by handlePASV well before the transfer command arrives;
// the client is expected to have dialed in by the time the transfer
// starts, but this blocks a bounded amount of time if not).
func (d *DataConnection) connection() (net.Conn, error) {
	d.mu.Lock()
	conn, listener := d.conn, d.listener
	d.mu.Unlock()

	if conn != nil {
		return conn, nil
	}

	if listener == nil {
		return nil, ErrNoAvailableListeningPort
	}

	type tcpDeadline interface {
		SetDeadline(time.Time) error
	}

	if dl, ok := listener.(tcpDeadline); ok {
		_ = dl.SetDeadline(time.Now().Add(30 * time.Second))
	}

	accepted, err := listener.Accept()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.conn = accepted
	d.mode = modePassiveStream
	d.listener = nil
	d.mu.Unlock()

	_ = listener.Close()

	return accepted, nil
}

// pump drives the armed payload to completion on the calling goroutine
// (always a goroutine spawned off the owning Session's after-send hook,
// never the session's own read loop) and reports the final reply that
// must be sent back on the control connection.
func (d *DataConnection) pump() (ReplyCode, string) {
	conn, err := d.connection()
	if err != nil {
		return ReplyCantOpenDataConn, "Can't open data connection"
	}

	d.mu.Lock()
	kind := d.kind
	d.mu.Unlock()

	switch kind {
	case payloadBuffer:
		d.mu.Lock()
		b := d.buf
		d.mu.Unlock()
		_, err = conn.Write(b)
	case payloadFileDownload:
		d.mu.Lock()
		f := d.file
		d.mu.Unlock()
		_, err = io.Copy(conn, f)
		_ = f.Close()
	case payloadFileUpload:
		d.mu.Lock()
		f := d.file
		d.mu.Unlock()
		_, err = io.Copy(f, conn)
		_ = f.Close()
	}

	_ = conn.Close()

	if err != nil && err != io.EOF {
		return ReplyAbortedDataConn, "Connection closed; transfer aborted"
	}

	switch kind {
	case payloadFileDownload:
		return ReplyClosingDataConn, "Closing data connection. Requested file action successful. (file transfer)"
	default:
		return ReplyClosingDataConn, "Closing data connection. Requested file action successful (for example, file transfer or file abort)."
	}
}

// close tears down whichever of the listener or live connection this
// DataConnection holds. It is called for a data connection that is being
// discarded: by Session.abortArmedDataConnection when PORT/PASV
// supersedes it or a transfer command fails before its transfer starts,
// and by Session.closeQuiet on session cleanup, which also reaches a
// transfer still in flight. A completed transfer has already closed its
// listener after Accept and its conn at the end of pump().
func (d *DataConnection) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.closed = true

	if d.conn != nil {
		_ = d.conn.Close()
	}

	if d.listener != nil {
		_ = d.listener.Close()
	}
}
