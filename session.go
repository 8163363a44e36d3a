// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"net"
	"sync"

	"github.com/spf13/afero"

	"github.com/fclairamb/gosimplftpd/drivers"
	"github.com/fclairamb/gosimplftpd/log"
)

// Session is one control connection: the login identity, the current
// working directory, and the one data connection it may have armed at a
// time. It is the Go realization of the Rust original's RequestContext
// for the CommandTransfer variant.
type Session struct {
	handle uint64
	server *FtpServer
	conn   net.Conn
	logger log.Logger

	// writeMu guards actual writes to conn: a transfer-completion
	// goroutine and this session's own read loop can both want to send
	// a reply line, and only one may be mid-write at a time.
	writeMu sync.Mutex

	mu              sync.Mutex
	user            User
	fs              afero.Fs
	authenticated   bool
	pendingUser     string
	currentDir      string
	renameFrom      string

	// afterSend is a one-shot continuation installed by a 150-reply
	// handler and invoked, in the writer's own goroutine, immediately
	// after the reply bytes are confirmed written. It is how a command
	// handler sequences "reply 150" before "start moving the payload"
	// without a separate wakeup mechanism.
	afterSend func()

	// dataRef is the connection-table handle of this session's armed
	// data connection, or 0 if none is armed.
	dataRef uint64

	closed bool
}

func newSession(handle uint64, server *FtpServer, conn net.Conn, logger log.Logger) *Session {
	return &Session{
		handle:     handle,
		server:     server,
		conn:       conn,
		logger:     logger,
		currentDir: "/",
	}
}

// sendReply writes one reply line and then fires any pending after-send
// continuation, in that order, on the calling goroutine.
func (s *Session) sendReply(code ReplyCode, message string) error {
	line := Render(code, message)

	s.writeMu.Lock()
	_, err := s.conn.Write([]byte(line))
	s.writeMu.Unlock()

	if err != nil {
		return NewNetworkError("writing reply", err)
	}

	s.mu.Lock()
	hook := s.afterSend
	s.afterSend = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	return nil
}

// armAfterSend installs a one-shot continuation to run right after the
// next sendReply completes.
func (s *Session) armAfterSend(fn func()) {
	s.mu.Lock()
	s.afterSend = fn
	s.mu.Unlock()
}

func (s *Session) setPendingUsername(u string) {
	s.mu.Lock()
	s.pendingUser = u
	s.mu.Unlock()
}

func (s *Session) pendingUsername() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pendingUser
}

func (s *Session) setUser(u User) error {
	fs, err := drivers.NewChrootFs(afero.NewOsFs(), u.Chroot)
	if err != nil {
		return NewDriverError("preparing chroot", err)
	}

	s.mu.Lock()
	s.user = u
	s.authenticated = true
	s.fs = fs
	s.mu.Unlock()

	return nil
}

// rootDir is the session's chroot filesystem path as the user store
// recorded it (relative to the working directory when the store's base
// directory is relative), used by sandbox.Resolve's canonicalization.
func (s *Session) rootDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user.Chroot
}

func (s *Session) isAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authenticated
}

func (s *Session) dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentDir
}

func (s *Session) setDir(d string) {
	s.mu.Lock()
	s.currentDir = d
	s.mu.Unlock()
}

func (s *Session) setDataRef(handle uint64) {
	s.mu.Lock()
	s.dataRef = handle
	s.mu.Unlock()
}

func (s *Session) clearDataRef(expect uint64) {
	s.mu.Lock()
	if s.dataRef == expect {
		s.dataRef = 0
	}
	s.mu.Unlock()
}

func (s *Session) setRenameFrom(p string) {
	s.mu.Lock()
	s.renameFrom = p
	s.mu.Unlock()
}

func (s *Session) takeRenameFrom() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.renameFrom
	s.renameFrom = ""

	return p
}

func (s *Session) armedDataRef() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dataRef
}

// armedDataConnection returns the DataConnection previously armed by
// PORT or PASV, consuming it so a second transfer command cannot reuse
// the same data connection (spec.md's "at most one data connection per
// session" invariant).
func (s *Session) armedDataConnection() (*DataConnection, error) {
	handle := s.armedDataRef()
	if handle == 0 {
		return nil, &SequenceError{Msg: "Use PORT or PASV first"}
	}

	dc := s.server.table.DataConn(handle)
	if dc == nil {
		return nil, &SequenceError{Msg: "Use PORT or PASV first"}
	}

	return dc, nil
}

// abortArmedDataConnection tears down and forgets this session's armed
// data connection, if any. It is used both when PORT/PASV supersedes a
// prior Armed data connection (spec.md §4.9: "Any prior Armed is
// replaced and its socket closed") and when a command that required a
// data connection fails before ever reaching the transfer stage, e.g. a
// bad path or open error on LIST/RETR/STOR (spec.md §4.7: "clear
// data_ref" on any such failure).
func (s *Session) abortArmedDataConnection() {
	handle := s.armedDataRef()
	if handle == 0 {
		return
	}

	if dc := s.server.table.DataConn(handle); dc != nil {
		dc.close()
		s.server.table.Remove(handle)
	}

	s.clearDataRef(handle)
}

// closeQuiet tears down the control connection and any data connection
// it still owns, ignoring errors: it is only ever called as session
// cleanup on the way out.
func (s *Session) closeQuiet() {
	s.mu.Lock()
	s.closed = true
	dataRef := s.dataRef
	s.mu.Unlock()

	if dataRef != 0 {
		if dc := s.server.table.DataConn(dataRef); dc != nil {
			dc.close()
			s.server.table.Remove(dataRef)
		}
	}

	_ = s.conn.Close()
}
