// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"context"
	"errors"
	"net"
	"time"

	log "github.com/fclairamb/go-log"
	lognoop "github.com/fclairamb/go-log/noop"
)

// ErrNotListening is returned when performing an action that is only valid while listening.
var ErrNotListening = errors.New("we aren't listening")

// Settings configures one FtpServer.
type Settings struct {
	ListenAddr  string        // address to listen on, e.g. "0.0.0.0:8080"
	Capacity    int           // max number of simultaneous control connections
	IdleTimeout time.Duration // per-command read deadline
	PublicHost  string        // IP advertised in PASV replies; defaults to 0.0.0.0
}

// FtpServer is one running instance of the command/data state machine
// described by the data model: a listener, a connection table shared by
// every session and data connection it owns, and the user store driving
// authentication and chroot selection.
type FtpServer struct {
	Logger   log.Logger
	settings Settings
	listener net.Listener
	table    *connTable
	users    UserStore

	clientCounter uint64
}

// NewFtpServer creates a server bound to no socket yet; call Listen or
// ListenAndServe to start accepting.
func NewFtpServer(settings Settings, users UserStore) *FtpServer {
	if settings.IdleTimeout == 0 {
		settings.IdleTimeout = 15 * time.Minute
	}

	return &FtpServer{
		settings: settings,
		users:    users,
		table:    newConnTable(),
		Logger:   lognoop.NewNoOpLogger(),
	}
}

// Listen binds the listening socket. It is not a blocking call.
//
// The control socket is bound with SO_REUSEADDR/SO_REUSEPORT (see
// control_unix.go/control_windows.go) so a restarted server doesn't have
// to wait out the previous listener's TIME_WAIT state.
func (server *FtpServer) Listen() error {
	lc := net.ListenConfig{Control: Control}

	listener, err := lc.Listen(context.Background(), "tcp", server.settings.ListenAddr)
	if err != nil {
		return NewNetworkError("cannot listen on main port", err)
	}

	server.listener = listener
	server.Logger.Info("Listening...", "address", server.listener.Addr())

	return nil
}

// Serve accepts and dispatches incoming control connections until the
// listener is closed.
func (server *FtpServer) Serve() error {
	var tempDelay time.Duration

	for {
		conn, err := server.listener.Accept()
		if err != nil {
			if stop, finalErr := server.handleAcceptError(err, &tempDelay); stop {
				return finalErr
			}

			continue
		}

		tempDelay = 0

		server.clientArrival(conn)
	}
}

func (server *FtpServer) handleAcceptError(err error, tempDelay *time.Duration) (bool, error) {
	var errOp *net.OpError
	if errors.As(err, &errOp) && errOp.Err.Error() == "use of closed network connection" {
		server.listener = nil

		return true, nil
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		if *tempDelay == 0 {
			*tempDelay = 5 * time.Millisecond
		} else {
			*tempDelay *= 2
		}

		if max := time.Second; *tempDelay > max {
			*tempDelay = max
		}

		server.Logger.Warn("accept error, retrying", "err", err, "delay", *tempDelay)
		time.Sleep(*tempDelay)

		return false, nil
	}

	server.Logger.Error("listener accept error", "err", err)

	return true, NewNetworkError("listener accept error", err)
}

// ListenAndServe chains Listen and Serve.
func (server *FtpServer) ListenAndServe() error {
	if err := server.Listen(); err != nil {
		return err
	}

	server.Logger.Info("Starting...")

	return server.Serve()
}

// Addr reports the listening address.
func (server *FtpServer) Addr() string {
	if server.listener != nil {
		return server.listener.Addr().String()
	}

	return ""
}

// Stop closes the listener. In-flight sessions run to completion.
func (server *FtpServer) Stop() error {
	if server.listener == nil {
		return ErrNotListening
	}

	if err := server.listener.Close(); err != nil {
		return NewNetworkError("couldn't close listener", err)
	}

	return nil
}

// clientArrival applies the capacity gate (SPEC_FULL.md §4.6) and, if
// fewer than Capacity sessions are registered, spawns the goroutine that
// runs the new session's command loop. Data connections in the table do
// not count against Capacity.
func (server *FtpServer) clientArrival(conn net.Conn) {
	server.clientCounter++

	sessions := 0

	server.table.mu.Lock()
	for _, rec := range server.table.records {
		if _, ok := rec.(*Session); ok {
			sessions++
		}
	}
	server.table.mu.Unlock()

	if server.settings.Capacity > 0 && sessions >= server.settings.Capacity {
		server.rejectOverCapacity(conn)

		return
	}

	logger := server.Logger.With("clientId", server.clientCounter)
	sess := newSession(0, server, conn, logger)
	handle := server.table.Insert(sess)
	sess.handle = handle

	go server.runSession(sess)

	logger.Debug("Client connected", "clientIp", conn.RemoteAddr())
}

// rejectOverCapacity implements the capacity-gate behavior: the
// connection never enters the table and never gets a session goroutine;
// it receives a single reply line in place of the usual greeting and is
// closed immediately after.
func (server *FtpServer) rejectOverCapacity(conn net.Conn) {
	_, _ = conn.Write([]byte(Render(ReplyServiceNotAvailable, "Bye, server is at capacity")))
	_ = conn.Close()

	server.Logger.Warn("rejected connection: at capacity", "remote", conn.RemoteAddr())
}

func (server *FtpServer) clientDeparture(sess *Session) {
	server.table.Remove(sess.handle)
	server.Logger.Debug("Client disconnected", "clientIp", sess.conn.RemoteAddr())
}
