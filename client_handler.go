// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"bufio"
	"errors"
	"io"
	"time"
)

const maxCommandLineLength = 10 * 1024 // spec.md's 10KiB request-line cap

func timeNow() time.Time { return time.Now() }

// runSession owns one control connection end to end: greeting, the
// read-parse-dispatch loop, and cleanup. It is spawned once per accepted
// connection by clientArrival and never shared with any other goroutine
// except the data-connection goroutines it may spawn, which talk back to
// it only through Session.sendReply and the connection table.
func (server *FtpServer) runSession(sess *Session) {
	defer server.clientDeparture(sess)
	defer sess.closeQuiet()

	if err := sess.sendReply(ReplyServiceReady, "Service ready for new user."); err != nil {
		return
	}

	reader := bufio.NewReaderSize(sess.conn, maxCommandLineLength)

	for {
		if server.settings.IdleTimeout > 0 {
			_ = sess.conn.SetReadDeadline(timeNow().Add(server.settings.IdleTimeout))
		}

		line, err := readCommandLine(reader, maxCommandLineLength)
		if err != nil {
			if errors.Is(err, errLineTooLong) {
				_ = sess.sendReply(ReplySyntaxError, "Command line too long")

				continue
			}

			server.handleReadError(sess, err)

			return
		}

		if server.dispatch(sess, line) {
			return
		}
	}
}

// errLineTooLong reports that a request line exceeded maxCommandLineLength
// without a CRLF in sight.
var errLineTooLong = errors.New("command line too long")

// readCommandLine reads one CRLF-terminated line from r, bounded to max
// bytes: a client that never sends a newline within max bytes gets
// errLineTooLong instead of having the server buffer it unboundedly, and
// the remainder of the oversized line is discarded so the next read
// resynchronizes on the following command.
func readCommandLine(r *bufio.Reader, max int) (string, error) {
	var buf []byte

	for {
		frag, err := r.ReadSlice('\n')
		buf = append(buf, frag...)

		if err == nil {
			if len(buf) > max {
				// The delimiter has already been consumed from r along
				// with everything before it: nothing left to discard.
				return "", errLineTooLong
			}

			return string(buf), nil
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			if len(buf) > max {
				discardLine(r)

				return "", errLineTooLong
			}

			continue
		}

		return string(buf), err
	}
}

// discardLine reads and drops bytes from r up to and including the next
// newline, or until r is exhausted.
func discardLine(r *bufio.Reader) {
	for {
		_, err := r.ReadSlice('\n')
		if err == nil || !errors.Is(err, bufio.ErrBufferFull) {
			return
		}
	}
}

func (server *FtpServer) handleReadError(sess *Session, err error) {
	if isTransientIO(err) {
		_ = sess.sendReply(ReplyLocalError, "Idle timeout, bye")

		return
	}

	if errors.Is(err, io.EOF) {
		return
	}

	sess.logger.Debug("read error", "err", err)
}

// dispatch parses and executes one command line, returning true if the
// session should terminate, which is only the case after QUIT. A failed
// reply write is not reported here; the session ends when the read loop's
// next read on the broken connection fails.
func (server *FtpServer) dispatch(sess *Session, line string) bool {
	cmd, err := ParseCommand(line)
	if err != nil {
		_ = sess.sendReply(ReplySyntaxError, err.Error())

		return false
	}

	if cmd.Verb == "QUIT" {
		_ = sess.sendReply(ReplyClosing, "Service closing control connection.")

		return true
	}

	if cmd.RequiresAuth() && !sess.isAuthenticated() {
		_ = sess.sendReply(ReplyNotLoggedIn, "Please login with USER and PASS")

		return false
	}

	if err := server.execute(sess, cmd); err != nil {
		sess.logger.Debug("command failed", "verb", cmd.Verb, "err", err)
		_ = sess.sendReply(replyCodeFor(err), err.Error())
	}

	return false
}

func (server *FtpServer) execute(sess *Session, cmd Command) error {
	switch cmd.Verb {
	case "USER":
		return server.handleUSER(sess, cmd.Arg)
	case "PASS":
		return server.handlePASS(sess, cmd.Arg)
	case "PWD":
		return server.handlePWD(sess, cmd.Arg)
	case "CWD":
		return server.handleCWD(sess, cmd.Arg)
	case "CDUP":
		return server.handleCWD(sess, "..")
	case "MKD":
		return server.handleMKD(sess, cmd.Arg)
	case "RMD":
		return server.handleRMD(sess, cmd.Arg)
	case "DELE":
		return server.handleDELE(sess, cmd.Arg)
	case "RNFR":
		return server.handleRNFR(sess, cmd.Arg)
	case "RNTO":
		return server.handleRNTO(sess, cmd.Arg)
	case "LIST":
		return server.handleLIST(sess, cmd.Arg)
	case "RETR":
		return server.handleRETR(sess, cmd.Arg)
	case "STOR":
		return server.handleSTOR(sess, cmd.Arg)
	case "PORT":
		return server.handlePORT(sess, cmd.Arg)
	case "PASV":
		return server.handlePASV(sess, cmd.Arg)
	default:
		return &ParseError{Msg: "Unknown command " + cmd.Verb}
	}
}
