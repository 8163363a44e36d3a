// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// handlePORT parses the h1,h2,h3,h4,p1,p2 argument (already validated by
// ParseCommand) and dials back to the client, arming an active-mode
// DataConnection for the next transfer command.
func (server *FtpServer) handlePORT(sess *Session, arg string) error {
	addr, err := parsePORTArg(arg)
	if err != nil {
		return err
	}

	sess.abortArmedDataConnection()

	dc, handle := newDataConnection(server.table, sess, modeActiveStream)
	sess.setDataRef(handle)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		server.table.Remove(handle)
		sess.clearDataRef(handle)

		return &SequenceError{Msg: "Bad sequence of commands."}
	}

	dc.attach(conn)
	dc.mode = modeActiveStream

	return sess.sendReply(ReplyCommandOkay, "Command okay.")
}

func parsePORTArg(arg string) (string, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 6 {
		return "", &ParseError{Msg: "Bad format of the 'PORT' command"}
	}

	nums := make([]int, 6)

	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return "", &ParseError{Msg: "Bad format of the 'PORT' command"}
		}

		nums[i] = n
	}

	ip := fmt.Sprintf("%d.%d.%d.%d", nums[0], nums[1], nums[2], nums[3])
	port := nums[4]*256 + nums[5]

	return fmt.Sprintf("%s:%d", ip, port), nil
}
