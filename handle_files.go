// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"fmt"
	"os"
)

func (server *FtpServer) handleDELE(sess *Session, param string) error {
	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)
	if err := sess.fs.Remove(rel); err != nil {
		return &PathError{Msg: "Could not delete file", Err: err}
	}

	return sess.sendReply(ReplyFileActionOkay, fmt.Sprintf("Deleted file %s", rel))
}

func (server *FtpServer) handleRNFR(sess *Session, param string) error {
	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)
	if _, err := sess.fs.Stat(rel); err != nil {
		return &PathError{Msg: "File not found", Err: err}
	}

	sess.setRenameFrom(rel)

	return sess.sendReply(ReplyNeedMoreInfo, "Requested file action pending further information")
}

// handleRNTO completes a rename. Per original_source's rename semantics
// (system::rename), renaming across directories fails if the
// destination already exists, where a same-directory rename simply
// replaces it the way the filesystem's own rename call does.
func (server *FtpServer) handleRNTO(sess *Session, param string) error {
	from := sess.takeRenameFrom()
	if from == "" {
		return &SequenceError{Msg: "RNFR required first"}
	}

	resolved, err := resolveForCreate(sess, param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	to := Relative(sess.rootDir(), resolved)

	if dirOf(from) != dirOf(to) {
		if _, err := sess.fs.Stat(to); err == nil {
			return &PathError{Msg: "Destination already exists"}
		}
	}

	if err := sess.fs.Rename(from, to); err != nil {
		return &PathError{Msg: "Could not rename", Err: err}
	}

	return sess.sendReply(ReplyFileActionOkay, fmt.Sprintf("Renamed %s to %s", from, to))
}

func dirOf(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}

	return ""
}

func (server *FtpServer) handleLIST(sess *Session, param string) error {
	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "Invalid directory", Err: err}
	}

	data, err := List(sess.fs, Relative(sess.rootDir(), resolved))
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "Could not list directory", Err: err}
	}

	dc, err := sess.armedDataConnection()
	if err != nil {
		return err
	}

	dc.setBuffer(data)

	return server.beginTransfer(sess, dc, ReplyFileStatusOkay,
		"File status okay; about to open data connection.")
}

func (server *FtpServer) handleRETR(sess *Session, param string) error {
	dc, err := sess.armedDataConnection()
	if err != nil {
		return err
	}

	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)

	f, err := sess.fs.OpenFile(rel, os.O_RDONLY, 0)
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "File not found", Err: err}
	}

	dc.setFileDownload(f)

	return server.beginTransfer(sess, dc, ReplyFileStatusOkay, "File download starts!")
}

func (server *FtpServer) handleSTOR(sess *Session, param string) error {
	resolved, err := resolveForCreate(sess, param)
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)

	f, err := sess.fs.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		sess.abortArmedDataConnection()

		return &PathError{Msg: "Could not create file", Err: err}
	}

	dc, err := sess.armedDataConnection()
	if err != nil {
		_ = f.Close()

		return err
	}

	dc.setFileUpload(f)

	return server.beginTransfer(sess, dc, ReplyFileStatusOkay, "File status okay; about to open data connection.")
}

// beginTransfer sends the 150 reply and arms an after-send continuation
// that spawns the goroutine actually moving bytes, so the reply is
// always on the wire before the payload starts moving.
func (server *FtpServer) beginTransfer(sess *Session, dc *DataConnection, code ReplyCode, msg string) error {
	sess.armAfterSend(func() {
		go func() {
			replyCode, replyMsg := dc.pump()
			sess.server.table.Remove(dc.handle)
			sess.clearDataRef(dc.handle)
			_ = sess.sendReply(replyCode, replyMsg)
		}()
	})

	return sess.sendReply(code, msg)
}
