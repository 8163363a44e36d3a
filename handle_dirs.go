// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import "fmt"

func (server *FtpServer) handlePWD(sess *Session, _ string) error {
	return sess.sendReply(ReplyPathCreated, fmt.Sprintf("%q is the current directory", sess.dir()))
}

func (server *FtpServer) handleCWD(sess *Session, param string) error {
	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	info, err := sess.fs.Stat(Relative(sess.rootDir(), resolved))
	if err != nil || !info.IsDir() {
		return &PathError{Msg: "Directory not found", Err: err}
	}

	sess.setDir(Relative(sess.rootDir(), resolved))

	return sess.sendReply(ReplyFileActionOkay, fmt.Sprintf("CD worked on %s", sess.dir()))
}

func (server *FtpServer) handleMKD(sess *Session, param string) error {
	resolved, err := resolveForCreate(sess, param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)
	if err := sess.fs.Mkdir(rel, 0o755); err != nil {
		return &PathError{Msg: "Could not create directory", Err: err}
	}

	return sess.sendReply(ReplyPathCreated, fmt.Sprintf("Created dir %q", quoteDoubling(rel)))
}

func (server *FtpServer) handleRMD(sess *Session, param string) error {
	resolved, err := Resolve(sess.rootDir(), sess.dir(), param)
	if err != nil {
		return &PathError{Msg: "Invalid directory", Err: err}
	}

	rel := Relative(sess.rootDir(), resolved)
	if err := sess.fs.RemoveAll(rel); err != nil {
		return &PathError{Msg: "Could not delete directory", Err: err}
	}

	return sess.sendReply(ReplyFileActionOkay, fmt.Sprintf("Deleted dir %s", rel))
}

// resolveForCreate resolves a path that is allowed not to exist yet.
func resolveForCreate(sess *Session, param string) (string, error) {
	return Resolve(sess.rootDir(), sess.dir(), param)
}

func quoteDoubling(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			out = append(out, '"', '"')
		} else {
			out = append(out, s[i])
		}
	}

	return string(out)
}
