// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

// handleUSER records the candidate username and asks for a password.
// Per the command grammar, authentication only completes on PASS.
func (server *FtpServer) handleUSER(sess *Session, username string) error {
	if username == "" {
		return &ParseError{Msg: "Bad format of the 'USER' command"}
	}

	sess.setPendingUsername(username)

	return sess.sendReply(ReplyUsernameOkay, "User name okay, need password.")
}

// handlePASS authenticates against the user store. Per DESIGN.md's Open
// Question (a) resolution, an unknown username is created on the spot
// (open enrollment) rather than rejected.
func (server *FtpServer) handlePASS(sess *Session, password string) error {
	username := sess.pendingUsername()
	if username == "" {
		return &SequenceError{Msg: "Login with USER first"}
	}

	user, err := server.users.Authenticate(username, password)
	if err != nil {
		return err
	}

	if err := sess.setUser(user); err != nil {
		return err
	}

	return sess.sendReply(ReplyLoginSuccess, "User logged in, proceed.")
}
