// Package log re-exports the fclairamb/go-log Logger interface used
// throughout the core package, so the rest of this module can depend on
// a local import path without redeclaring the interface (which would
// make two structurally-identical but nominally distinct Logger types,
// and FtpServer.Logger is itself typed directly against go-log).
package log

import golog "github.com/fclairamb/go-log"

// Logger is the logging interface every core component and driver
// depends on: Debug/Info/Warn/Error(event string, keyvals ...interface{})
// plus With(keyvals ...interface{}) Logger for attaching fixed fields.
type Logger = golog.Logger
