// ftpserverd runs a multi-user FTP server with a JSON-backed user store.
package main

import (
	"fmt"
	"flag"
	"os"
	"os/signal"
	"syscall"

	gklog "github.com/go-kit/kit/log"
	gklevel "github.com/go-kit/kit/log/level"
	"github.com/spf13/afero"

	ftpserver "github.com/fclairamb/gosimplftpd"
	"github.com/fclairamb/gosimplftpd/drivers/jsonusers"
	"github.com/fclairamb/gosimplftpd/log"
	"github.com/fclairamb/gosimplftpd/log/gokit"
)

var server *ftpserver.FtpServer

func main() {
	var port, capacity int

	var debug bool

	var logFile string

	flag.IntVar(&port, "port", 8080, "Port to listen on")
	flag.IntVar(&capacity, "capacity", 500, "Max number of simultaneous control connections")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&logFile, "log_file", "", "Write logs to this file instead of stdout")
	flag.Parse()

	logger, closeLog := buildLogger(debug, logFile)
	defer closeLog()

	users, err := jsonusers.Load(afero.NewOsFs(), "./etc/users.json", "./data/users")
	if err != nil {
		logger.Error("could not load user store", "err", err)
		os.Exit(1)
	}

	server = ftpserver.NewFtpServer(ftpserver.Settings{
		ListenAddr: fmt.Sprintf(":%d", port),
		Capacity:   capacity,
	}, users)
	server.Logger = logger

	done := make(chan struct{})
	go signalHandler(done)

	if err := server.ListenAndServe(); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func buildLogger(debug bool, logFile string) (log.Logger, func()) {
	out := os.Stdout

	closer := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = f
			closer = func() { _ = f.Close() }
		}
	}

	var base gklog.Logger = gklog.NewLogfmtLogger(gklog.NewSyncWriter(out))
	if !debug {
		base = gklevel.NewFilter(base, gklevel.AllowInfo())
	}

	return gokit.NewGKLogger(gklog.With(base, "ts", gklog.DefaultTimestampUTC)), closer
}

func signalHandler(done chan struct{}) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(ch)

	select {
	case <-ch:
		_ = server.Stop()
	case <-done:
	}
}
