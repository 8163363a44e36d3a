// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import (
	"github.com/spf13/afero"
)

// List renders dir's entries as bare names, one per line, CRLF-
// terminated — the wire format the end-to-end scenarios require
// byte-for-byte. Grounded on original_source's system::ls(), simplified
// from the teacher's long/MLSD listing formats, which are out of scope.
func List(fs afero.Fs, dir string) ([]byte, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var out []byte

	for _, e := range entries {
		out = append(out, e.Name()...)
		out = append(out, '\r', '\n')
	}

	return out, nil
}
