// Package jsonusers implements the JSON-backed user store: a single file
// mapping username to {password, chroot, uid}, loaded at startup and
// rewritten, pretty-printed, whenever a new user is created.
//
// Grounded on original_source/ftp_server/src/ftp/user_manage.rs's
// SystemUsers: unknown usernames are created on first PASS (open
// enrollment) rather than rejected.
package jsonusers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/fclairamb/gosimplftpd"
)

type record struct {
	Password string `json:"password"`
	Chroot   string `json:"chroot"`
	UID      int    `json:"uid"`
}

// Store is a UserStore backed by a single pretty-printed JSON file.
type Store struct {
	fs       afero.Fs
	path     string
	rootBase string

	mu    sync.RWMutex
	users map[string]record

	nextUID int
}

// Load reads path (creating an empty store if it does not exist yet).
// rootBase is the directory new users' chroots are created under when
// no chroot is explicitly configured.
func Load(fs afero.Fs, path, rootBase string) (*Store, error) {
	s := &Store{fs: fs, path: path, rootBase: rootBase, users: map[string]record{}, nextUID: 1000}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, ftpserver.NewDriverError("creating user store directory", err)
			}

			return s, nil
		}

		return nil, ftpserver.NewDriverError("reading user store", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.users); err != nil {
			return nil, ftpserver.NewDriverError("parsing user store", err)
		}
	}

	for _, u := range s.users {
		if u.UID >= s.nextUID {
			s.nextUID = u.UID + 1
		}
	}

	return s, nil
}

// Authenticate implements ftpserver.UserStore.
func (s *Store) Authenticate(username, password string) (ftpserver.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[username]
	if !ok {
		rec = record{
			Password: password,
			Chroot:   filepath.Join(s.rootBase, username),
			UID:      s.nextUID,
		}
		s.nextUID++
		s.users[username] = rec

		if err := s.fs.MkdirAll(rec.Chroot, 0o755); err != nil {
			return ftpserver.User{}, ftpserver.NewDriverError("creating chroot for new user", err)
		}

		if err := s.persistLocked(); err != nil {
			return ftpserver.User{}, err
		}
	}

	if rec.Password != password {
		return ftpserver.User{}, &ftpserver.AuthError{Msg: "Invalid password"}
	}

	return ftpserver.User{Username: username, Password: rec.Password, Chroot: rec.Chroot, UID: rec.UID}, nil
}

// Remove deletes a user from the store (used by tests and admin tooling;
// no FTP command exercises it).
func (s *Store) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, username)

	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return ftpserver.NewDriverError("encoding user store", err)
	}

	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return ftpserver.NewDriverError("writing user store", err)
	}

	return nil
}

var _ fmt.Stringer = (*Store)(nil)

// String implements fmt.Stringer for debug logging.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fmt.Sprintf("jsonusers.Store{path=%s, users=%d}", s.path, len(s.users))
}
