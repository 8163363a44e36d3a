// Package ftpserver provides all the tools to build your own FTP server: The core library and the driver.
package ftpserver

import "sync"

// connTable is the handle-keyed registry of every live Session and
// DataConnection. It is the Go realization of the Rust original's
// FTPServer connection map: one coarse mutex, a monotonic handle
// counter, and a strict "lookup, clone, unlock, then operate" discipline
// everywhere it is used — the table lock is never held while a record's
// own lock is acquired.
type connTable struct {
	mu      sync.Mutex
	nextID  uint64
	records map[uint64]interface{}
}

func newConnTable() *connTable {
	return &connTable{records: map[uint64]interface{}{}}
}

// Insert allocates a new handle for rec and registers it.
func (t *connTable) Insert(rec interface{}) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	handle := t.nextID
	t.records[handle] = rec

	return handle
}

// Get returns the record for handle, or nil if it is gone.
func (t *connTable) Get(handle uint64) interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.records[handle]
}

// Remove deregisters handle.
func (t *connTable) Remove(handle uint64) {
	t.mu.Lock()
	delete(t.records, handle)
	t.mu.Unlock()
}

// Len reports the number of live records, sessions and data connections
// alike.
func (t *connTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.records)
}

// Session looks up handle and type-asserts it as a *Session.
func (t *connTable) Session(handle uint64) *Session {
	if rec, ok := t.Get(handle).(*Session); ok {
		return rec
	}

	return nil
}

// DataConn looks up handle and type-asserts it as a *DataConnection.
func (t *connTable) DataConn(handle uint64) *DataConnection {
	if rec, ok := t.Get(handle).(*DataConnection); ok {
		return rec
	}

	return nil
}
