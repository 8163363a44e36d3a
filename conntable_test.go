package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnTableInsertGetRemove(t *testing.T) {
	table := newConnTable()

	sess := &Session{}
	handle := table.Insert(sess)

	require.NotZero(t, handle)
	assert.Same(t, sess, table.Get(handle))
	assert.Equal(t, 1, table.Len())

	table.Remove(handle)
	assert.Nil(t, table.Get(handle))
	assert.Equal(t, 0, table.Len())
}

func TestConnTableHandlesAreMonotonicAndUnique(t *testing.T) {
	table := newConnTable()

	first := table.Insert(&Session{})
	second := table.Insert(&Session{})

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, table.Len())
}

func TestConnTableSessionAndDataConnTypeAssert(t *testing.T) {
	table := newConnTable()

	sess := &Session{}
	sessHandle := table.Insert(sess)

	dc := &DataConnection{}
	dcHandle := table.Insert(dc)

	assert.Same(t, sess, table.Session(sessHandle))
	assert.Nil(t, table.Session(dcHandle))

	assert.Same(t, dc, table.DataConn(dcHandle))
	assert.Nil(t, table.DataConn(sessHandle))
}
