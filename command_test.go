package ftpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandBasic(t *testing.T) {
	cmd, err := ParseCommand("USER bob\r\n")
	require.NoError(t, err)
	assert.Equal(t, "USER", cmd.Verb)
	assert.Equal(t, "bob", cmd.Arg)
}

func TestParseCommandNoArg(t *testing.T) {
	cmd, err := ParseCommand("PWD\r\n")
	require.NoError(t, err)
	assert.Equal(t, "PWD", cmd.Verb)
	assert.Empty(t, cmd.Arg)
}

func TestParseCommandEmptyLine(t *testing.T) {
	_, err := ParseCommand("\r\n")
	require.Error(t, err)
}

func TestParseCommandUnknownVerb(t *testing.T) {
	_, err := ParseCommand("FROB x\r\n")
	require.Error(t, err)
}

func TestParseCommandUserRequiresArg(t *testing.T) {
	_, err := ParseCommand("USER\r\n")
	require.Error(t, err)
}

func TestParseCommandLowercaseVerb(t *testing.T) {
	cmd, err := ParseCommand("user bob\r\n")
	require.NoError(t, err)
	assert.Equal(t, "USER", cmd.Verb)
}

func TestParseCommandPORTShape(t *testing.T) {
	cmd, err := ParseCommand("PORT 127,0,0,1,8,187\r\n")
	require.NoError(t, err)
	assert.Equal(t, "127,0,0,1,8,187", cmd.Arg)
}

func TestParseCommandPORTBoundaryValues(t *testing.T) {
	_, err := ParseCommand("PORT 0,0,0,0,0,0\r\n")
	require.NoError(t, err)

	_, err = ParseCommand("PORT 255,255,255,255,255,255\r\n")
	require.NoError(t, err)
}

func TestParseCommandPORTBadShape(t *testing.T) {
	cases := []string{
		"PORT 1,2,3\r\n",
		"PORT 1,2,3,4,5,\r\n",
		"PORT a,b,c,d,e,f\r\n",
	}

	for _, line := range cases {
		_, err := ParseCommand(line)
		require.Error(t, err, line)
	}
}

func TestRequiresAuth(t *testing.T) {
	assert.False(t, Command{Verb: "USER"}.RequiresAuth())
	assert.False(t, Command{Verb: "PASS"}.RequiresAuth())
	assert.False(t, Command{Verb: "QUIT"}.RequiresAuth())
	assert.True(t, Command{Verb: "RETR"}.RequiresAuth())
	assert.True(t, Command{Verb: "LIST"}.RequiresAuth())
}

func TestCommandKnown(t *testing.T) {
	assert.True(t, Command{Verb: "PASV"}.Known())
	assert.False(t, Command{Verb: "FEAT"}.Known())
}
