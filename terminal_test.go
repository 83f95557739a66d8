package netconify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-bootstrap/netconify/transport"
)

func newTestTerminal(tr *transport.TestTransport, creds Credentials) *Terminal {
	term := NewTerminal(tr, creds)
	term.SetExpectTimeout(50 * time.Millisecond)
	return term
}

// Scenario 1: clean boot, shell prompt already present (spec.md §8 #1).
func TestLogin_ShellAlreadyPresent(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("\r\nroot%")

	term := newTestTerminal(tr, Credentials{})
	err := term.loginStateMachine()

	require.NoError(t, err)
	assert.Equal(t, StateDone, term.State())
	assert.True(t, term.AtShell())
}

// Scenario 2: standard login (spec.md §8 #2). Every server line the console
// will ever emit is queued up front since each Expect call drains the queue
// independently of what the prior iteration wrote.
func TestLogin_StandardLogin(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("Amnesiac (ttyd0)\n\nlogin: ")
	tr.QueueLine("Password:")
	tr.QueueLine("%")

	term := newTestTerminal(tr, Credentials{User: "root", Password: ""})
	err := term.loginStateMachine()

	require.NoError(t, err)
	assert.Equal(t, StateDone, term.State())
	assert.True(t, term.AtShell())
	require.Len(t, tr.Writes(), 2)
	assert.Equal(t, "root", tr.Writes()[0])
	assert.Equal(t, "", tr.Writes()[1])
}

// Scenario 3: stuck XML mode recovery (spec.md §8 #3).
func TestLogin_StuckXmlModeRecovery(t *testing.T) {
	tr := transport.NewTestTransport()
	// content that matches none of the named prompt groups, simulating a
	// leftover XML-mode reply fragment sitting on the wire
	tr.QueueLine("<rpc-reply><data>stuck mid reply")
	tr.QueueLine("%")

	term := newTestTerminal(tr, Credentials{})
	err := term.loginStateMachine()

	require.NoError(t, err)
	assert.Equal(t, StateDone, term.State())
	assert.True(t, term.AtShell())
	require.Len(t, tr.RawWrites(), 1)
	assert.Equal(t, "<rpc><close-session/></rpc>", tr.RawWrites()[0])
}

// Scenario 4: bad password is fatal (spec.md §8 #4).
func TestLogin_BadPasswordFatal(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("login: ")
	tr.QueueLine("Password: ")
	tr.QueueLine("Login incorrect\nlogin: ")

	term := newTestTerminal(tr, Credentials{User: "root", Password: "wrong"})
	err := term.loginStateMachine()

	require.Error(t, err)
	var authErr *AuthFailedError
	assert.ErrorAs(t, err, &authErr)
	assert.Equal(t, StateBadPassword, term.State())
}

func TestLoginTimeout(t *testing.T) {
	tr := transport.NewTestTransport()
	// no lines ever queued: every Expect times out immediately once the
	// queue is drained.
	term := newTestTerminal(tr, Credentials{Attempts: 3})

	err := term.loginStateMachine()
	require.Error(t, err)
	var timeoutErr *LoginTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 3, timeoutErr.Attempts)
}

// AuthFailedError's User field propagates the configured login user.
func TestLogin_BadPassword_ReportsUser(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("login: ")
	tr.QueueLine("Password: ")
	tr.QueueLine("Login incorrect\nlogin: ")

	term := newTestTerminal(tr, Credentials{User: "admin", Password: "wrong"})
	err := term.loginStateMachine()

	var authErr *AuthFailedError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "admin", authErr.User)
}

func TestLogin_OpenFailureIsWrapped(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueOpenError(errors.New("device or resource busy"))

	term := newTestTerminal(tr, Credentials{})
	err := term.Login(nil)

	var openErr *OpenFailedError
	require.ErrorAs(t, err, &openErr)
	assert.Contains(t, openErr.Reason, "device or resource busy")
}
