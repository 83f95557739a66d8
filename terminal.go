// Package netconify implements the console interaction engine that drives
// an unknown Junos console to a known, controllable state, and the
// embedded XML-RPC transport multiplexed on top of it.
package netconify

import (
	"fmt"
	"time"

	"github.com/console-bootstrap/netconify/transport"
)

// NotifyFunc receives (event, message) pairs emitted by Terminal and XmlRpc
// at every state transition and long-running step. A nil NotifyFunc
// suppresses notifications; the default-to-stdout behavior some callers
// want is a Driver concern, not a Terminal concern (spec.md §4.2).
type NotifyFunc func(event, message string)

// Terminal drives a Transport through the console login state machine to a
// known state, then owns the XmlRpc session layered on top of it for the
// remainder of the bootstrap. Terminal owns exactly one Transport and one
// XmlRpc; both lifetimes end at Logout or on a fatal error.
type Terminal struct {
	tr    transport.Transport
	nc    *XmlRpc
	creds Credentials

	state   TerminalState
	atShell bool

	notify        NotifyFunc
	expectTimeout time.Duration
}

// NewTerminal returns a Terminal driving tr with the given credentials.
func NewTerminal(tr transport.Transport, creds Credentials) *Terminal {
	return &Terminal{
		tr:            tr,
		nc:            NewXmlRpc(tr),
		creds:         creds,
		state:         StateInit,
		expectTimeout: DefaultExpectTimeout,
	}
}

// SetExpectTimeout overrides DefaultExpectTimeout for both the login state
// machine's prompt recognizer and the embedded XmlRpc session.
func (t *Terminal) SetExpectTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	t.expectTimeout = d
	t.nc.SetTimeout(d)
}

// XmlRpc returns the XML-RPC session layered on this Terminal's Transport.
// Only meaningful after Login has returned successfully.
func (t *Terminal) XmlRpc() *XmlRpc { return t.nc }

// State returns the login state machine's current state.
func (t *Terminal) State() TerminalState { return t.state }

// AtShell reports whether the login state machine landed at the Unix
// shell (true) or the operator CLI (false). Only meaningful once State is
// StateDone.
func (t *Terminal) AtShell() bool { return t.atShell }

func (t *Terminal) emit(event, message string) {
	if t.notify != nil {
		t.notify(event, message)
	}
}

// Login opens the transport, drives the login state machine to DONE, and
// starts the embedded XML-RPC session. notify, if non-nil, receives every
// state transition and long-running step.
func (t *Terminal) Login(notify NotifyFunc) error {
	t.notify = notify

	t.emit("login", "connecting to terminal port ...")
	if err := t.tr.Open(); err != nil {
		return &OpenFailedError{Reason: err.Error()}
	}

	t.emit("login", "logging in ...")
	t.state = StateInit
	if err := t.loginStateMachine(); err != nil {
		_ = t.tr.Close()
		return err
	}

	t.emit("login", "starting NETCONF")
	if err := t.nc.Open(t.atShell); err != nil {
		_ = t.tr.Close()
		return err
	}

	return nil
}

// loginStateMachine drives State from StateInit to StateDone, one prompt
// observation per iteration, capped at creds.attempts() iterations
// (spec.md §4.2, §9: a flat (state, prompt) -> action table rather than
// the original's recursive closure dispatch, so the cap is a simple loop
// counter.)
func (t *Terminal) loginStateMachine() error {
	attemptCap := t.creds.attempts()

	for attempt := 0; attempt < attemptCap; attempt++ {
		_, found := t.tr.Expect(PromptRecognizer{}, t.expectTimeout)
		class := PromptClass(found)

		if class == PromptBadPasswd {
			_ = t.tr.Write("")
			t.state = StateBadPassword
			return &AuthFailedError{User: t.creds.user()}
		}

		if err := t.applyTransition(class); err != nil {
			return err
		}

		if t.state == StateDone {
			return nil
		}
	}

	return &LoginTimeoutError{Attempts: attemptCap}
}

// applyTransition implements the transition table in spec.md §4.2 as a
// flat switch on (current state, observed prompt class).
func (t *Terminal) applyTransition(class PromptClass) error {
	switch {
	case class == PromptLogin && t.state == StateInit:
		t.state = StateLoginSent
		return t.tr.Write(t.creds.user())

	case class == PromptPassword && (t.state == StateInit || t.state == StateLoginSent):
		t.state = StatePasswordSent
		return t.tr.Write(t.creds.Password)

	case class == PromptShell && t.state == StateInit:
		t.emit("login", "shell login was open!")
		t.atShell = true
		t.state = StateDone
		return nil

	case class == PromptShell && (t.state == StateLoginSent || t.state == StatePasswordSent || t.state == StateNCHung):
		t.atShell = true
		t.state = StateDone
		return nil

	case class == PromptCLI && t.state == StateInit:
		// in a bad state, return now and retry
		return nil

	case class == PromptCLI && (t.state == StateLoginSent || t.state == StatePasswordSent || t.state == StateNCHung):
		t.atShell = false
		t.state = StateDone
		return nil

	case class == PromptUnknown && t.state == StateInit:
		// assume we're stuck in a prior XML-mode session: issue the
		// NETCONF close command and retry from StateNCHung.
		t.emit("login", (&XmlHungError{}).Error())
		t.state = StateNCHung
		return t.nc.Close(true)

	default:
		// unrecognized combination: loop and try again, consuming an
		// attempt against the cap.
		return nil
	}
}

// Logout sends the XML-RPC close-session (always; a failed close is
// reported through notify and logout carries on), logs out of the
// underlying console login, then closes the Transport. skipLogout is set
// by callers (Driver, after reboot/zeroize/shutdown/cluster actions) when
// the remote side is about to tear down the session on its own; in that
// case Logout must not be called at all (spec.md invariant, §4.5).
func (t *Terminal) Logout() error {
	t.emit("logout", "logging out ...")

	if err := t.nc.Close(false); err != nil {
		// best-effort: still try to resync and exit the shell
		t.emit("logout", fmt.Sprintf("netconf close failed: %v", err))
	}

	if err := t.tr.Write("\n"); err != nil {
		return t.tr.Close()
	}
	t.tr.Expect(PromptRecognizer{}, t.expectTimeout)

	if err := t.tr.Write("exit"); err != nil {
		return t.tr.Close()
	}

	return t.tr.Close()
}
