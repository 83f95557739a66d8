package netconify

import "fmt"

// OpenFailedError is returned when the physical transport (serial device,
// telnet terminal server, or SSH console server) cannot be opened.
type OpenFailedError struct {
	Reason string // "port not ready", "port already in use", "auth failed"
}

func (e *OpenFailedError) Error() string {
	return fmt.Sprintf("open failed: %s", e.Reason)
}

// AuthFailedError is returned when the console rejects the supplied
// credentials (observed via the "badpasswd" prompt).
type AuthFailedError struct {
	User string
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed for user %q", e.User)
}

// LoginTimeoutError is returned when the login state machine exceeds its
// attempt cap without reaching the DONE state.
type LoginTimeoutError struct {
	Attempts int
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("login did not complete after %d attempts", e.Attempts)
}

// XmlHungError indicates the console was found stuck inside a prior XML
// session. It is recovered locally (force-close + resync) and normally
// never escapes to a caller, but is exposed for observability.
type XmlHungError struct{}

func (e *XmlHungError) Error() string {
	return "console was stuck in a prior xml-mode session"
}

// LoadError is returned when a load-configuration RPC reply lacked an <ok>
// descendant.
type LoadError struct {
	Reply *XMLNode
}

func (e *LoadError) Error() string {
	return "failure to load configuration, aborting."
}

// CommitError is returned when a commit-configuration RPC reply was not
// the bare <ok/> response.
type CommitError struct {
	Reply *XMLNode
}

func (e *CommitError) Error() string {
	return "failure to commit configuration, aborting."
}

// MissingFileError is returned when a configuration file is not found
// before a session is opened. It is intentionally fail-fast: Transport.Open
// is never called.
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("no such configuration file: %s", e.Path)
}

// FactMissingError indicates an expected RPC reply was absent or shaped
// differently than expected. It is surfaced as a Result failure and never
// panics.
type FactMissingError struct {
	Fact string
	Err  error
}

func (e *FactMissingError) Error() string {
	return fmt.Sprintf("could not gather fact %q: %v", e.Fact, e.Err)
}

func (e *FactMissingError) Unwrap() error { return e.Err }
