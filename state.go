package netconify

// TerminalState is the login state machine's current position. INIT is the
// starting state; DONE and BadPasswd (surfaced as a fatal error) are the
// only terminal states.
type TerminalState int

const (
	StateInit TerminalState = iota
	StateLoginSent
	StatePasswordSent
	StateDone
	StateBadPassword
	StateNCHung
)

func (s TerminalState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLoginSent:
		return "login-sent"
	case StatePasswordSent:
		return "password-sent"
	case StateDone:
		return "done"
	case StateBadPassword:
		return "bad-password"
	case StateNCHung:
		return "nc-hung"
	default:
		return "unknown"
	}
}

// Credentials identifies who logs in and how many times the login state
// machine may loop before giving up. User defaults to "root" and Password
// defaults to empty -- the factory state of a NOOB Junos device.
type Credentials struct {
	User     string
	Password string

	// Attempts bounds the login state machine loop. Zero means use
	// LoginAttemptCap.
	Attempts int
}

// LoginAttemptCap is the maximum number of login state-machine iterations
// before giving up with LoginTimeoutError (spec.md §4.2).
const LoginAttemptCap = 10

func (c Credentials) user() string {
	if c.User == "" {
		return "root"
	}
	return c.User
}

func (c Credentials) attempts() int {
	if c.Attempts <= 0 {
		return LoginAttemptCap
	}
	return c.Attempts
}
