// Package transport defines the byte-oriented pipe used to drive an unknown
// console to a known state, and a queue-based mock used by this module's
// test suites.
package transport

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrPortInUse is returned by Open when the underlying terminal server
// reports the console port is already occupied by another session. This is
// treated as fatal, never retried.
var ErrPortInUse = errors.New("transport: port already in use")

// ErrTimeout is returned by ReadLine when no line arrives before the poll
// timeout elapses. It is not fatal; callers poll again.
var ErrTimeout = errors.New("transport: read timeout")

// Transport is a byte-oriented, line-readable, full-duplex pipe to a
// device's console. Three concrete variants exist (serial, telnet, ssh);
// none require anything beyond this capability set, so no inheritance
// hierarchy is needed (spec design note on "duck-typed Transport
// polymorphism").
type Transport interface {
	// Open establishes the underlying connection, retrying with backoff as
	// appropriate for the concrete transport. Every successful Open must be
	// paired with exactly one Close.
	Open() error

	// Close performs a best-effort flush and releases the connection. Safe
	// to call more than once.
	Close() error

	// Write sends content followed by a newline. Implementations that need
	// to pace output at low baud rates (telnet emulating a slow serial
	// link) do so here.
	Write(content string) error

	// RawWrite sends content exactly as given, with no trailing newline.
	// Still subject to baud pacing where applicable.
	RawWrite(content string) error

	// ReadLine reads one newline-terminated line, or returns ("", ErrTimeout)
	// if the poll interval elapses without one arriving.
	ReadLine() (string, error)

	// Expect reads until the accumulated buffer matches one of the named
	// groups in pattern, or overallTimeout elapses. It returns the buffer
	// read so far and the matched group name, or ("", "") on timeout.
	Expect(pattern NamedPattern, overallTimeout time.Duration) (string, string)
}

// NamedPattern is satisfied by the compiled recognizer regex used by the
// Terminal state machine; it is defined here (rather than imported from the
// terminal package) so Transport has no dependency on the terminal's prompt
// grammar, only on the capability to test a buffer against it.
type NamedPattern interface {
	// FindNamedMatch returns the name of the first named group that
	// matches the end of buf, or "" if none does.
	FindNamedMatch(buf string) string
}

// TestTransport is an in-memory mock of Transport used by this module's own
// test suites: scripted server output is queued with QueueLine, and
// everything written by the code under test is captured for inspection.
// Modeled on nemith-netconf's transport.TestTransport, generalized from
// whole-message framing to line-oriented console framing.
type TestTransport struct {
	mu       sync.Mutex
	lines    []string // queued lines the "console" will emit, in order
	writes   []string // captured Write calls
	raw      []string // captured RawWrite calls
	opened   bool
	closed   bool
	openErr  error
	pollSlot time.Duration
}

// NewTestTransport returns a ready-to-use TestTransport.
func NewTestTransport() *TestTransport {
	return &TestTransport{pollSlot: time.Millisecond}
}

// QueueLine appends a line the mock console will emit on a subsequent
// ReadLine call (split on "\n"; a trailing empty segment is dropped).
func (t *TestTransport) QueueLine(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	parts := strings.Split(s, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	t.lines = append(t.lines, parts...)
}

// QueueOpenError makes the next Open call fail with err.
func (t *TestTransport) QueueOpenError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

// Writes returns everything written with Write, in order.
func (t *TestTransport) Writes() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.writes...)
}

// RawWrites returns everything written with RawWrite, in order.
func (t *TestTransport) RawWrites() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.raw...)
}

// Opened reports whether Open was ever called successfully.
func (t *TestTransport) Opened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

// Closed reports whether Close has been called.
func (t *TestTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *TestTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return t.openErr
	}
	t.opened = true
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *TestTransport) Write(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = append(t.writes, content)
	return nil
}

func (t *TestTransport) RawWrite(content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.raw = append(t.raw, content)
	return nil
}

func (t *TestTransport) ReadLine() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == 0 {
		return "", ErrTimeout
	}
	line := t.lines[0]
	t.lines = t.lines[1:]
	return line, nil
}

// Expect accumulates queued lines until pattern matches, the queue runs dry,
// or overallTimeout elapses. TestTransport's queue is pre-seeded by the test
// itself with no concurrent producer, so an empty queue can never fill later;
// Expect returns ("", "") the moment it does, rather than sleeping out the
// full overallTimeout, which keeps LoginTimeoutError-style tests fast.
func (t *TestTransport) Expect(pattern NamedPattern, overallTimeout time.Duration) (string, string) {
	deadline := time.Now().Add(overallTimeout)
	var rxb bytes.Buffer
	for time.Now().Before(deadline) {
		line, err := t.ReadLine()
		if err != nil {
			if t.queueEmpty() {
				return "", ""
			}
			time.Sleep(t.pollSlot)
			continue
		}
		rxb.WriteString(line)
		rxb.WriteByte('\n')
		if name := pattern.FindNamedMatch(rxb.String()); name != "" {
			return rxb.String(), name
		}
	}
	return "", ""
}

func (t *TestTransport) queueEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.lines) == 0
}
