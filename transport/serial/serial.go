// Package serial implements the transport.Transport over a local serial port,
// grounded on original_source/lib/netconify/tty_serial.go and
// original_source/lib/jnpr/netconify/jnpr_serial.py ("self._ser =
// serial.Serial()"). go.bug.st/serial supplies the termios-level port
// handling; no example repo in the retrieval pack ships a serial driver, so
// the library is named here rather than grounded on a pack repo.
package serial

import (
	"bytes"
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/console-bootstrap/netconify/transport"
)

// DefaultReadPollTimeout is how long a single port Read call blocks before
// returning with whatever bytes (possibly none) have arrived, matching the
// original's 0.2s readline() polling timeout.
const DefaultReadPollTimeout = 200 * time.Millisecond

// Config describes a local serial console port (spec.md §3 TransportConfig
// Serial variant).
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Transport drives a local serial port as a Transport.
type Transport struct {
	cfg  Config
	port serial.Port
	buf  []byte
}

// New returns a Transport bound to cfg. The port is not opened until Open is
// called, matching the original's "setup the serial port, but defer open to
// login()".
func New(cfg Config) *Transport {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadPollTimeout
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) Open() error {
	mode := &serial.Mode{
		BaudRate: t.cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.cfg.Device, mode)
	if err != nil {
		return fmt.Errorf("serial: opening %s: %w", t.cfg.Device, err)
	}
	if err := port.SetReadTimeout(t.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("serial: setting read timeout: %w", err)
	}
	t.port = port
	return nil
}

func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	_ = t.RawWrite("exit\n")
	return t.port.Close()
}

func (t *Transport) Write(content string) error {
	return t.RawWrite(content + "\n")
}

// RawWrite sends content exactly as given. A serial console has no
// telnet-style pacing requirement of its own (spec.md §4.1: pacing is a
// Telnet concern, modeling a slow console server buffer), so bytes are
// written in one shot.
func (t *Transport) RawWrite(content string) error {
	_, err := t.port.Write([]byte(content))
	return err
}

// ReadLine reads one newline-terminated line out of the port's internal
// byte buffer, issuing further port reads (each bounded by ReadTimeout)
// until a newline appears or the port read itself returns nothing.
func (t *Transport) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
			line := string(t.buf[:i])
			t.buf = t.buf[i+1:]
			return line, nil
		}

		chunk := make([]byte, 256)
		n, err := t.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("serial: read: %w", err)
		}
		if n == 0 {
			return "", transport.ErrTimeout
		}
		t.buf = append(t.buf, chunk[:n]...)
	}
}

// Expect accumulates lines until pattern matches the buffer or
// overallTimeout elapses, polling ReadLine at the port's own read-timeout
// cadence (spec.md §5: deadline computed once, inner poll loop terminates
// on expiry).
func (t *Transport) Expect(pattern transport.NamedPattern, overallTimeout time.Duration) (string, string) {
	deadline := time.Now().Add(overallTimeout)
	var rxb bytes.Buffer
	for time.Now().Before(deadline) {
		line, err := t.ReadLine()
		if err != nil {
			// prompts carry no trailing newline: once a poll brings no
			// complete line, test the unterminated bytes buffered so far
			if len(t.buf) > 0 {
				partial := rxb.String() + string(t.buf)
				if name := pattern.FindNamedMatch(partial); name != "" {
					t.buf = nil
					return partial, name
				}
			}
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

var _ transport.Transport = (*Transport)(nil)
