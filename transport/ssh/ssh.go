// Package ssh implements the transport.Transport over an SSH session to a
// console server, kept+adapted from nemith-netconf's transport/ssh/ssh.go:
// the Dial/NewTransport/managedConn shape survives unchanged, but the
// session requests an interactive shell and pty instead of the "netconf"
// SSH subsystem, since a console-server SSH session is a raw TTY, not a
// NETCONF subsystem channel (spec.md §3 TransportConfig Ssh variant).
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/console-bootstrap/netconify/transport"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake together.
const DefaultDialTimeout = 10 * time.Second

// MaxDialAttempts and DialBackoff: unlike Telnet, a console-server SSH
// session is not expected to need connection retries in the common case
// (spec.md §4.1), so the default cap is 1; callers that want retry set it
// explicitly.
const (
	MaxDialAttempts = 1
	DialBackoff     = 2 * time.Second
)

// Config describes an SSH console server (spec.md §3 TransportConfig Ssh
// variant). Password auth only: a console server reached for NOOB
// bootstrap has no prior key exchange to rely on.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	ReadTimeout time.Duration
	Attempts    int
}

// Transport implements transport.Transport over an SSH interactive session.
type Transport struct {
	c     *ssh.Client
	sess  *ssh.Session
	stdin io.WriteCloser

	// managedConn is true when this Transport dialed (and therefore owns)
	// the underlying ssh.Client, and must close it on Close.
	managedConn bool

	readTimeout time.Duration
	buf         []byte
	pending     chan readResult
}

type readResult struct {
	b   []byte
	err error
}

// Dial connects to addr, authenticating with cfg, retrying up to
// cfg.Attempts times (default MaxDialAttempts) with DialBackoff between
// attempts, and requests an interactive shell.
func Dial(ctx context.Context, cfg Config) (*Transport, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         DefaultDialTimeout,
	}

	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = MaxDialAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := dialOnce(ctx, addr, clientCfg)
		if err == nil {
			readTimeout := cfg.ReadTimeout
			if readTimeout == 0 {
				readTimeout = 100 * time.Millisecond
			}
			return newTransport(client, true, readTimeout)
		}
		lastErr = err
		if attempt < attempts {
			time.Sleep(DialBackoff)
		}
	}
	return nil, fmt.Errorf("ssh: dialing %s: %w", addr, lastErr)
}

func dialOnce(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: config.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// NewTransport wraps an already-dialed client. Unlike Dial, the caller owns
// client's lifetime; Close will not close it.
func NewTransport(client *ssh.Client, readTimeout time.Duration) (*Transport, error) {
	return newTransport(client, false, readTimeout)
}

func newTransport(client *ssh.Client, managed bool, readTimeout time.Duration) (*Transport, error) {
	sess, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("ssh: creating session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 9600,
		ssh.TTY_OP_OSPEED: 9600,
	}
	if err := sess.RequestPty("vt100", 80, 24, modes); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ssh: requesting pty: %w", err)
	}

	w, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ssh: stdin pipe: %w", err)
	}
	r, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ssh: stdout pipe: %w", err)
	}

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("ssh: starting shell: %w", err)
	}

	t := &Transport{
		c:           client,
		sess:        sess,
		stdin:       w,
		managedConn: managed,
		readTimeout: readTimeout,
		pending:     make(chan readResult, 64),
	}
	go t.pump(r)
	return t, nil
}

// pump copies bytes off r onto t.pending as they arrive, since ssh.Session's
// stdout pipe has no read-deadline support of its own; Expect/ReadLine poll
// this channel instead.
func (t *Transport) pump(r io.Reader) {
	chunk := make([]byte, 512)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			b := make([]byte, n)
			copy(b, chunk[:n])
			t.pending <- readResult{b: b}
		}
		if err != nil {
			t.pending <- readResult{err: err}
			return
		}
	}
}

func (t *Transport) Open() error { return nil }

func (t *Transport) Close() error {
	var retErr error
	if err := t.stdin.Close(); err != nil {
		retErr = errors.Join(retErr, fmt.Errorf("ssh: closing stdin: %w", err))
	}
	if err := t.sess.Close(); err != nil && !errors.Is(err, io.EOF) {
		retErr = errors.Join(retErr, fmt.Errorf("ssh: closing session: %w", err))
	}
	if t.managedConn {
		if err := t.c.Close(); err != nil {
			return errors.Join(retErr, fmt.Errorf("ssh: closing connection: %w", err))
		}
	}
	return retErr
}

func (t *Transport) Write(content string) error {
	return t.RawWrite(content + "\n")
}

func (t *Transport) RawWrite(content string) error {
	_, err := t.stdin.Write([]byte(content))
	return err
}

func (t *Transport) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(t.buf, '\n'); i >= 0 {
			line := string(t.buf[:i])
			t.buf = t.buf[i+1:]
			return line, nil
		}

		select {
		case res := <-t.pending:
			if res.err != nil {
				return "", fmt.Errorf("ssh: read: %w", res.err)
			}
			t.buf = append(t.buf, res.b...)
		case <-time.After(t.readTimeout):
			return "", transport.ErrTimeout
		}
	}
}

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
