package netconify

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/console-bootstrap/netconify/transport"
)

// EOMSentinel is the end-of-message sentinel used to frame every XmlRpc
// reply: a line containing exactly this text marks the end of the current
// response (spec.md §4.3, §6 wire protocol). It is the ONLY reply framing
// marker; no partial reply is ever parsed as XML before it is seen.
const EOMSentinel = "]]>]]>"

// DefaultExpectTimeout bounds how long XmlRpc waits for a sentinel-framed
// reply before giving up.
const DefaultExpectTimeout = 10 * time.Second

const pollSlot = 20 * time.Millisecond

var (
	xmlnsAttrRe = regexp.MustCompile(`xmlns=[^>]+`)
	junosNSRe   = regexp.MustCompile(`junos:`)
)

// stripXmlns removes an `xmlns=...` attribute from a line. Downstream
// tag-name lookups are namespace-agnostic and must not be confused by a
// default namespace declaration on the envelope or its first child.
func stripXmlns(s string) string {
	return xmlnsAttrRe.ReplaceAllString(s, "")
}

// stripJunosNS removes the `junos:` namespace prefix from a line, so tags
// like `junos:comment` are looked up as plain `comment`.
func stripJunosNS(s string) string {
	return junosNSRe.ReplaceAllString(s, "")
}

// LoadAction selects the load-configuration merge strategy.
type LoadAction string

const (
	LoadOverride LoadAction = "override"
	LoadMerge    LoadAction = "merge"
	LoadReplace  LoadAction = "replace"
)

// LoadResult is the explicit sum type standing in for the original's
// ad hoc "True-or-XmlTree" return value (spec.md design notes): OK tells
// the caller whether to trust Reply as a config payload, or to inspect it
// for the failure reason.
type LoadResult struct {
	OK    bool
	Reply *XMLNode
}

// CommitResult is the commit/commit-check analogue of LoadResult.
type CommitResult struct {
	OK    bool
	Reply *XMLNode
}

// XmlRpc multiplexes framed request/reply XML-RPC calls onto a Transport
// byte stream already positioned at a Unix shell prompt. At most one
// request is ever outstanding (spec.md §5): this type has no internal
// concurrency.
type XmlRpc struct {
	tr      transport.Transport
	timeout time.Duration
	hello   *XMLNode
}

// NewXmlRpc returns an XmlRpc multiplexed on top of tr. Open must be called
// before any RPC is issued.
func NewXmlRpc(tr transport.Transport) *XmlRpc {
	return &XmlRpc{tr: tr, timeout: DefaultExpectTimeout}
}

// SetTimeout overrides DefaultExpectTimeout.
func (nc *XmlRpc) SetTimeout(d time.Duration) {
	if d > 0 {
		nc.timeout = d
	}
}

// Hello returns the hello greeting consumed by Open, or nil if Open has not
// been called yet.
func (nc *XmlRpc) Hello() *XMLNode { return nc.hello }

// Open writes the vendor's XML-mode entry command and consumes the initial
// hello greeting. atShell reflects where the Terminal login state machine
// landed: the entry command only works from the Unix shell, so when the
// console is sitting at the operator CLI prompt instead, Open first leaves
// CLI for shell.
func (nc *XmlRpc) Open(atShell bool) error {
	if !atShell {
		if err := nc.tr.Write("start shell"); err != nil {
			return fmt.Errorf("xmlrpc: leaving cli for shell: %w", err)
		}
	}

	if err := nc.tr.Write("xml-mode netconf need-trailer"); err != nil {
		return fmt.Errorf("xmlrpc: entering xml-mode: %w", err)
	}

	if !nc.awaitBanner() {
		return fmt.Errorf("xmlrpc: timed out waiting for xml-mode banner")
	}

	hello, err := nc.receive()
	if err != nil {
		return fmt.Errorf("xmlrpc: reading hello: %w", err)
	}
	nc.hello = hello
	return nil
}

// awaitBanner swallows bytes until the banner comment marker appears,
// before the stream can be treated as xml-mode (spec.md §6).
func (nc *XmlRpc) awaitBanner() bool {
	deadline := time.Now().Add(nc.timeout)
	for time.Now().Before(deadline) {
		line, err := nc.tr.ReadLine()
		if err != nil {
			time.Sleep(pollSlot)
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "<!--") {
			return true
		}
	}
	return false
}

// receive reads sentinel-framed lines, strips namespace noise, and parses
// the accumulated buffer as a single XML tree.
func (nc *XmlRpc) receive() (*XMLNode, error) {
	var lines []string
	deadline := time.Now().Add(nc.timeout)

	for time.Now().Before(deadline) {
		line, err := nc.tr.ReadLine()
		if err != nil {
			time.Sleep(pollSlot)
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue // if we got nothing, go again
		}
		if line == EOMSentinel {
			return parseFramedReply(lines)
		}
		lines = append(lines, line)
	}
	return nil, fmt.Errorf("xmlrpc: timed out waiting for %q", EOMSentinel)
}

func parseFramedReply(lines []string) (*XMLNode, error) {
	if len(lines) < 2 {
		return nil, errors.New("xmlrpc: reply too short to contain an envelope")
	}

	// nuke the default namespace off the envelope and its first child
	lines[0] = stripXmlns(lines[0])
	lines[1] = stripXmlns(lines[1])

	for i, l := range lines {
		lines[i] = stripJunosNS(l)
	}

	node, err := parseXMLNode(strings.NewReader(strings.Join(lines, "")))
	if err != nil {
		return nil, fmt.Errorf("xmlrpc: parsing reply: %w", err)
	}
	return node, nil
}

// RPC issues cmd (wrapped as `<cmd/>` if it isn't already a full XML
// element) and returns the first child of the enclosing <rpc-reply>. No
// error checking beyond transport/parse failures is performed here; RPCs
// with meaningful failure payloads (load, commit) interpret their own
// reply.
func (nc *XmlRpc) RPC(cmd string) (*XMLNode, error) {
	if !strings.HasPrefix(cmd, "<") {
		cmd = "<" + cmd + "/>"
	}

	if err := nc.tr.RawWrite("<rpc>"); err != nil {
		return nil, err
	}
	if err := nc.tr.RawWrite(cmd); err != nil {
		return nil, err
	}
	if err := nc.tr.RawWrite("</rpc>"); err != nil {
		return nil, err
	}

	reply, err := nc.receive()
	if err != nil {
		return nil, err
	}
	if len(reply.Children) == 0 {
		return nil, errors.New("xmlrpc: rpc-reply had no child element")
	}
	return reply.Children[0], nil
}

func escapeXMLText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// Load performs a load-configuration operation. Success is indicated by
// the presence of any <ok> descendant in the reply.
func (nc *XmlRpc) Load(content string, action LoadAction) (*LoadResult, error) {
	if action == "" {
		action = LoadOverride
	}

	cmd := fmt.Sprintf(
		`<load-configuration format="text" action="%s"><configuration-text>%s</configuration-text></load-configuration>`,
		action, escapeXMLText(content),
	)

	reply, err := nc.RPC(cmd)
	if err != nil {
		return nil, err
	}
	return &LoadResult{OK: reply.FindDescendant("ok") != nil, Reply: reply}, nil
}

// CommitCheck performs a commit-configuration check (validate without
// applying). Success iff the reply's root tag is <ok>.
func (nc *XmlRpc) CommitCheck() (*CommitResult, error) {
	reply, err := nc.RPC("<commit-configuration><check/></commit-configuration>")
	if err != nil {
		return nil, err
	}
	return &CommitResult{OK: reply.Tag() == "ok", Reply: reply}, nil
}

// Commit performs a commit-configuration operation. Success iff the
// reply's root tag is <ok>.
func (nc *XmlRpc) Commit() (*CommitResult, error) {
	reply, err := nc.RPC("<commit-configuration/>")
	if err != nil {
		return nil, err
	}
	return &CommitResult{OK: reply.Tag() == "ok", Reply: reply}, nil
}

// Rollback discards the most recent uncommitted load.
func (nc *XmlRpc) Rollback() (*XMLNode, error) {
	return nc.RPC(`<load-configuration compare="rollback" rollback="0"/>`)
}

// Close issues the close-session RPC. When force is true the caller does
// not wait for a reply -- used from the hung-NETCONF recovery path, where
// no orderly reply is guaranteed.
func (nc *XmlRpc) Close(force bool) error {
	if err := nc.tr.RawWrite("<rpc><close-session/></rpc>"); err != nil {
		return err
	}
	if force {
		return nil
	}
	_, err := nc.receive()
	return err
}
