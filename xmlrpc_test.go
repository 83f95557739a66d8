package netconify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-bootstrap/netconify/transport"
)

func newTestXmlRpc(tr *transport.TestTransport) *XmlRpc {
	nc := NewXmlRpc(tr)
	nc.SetTimeout(50 * time.Millisecond)
	return nc
}

func TestXmlRpc_Open_FromShell(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("<!-- banner -->")
	tr.QueueLine(`<hello>`)
	tr.QueueLine(`<capabilities/></hello>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	err := nc.Open(true)

	require.NoError(t, err)
	require.Len(t, tr.Writes(), 1)
	assert.Equal(t, "xml-mode netconf need-trailer", tr.Writes()[0])
	require.NotNil(t, nc.Hello())
	assert.Equal(t, "hello", nc.Hello().Tag())
}

func TestXmlRpc_Open_FromCLI_StartsShellFirst(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine("<!-- banner -->")
	tr.QueueLine(`<hello>`)
	tr.QueueLine(`</hello>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	err := nc.Open(false)

	require.NoError(t, err)
	require.Len(t, tr.Writes(), 2)
	assert.Equal(t, "start shell", tr.Writes()[0])
	assert.Equal(t, "xml-mode netconf need-trailer", tr.Writes()[1])
}

func TestXmlRpc_Open_BannerTimeout(t *testing.T) {
	tr := transport.NewTestTransport()
	// no banner ever arrives
	nc := newTestXmlRpc(tr)

	err := nc.Open(true)
	require.Error(t, err)
}

func TestXmlRpc_RPC_StripsXmlnsAndJunosPrefix(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine(`<rpc-reply xmlns="http://junos">`)
	tr.QueueLine(`<software-information xmlns="http://junos/sw">`)
	tr.QueueLine(`<junos:comment>ok</junos:comment>`)
	tr.QueueLine(`</software-information>`)
	tr.QueueLine(`</rpc-reply>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	reply, err := nc.RPC("get-software-information")

	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, "software-information", reply.Tag())
	assert.Equal(t, "ok", reply.Find("comment").TextOf())

	require.Len(t, tr.RawWrites(), 3)
	assert.Equal(t, "<rpc>", tr.RawWrites()[0])
	assert.Equal(t, "<get-software-information/>", tr.RawWrites()[1])
	assert.Equal(t, "</rpc>", tr.RawWrites()[2])
}

func TestXmlRpc_Load_Success(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine(`<rpc-reply>`)
	tr.QueueLine(`<load-configuration-results><ok/></load-configuration-results>`)
	tr.QueueLine(`</rpc-reply>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	result, err := nc.Load("interfaces { ge-0/0/0 { unit 0; } }", LoadOverride)

	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestXmlRpc_Load_Failure(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine(`<rpc-reply>`)
	tr.QueueLine(`<load-configuration-results><rpc-error><error-message>bad syntax</error-message></rpc-error></load-configuration-results>`)
	tr.QueueLine(`</rpc-reply>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	result, err := nc.Load("garbage {", LoadOverride)

	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "bad syntax", result.Reply.FindDescendant("error-message").TextOf())
}

func TestXmlRpc_Commit_Success(t *testing.T) {
	tr := transport.NewTestTransport()
	tr.QueueLine(`<rpc-reply>`)
	tr.QueueLine(`<ok/>`)
	tr.QueueLine(`</rpc-reply>`)
	tr.QueueLine(EOMSentinel)

	nc := newTestXmlRpc(tr)
	result, err := nc.Commit()

	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestXmlRpc_Close_Force_DoesNotWaitForReply(t *testing.T) {
	tr := transport.NewTestTransport()
	// nothing queued: a non-force close would time out waiting for a reply

	nc := newTestXmlRpc(tr)
	err := nc.Close(true)

	require.NoError(t, err)
	require.Len(t, tr.RawWrites(), 1)
	assert.Equal(t, "<rpc><close-session/></rpc>", tr.RawWrites()[0])
}
