package facts

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/console-bootstrap/netconify"
	"github.com/console-bootstrap/netconify/transport"
)

func newFakeReplyTransport(xmlSrc string) *transport.TestTransport {
	tr := transport.NewTestTransport()
	tr.QueueLine(xmlSrc)
	tr.QueueLine(netconify.EOMSentinel)
	return tr
}

// stubRPC maps an RPC command to a canned (*netconify.XMLNode, error) reply,
// letting Gather/Interface be tested without a Transport or XmlRpc session.
type stubRPC struct {
	replies map[string]string
	errs    map[string]error
}

func (s *stubRPC) RPC(cmd string) (*netconify.XMLNode, error) {
	for prefix, err := range s.errs {
		if strings.HasPrefix(cmd, prefix) {
			return nil, err
		}
	}
	for prefix, xmlSrc := range s.replies {
		if strings.HasPrefix(cmd, prefix) {
			return parseXML(xmlSrc)
		}
	}
	return nil, errors.New("stubRPC: no reply configured for " + cmd)
}

func parseXML(src string) (*netconify.XMLNode, error) {
	// the root package's XML parser is unexported, so route parsing
	// through a real XmlRpc reply cycle via the TestTransport instead.
	tr := newFakeReplyTransport(src)
	nc := netconify.NewXmlRpc(tr)
	return nc.RPC("probe")
}

func TestGather_Success(t *testing.T) {
	stub := &stubRPC{replies: map[string]string{
		"get-software-information": softwareInfoXML,
		"get-chassis-inventory":    chassisInventoryXML,
	}}

	table, err := Gather(stub)
	require.NoError(t, err)

	assert.Equal(t, "noob-device", table.Hostname)
	assert.Equal(t, "15.1R1.1", table.Version)
	assert.Equal(t, "EX4300-48T", table.Model)
	assert.Equal(t, "AB1234567", table.SerialNumber)
	require.NotNil(t, table.Inventory)
}

func TestGather_PartialFailureIsIsolated(t *testing.T) {
	stub := &stubRPC{
		replies: map[string]string{"get-chassis-inventory": chassisInventoryXML},
		errs:    map[string]error{"get-software-information": errors.New("boom")},
	}

	table, err := Gather(stub)
	require.Error(t, err)
	assert.Equal(t, "EX4300-48T", table.Model, "chassis gathering still populated the table despite the version RPC failing")
	assert.Empty(t, table.Version)
}

func TestGather_BackplaneSerialFallback(t *testing.T) {
	stub := &stubRPC{replies: map[string]string{
		"get-software-information": softwareInfoXML,
		"get-chassis-inventory":    chassisInventoryNoChassisSerialXML,
	}}

	table, err := Gather(stub)
	require.NoError(t, err)
	assert.Equal(t, "BP9999999", table.SerialNumber)
}

func TestInterface(t *testing.T) {
	stub := &stubRPC{replies: map[string]string{
		"get-interface-information": interfaceInfoXML,
	}}

	iface, err := Interface(stub, "ge-0/0/0")
	require.NoError(t, err)
	assert.Equal(t, "00:11:22:33:44:55", iface.MacAddr)
	assert.Equal(t, "up", iface.Oper)
	assert.Equal(t, "up", iface.Admin)
}

const softwareInfoXML = `<rpc-reply>
<software-information>
<host-name>noob-device</host-name>
<package-information><name>junos</name><comment>JUNOS Software Release [15.1R1.1]</comment></package-information>
</software-information>
</rpc-reply>`

const chassisInventoryXML = `<rpc-reply>
<chassis-inventory>
<chassis><description>ex4300-48t</description><serial-number>AB1234567</serial-number></chassis>
</chassis-inventory>
</rpc-reply>`

const chassisInventoryNoChassisSerialXML = `<rpc-reply>
<chassis-inventory>
<chassis><description>ex4300-48t</description>
<chassis-module><name>Backplane</name><serial-number>BP9999999</serial-number></chassis-module>
</chassis></chassis-inventory>
</rpc-reply>`

const interfaceInfoXML = `<rpc-reply>
<physical-interface>
<current-physical-address>00:11:22:33:44:55</current-physical-address>
<oper-status>up</oper-status><admin-status>up</admin-status><speed>1000mbps</speed><duplex>full-duplex</duplex>
</physical-interface>
</rpc-reply>`
