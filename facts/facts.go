// Package facts gathers the small catalog of pre-baked RPC calls that
// populate a key/value fact table and retain the chassis-inventory reply
// verbatim, grounded on original_source/lib/netconify/facts.py.
package facts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/console-bootstrap/netconify"
)

// InterfaceFacts is the sub-mapping recorded per gathered interface
// (spec.md §3 FactTable).
type InterfaceFacts struct {
	MacAddr string
	IfIndex string
	Oper    string
	Admin   string
	Speed   string
	Duplex  string
}

// Table is the FactTable: required scalar facts plus zero or more
// per-interface entries, plus the verbatim chassis-inventory tree.
type Table struct {
	Model        string
	SerialNumber string
	Version      string
	Hostname     string

	Interfaces map[string]InterfaceFacts

	// Inventory is the full get-chassis-inventory reply, retained verbatim
	// for persistence (spec.md §3 Inventory, §6 "<name>-inventory.xml").
	// Excluded from FactTable's own JSON serialization: it is persisted to
	// its own "<name>-inventory.xml" file, not duplicated into facts.json.
	Inventory *netconify.XMLNode `json:"-"`
}

var versionBracketRe = regexp.MustCompile(`\[(.*)\]`)

// rpc is the subset of XmlRpc that Facts needs, so tests can supply a stub
// without wiring a whole Transport.
type rpc interface {
	RPC(cmd string) (*netconify.XMLNode, error)
}

// Gather runs the full fact-collection sequence: version/hostname, then
// chassis inventory. Each step is isolated so a failure in one still
// leaves whatever the others collected (spec.md §4.4: "each isolated so a
// failure collects what it can").
func Gather(nc rpc) (*Table, error) {
	t := &Table{Interfaces: map[string]InterfaceFacts{}}

	var errs []string
	if err := t.version(nc); err != nil {
		errs = append(errs, err.Error())
	}
	if err := t.chassis(nc); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return t, fmt.Errorf("facts: %s", strings.Join(errs, "; "))
	}
	return t, nil
}

// version gathers the version and hostname facts from
// get-software-information.
func (t *Table) version(nc rpc) error {
	reply, err := nc.RPC("get-software-information")
	if err != nil {
		return &netconify.FactMissingError{Fact: "version", Err: err}
	}

	t.Hostname = reply.Find("host-name").TextOf()

	pkg := reply.FindChildWhere("package-information", "name", "junos")
	if pkg == nil {
		return &netconify.FactMissingError{Fact: "version", Err: fmt.Errorf("no junos package-information in reply")}
	}
	comment := pkg.Find("comment").TextOf()
	m := versionBracketRe.FindStringSubmatch(comment)
	if m == nil {
		return &netconify.FactMissingError{Fact: "version", Err: fmt.Errorf("no bracketed version in comment %q", comment)}
	}
	t.Version = m[1]
	return nil
}

// chassis gathers model, serial number, and the full inventory tree from
// get-chassis-inventory.
func (t *Table) chassis(nc rpc) error {
	reply, err := nc.RPC("get-chassis-inventory")
	if err != nil {
		return &netconify.FactMissingError{Fact: "model", Err: err}
	}
	t.Inventory = reply

	chassis := reply.Find("chassis")
	if chassis == nil {
		return &netconify.FactMissingError{Fact: "model", Err: fmt.Errorf("no chassis element in inventory reply")}
	}

	t.Model = strings.ToUpper(chassis.Find("description").TextOf())

	if sn := chassis.Find("serial-number"); sn != nil {
		t.SerialNumber = sn.TextOf()
	} else if backplane := chassis.FindChildWhere("chassis-module", "name", "Backplane"); backplane != nil {
		t.SerialNumber = backplane.Find("serial-number").TextOf()
	} else {
		return &netconify.FactMissingError{Fact: "serialnumber", Err: fmt.Errorf("neither chassis nor Backplane serial-number present")}
	}
	return nil
}

// Interface gathers the fact sub-mapping for one named interface via
// get-interface-information with the media flag.
func Interface(nc rpc, ifname string) (InterfaceFacts, error) {
	cmd := fmt.Sprintf(`<get-interface-information><media/><interface-name>%s</interface-name></get-interface-information>`, ifname)
	reply, err := nc.RPC(cmd)
	if err != nil {
		return InterfaceFacts{}, &netconify.FactMissingError{Fact: ifname, Err: err}
	}

	phys := reply
	if child := reply.Find("physical-interface"); child != nil {
		phys = child
	}

	return InterfaceFacts{
		MacAddr: phys.FindDescendant("current-physical-address").TextOf(),
		IfIndex: phys.Find("snmp-index").TextOf(),
		Oper:    phys.Find("oper-status").TextOf(),
		Admin:   phys.Find("admin-status").TextOf(),
		Speed:   phys.Find("speed").TextOf(),
		Duplex:  phys.Find("duplex").TextOf(),
	}, nil
}
