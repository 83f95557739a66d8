package actions

import (
	"fmt"

	"github.com/console-bootstrap/netconify"
	"github.com/console-bootstrap/netconify/facts"
)

// DeviceMode is the QFX chassis personality: standalone switch, or a node
// in a virtual-chassis/fabric deployment.
type DeviceMode string

const (
	ModeSwitch DeviceMode = "SWITCH"
	ModeNode   DeviceMode = "NODE"
)

// DefaultQFXModels is the union of the model lists found across the two
// original source revisions (spec.md Open Question #2): neither revision
// is authoritative on its own, so the default is their union, overridable
// by the caller. SetQFXMode does not consult it: no model check is made.
var DefaultQFXModels = []string{"QFX3500", "QFX3500S", "QFX3600", "VIRTUAL CHASSIS"}

// QFXModeOptions parameterizes SetQFXMode.
type QFXModeOptions struct {
	RequestedMode DeviceMode
	Models        []string // not read by SetQFXMode; the device model is not checked against it
}

// QFXModeResult mirrors spec.md's Result shape, plus RebootTriggered since
// a successful mode switch away from the current mode reboots the device
// (and therefore skips the normal logout, spec.md §8 P6).
type QFXModeResult struct {
	Changed         bool
	Failed          bool
	ErrMsg          string
	RebootTriggered bool
	Facts           *facts.Table
}

// SetQFXMode reads the chassis's current and after-reboot device modes via
// show-chassis-device-mode, compares them against opts.RequestedMode, and
// issues a request-chassis-device-mode RPC (then a reboot) when they
// differ (spec.md §4.5 qfx_mode).
func SetQFXMode(nc *netconify.XmlRpc, opts QFXModeOptions, fn NotifyFunc) QFXModeResult {
	reply, err := nc.RPC("show-chassis-device-mode")
	if err != nil {
		return QFXModeResult{Failed: true, ErrMsg: err.Error()}
	}

	current := DeviceMode(reply.Find("current-device-mode").TextOf())
	afterReboot := DeviceMode(reply.Find("device-mode-after-reboot").TextOf())

	if afterReboot == opts.RequestedMode && current == opts.RequestedMode {
		notify(fn, "qfx", fmt.Sprintf("already in %s mode", opts.RequestedMode))
		return QFXModeResult{Changed: false}
	}

	if afterReboot != opts.RequestedMode {
		tag := "node-device"
		if opts.RequestedMode == ModeSwitch {
			tag = "standalone"
		}
		notify(fn, "qfx", fmt.Sprintf("requesting device-mode %s", opts.RequestedMode))
		cmd := fmt.Sprintf(`<request-chassis-device-mode><%s/></request-chassis-device-mode>`, tag)
		if _, err := nc.RPC(cmd); err != nil {
			return QFXModeResult{Failed: true, ErrMsg: err.Error()}
		}
	}

	result := QFXModeResult{Changed: true}

	// Switching from SWITCH to NODE changes chassis identity: the
	// chassis-level model/serial describe the virtual-chassis master, not
	// this member, so re-derive facts from the FPC-0 inventory entry
	// (spec.md §4.5).
	if current == ModeSwitch && opts.RequestedMode == ModeNode {
		if refreshed, err := refreshFactsFromFPC0(nc); err == nil {
			result.Facts = refreshed
		}
	}

	if current != opts.RequestedMode {
		notify(fn, "qfx", "rebooting to apply device-mode change")
		if _, err := nc.RPC("<request-reboot/>"); err != nil {
			return QFXModeResult{Failed: true, ErrMsg: err.Error()}
		}
		result.RebootTriggered = true
	}

	return result
}

// refreshFactsFromFPC0 re-derives model and serial number from the FPC-0
// chassis-module entry in a fresh inventory gather, for the case where the
// chassis-level identity no longer reflects this member's own identity.
func refreshFactsFromFPC0(nc *netconify.XmlRpc) (*facts.Table, error) {
	table, err := facts.Gather(nc)
	if err != nil && table == nil {
		return nil, err
	}

	fpc0 := table.Inventory.Find("chassis").FindChildWhere("chassis-module", "name", "FPC 0")
	if fpc0 == nil {
		return table, nil
	}
	if desc := fpc0.Find("description"); desc != nil {
		table.Model = desc.TextOf()
	}
	if sn := fpc0.Find("serial-number"); sn != nil {
		table.SerialNumber = sn.TextOf()
	}
	return table, nil
}
