package actions

import "github.com/console-bootstrap/netconify"

// PowerAction selects between the two single-RPC power operations spec.md
// §4.5 and §6 name together under "shutdown": poweroff and reboot.
type PowerAction string

const (
	PowerOff PowerAction = "poweroff"
	Reboot   PowerAction = "reboot"
)

// PowerResult mirrors spec.md's Result shape; every successful power action
// skips the normal logout (the remote side tears the session down on its
// own). A failed one leaves SkipLogout false.
type PowerResult struct {
	Changed    bool
	Failed     bool
	ErrMsg     string
	SkipLogout bool
}

// Zeroize issues the request-system-zeroize RPC, wiping configuration and
// rebooting to factory defaults.
func Zeroize(nc *netconify.XmlRpc, fn NotifyFunc) PowerResult {
	notify(fn, "zeroize", "zeroizing device")

	if _, err := nc.RPC("<request-system-zeroize/>"); err != nil {
		return PowerResult{Failed: true, ErrMsg: err.Error()}
	}
	return PowerResult{Changed: true, SkipLogout: true}
}

// Shutdown issues request-system-power-off or request-system-reboot
// depending on action.
func Shutdown(nc *netconify.XmlRpc, action PowerAction, fn NotifyFunc) PowerResult {
	notify(fn, "shutdown", string(action))

	cmd := "<request-system-power-off/>"
	if action == Reboot {
		cmd = "<request-system-reboot/>"
	}

	if _, err := nc.RPC(cmd); err != nil {
		return PowerResult{Failed: true, ErrMsg: err.Error()}
	}
	return PowerResult{Changed: true, SkipLogout: true}
}
