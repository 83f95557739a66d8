package actions

import (
	"fmt"

	"github.com/console-bootstrap/netconify"
)

// ClusterSpec identifies an SRX chassis-cluster membership (spec.md §6
// "srx_cluster = <id>,<node>").
type ClusterSpec struct {
	ClusterID int
	Node      int
}

// ClusterResult mirrors spec.md's Result shape. Every cluster action
// reboots the device, so SkipLogout is always true on success: the
// Driver must not call Terminal.Logout afterward (spec.md §8 P6).
type ClusterResult struct {
	Changed    bool
	Failed     bool
	ErrMsg     string
	SkipLogout bool
}

// EnableCluster issues the enable-cluster RPC for spec. The device reboots
// to apply cluster membership, so logout must be skipped.
func EnableCluster(nc *netconify.XmlRpc, spec ClusterSpec, fn NotifyFunc) ClusterResult {
	notify(fn, "srx_cluster", fmt.Sprintf("enabling cluster %d node %d", spec.ClusterID, spec.Node))

	cmd := fmt.Sprintf(`<request-chassis-cluster-enable><cluster-id>%d</cluster-id><node>%d</node><reboot/></request-chassis-cluster-enable>`,
		spec.ClusterID, spec.Node)

	if _, err := nc.RPC(cmd); err != nil {
		return ClusterResult{Failed: true, ErrMsg: err.Error()}
	}
	return ClusterResult{Changed: true, SkipLogout: true}
}

// DisableCluster issues the disable-cluster RPC. Like enable, this reboots
// the device.
func DisableCluster(nc *netconify.XmlRpc, fn NotifyFunc) ClusterResult {
	notify(fn, "srx_cluster", "disabling cluster")

	if _, err := nc.RPC("<request-chassis-cluster-disable><reboot/></request-chassis-cluster-disable>"); err != nil {
		return ClusterResult{Failed: true, ErrMsg: err.Error()}
	}
	return ClusterResult{Changed: true, SkipLogout: true}
}
