// Package actions implements the high-level orchestrations driven by the
// Driver after login: push-configuration, QFX mode get/set, cluster
// enable/disable, zeroize, shutdown, reboot (spec.md §4.5).
package actions

import (
	"github.com/console-bootstrap/netconify"
)

// NotifyFunc mirrors netconify.NotifyFunc so actions can emit without
// importing the root package's Terminal type.
type NotifyFunc func(event, message string)

func notify(fn NotifyFunc, event, message string) {
	if fn != nil {
		fn(event, message)
	}
}

// PushConfigOptions parameterizes PushConfig.
type PushConfigOptions struct {
	Content string
	Action  netconify.LoadAction // zero value defaults to LoadOverride in XmlRpc.Load
}

// PushConfigResult reports what happened, mirroring spec.md's Result shape
// for this one action: Changed, Failed, ErrMsg.
type PushConfigResult struct {
	Changed bool
	Failed  bool
	ErrMsg  string
}

// PushConfig loads opts.Content and, if the load succeeds, commits it. A
// failed load or commit triggers exactly one rollback RPC before returning
// a failed result (spec.md §4.5, §8 P5).
func PushConfig(nc *netconify.XmlRpc, opts PushConfigOptions, fn NotifyFunc) PushConfigResult {
	loadResult, err := nc.Load(opts.Content, opts.Action)
	if err != nil || !loadResult.OK {
		notify(fn, "conf_ld_err", "failed to load configuration")
		_, _ = nc.Rollback()
		return PushConfigResult{Failed: true, ErrMsg: (&netconify.LoadError{}).Error()}
	}

	commitResult, err := nc.Commit()
	if err != nil || !commitResult.OK {
		notify(fn, "conf_save_err", "failed to commit configuration")
		_, _ = nc.Rollback()
		return PushConfigResult{Failed: true, ErrMsg: (&netconify.CommitError{}).Error()}
	}

	notify(fn, "change", "configuration committed")
	return PushConfigResult{Changed: true}
}
