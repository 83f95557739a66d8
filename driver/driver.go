// Package driver ties parsed intent (Options) to a sequence of Actions,
// owning the one Terminal for the run and handling the notification
// callback, grounded on original_source/lib/netconify/cmdo.py's
// _netconify/_dry_run orchestration (spec.md §2 Driver, §4.5, §6).
package driver

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/console-bootstrap/netconify"
	"github.com/console-bootstrap/netconify/actions"
	"github.com/console-bootstrap/netconify/facts"
	"github.com/console-bootstrap/netconify/transport"
)

// Options is the Invocation surface consumed from the CLI or any other
// caller (spec.md §6).
type Options struct {
	Name string

	ConfContent string // pre-rendered configuration text (junos_conf_file, already read+rendered)
	Merge       bool   // if set, load action is "replace" instead of "override" -- see SPEC_FULL.md section 4, item 1

	QFXMode   actions.DeviceMode // "" means no QFX mode change requested
	QFXModels []string

	Zeroize        bool
	ShutdownAction actions.PowerAction // "" means no shutdown/reboot requested

	ClusterEnable  *actions.ClusterSpec
	ClusterDisable bool

	GatherFactsOnly bool

	Creds         netconify.Credentials
	ExpectTimeout time.Duration // 0 means use netconify.DefaultExpectTimeout
	NotifyEvent   netconify.NotifyFunc
}

// Result is the structured outcome spec.md §3/§6 names: {changed, failed,
// errmsg, facts}.
type Result struct {
	Changed bool
	Failed  bool
	ErrMsg  string
	Facts   *facts.Table
}

// Run opens tr, logs in, performs whatever Options requests, and logs out
// -- unless an action signals SkipLogout (reboot/zeroize/shutdown/cluster),
// in which case logout is never invoked (spec.md §8 P6).
func Run(tr transport.Transport, opts Options) Result {
	term := netconify.NewTerminal(tr, opts.Creds)
	if opts.ExpectTimeout > 0 {
		term.SetExpectTimeout(opts.ExpectTimeout)
	}

	logf := logrus.WithField("component", "driver")

	if err := term.Login(opts.NotifyEvent); err != nil {
		logf.WithError(err).Error("login failed")
		return Result{Failed: true, ErrMsg: err.Error()}
	}

	skipLogout := false
	result := runActions(term.XmlRpc(), opts, &skipLogout)

	if !skipLogout {
		if err := term.Logout(); err != nil {
			logf.WithError(err).Warn("logout did not complete cleanly")
		}
	}

	return result
}

func runActions(nc *netconify.XmlRpc, opts Options, skipLogout *bool) Result {
	table, err := facts.Gather(nc)
	if err != nil {
		logrus.WithError(err).Warn("facts gather was incomplete")
		return Result{Failed: true, ErrMsg: err.Error(), Facts: table}
	}

	if opts.GatherFactsOnly {
		return Result{Changed: false, Facts: table}
	}

	if opts.ConfContent != "" {
		loadAction := netconify.LoadOverride
		if opts.Merge {
			// Observed (likely buggy) wiring preserved verbatim -- see
			// SPEC_FULL.md section 4, item 1: "merge" maps to "replace",
			// not "merge".
			loadAction = netconify.LoadReplace
		}
		pushResult := actions.PushConfig(nc, actions.PushConfigOptions{
			Content: opts.ConfContent,
			Action:  loadAction,
		}, opts.NotifyEvent)
		if pushResult.Failed {
			return Result{Failed: true, ErrMsg: pushResult.ErrMsg, Facts: table}
		}
	}

	if opts.QFXMode != "" {
		qfxResult := actions.SetQFXMode(nc, actions.QFXModeOptions{
			RequestedMode: opts.QFXMode,
			Models:        opts.QFXModels,
		}, opts.NotifyEvent)
		if qfxResult.Failed {
			return Result{Failed: true, ErrMsg: qfxResult.ErrMsg, Facts: table}
		}
		if qfxResult.Facts != nil {
			table = qfxResult.Facts
		}
		if qfxResult.RebootTriggered {
			*skipLogout = true
		}
		return Result{Changed: qfxResult.Changed, Facts: table}
	}

	if opts.ClusterEnable != nil {
		clusterResult := actions.EnableCluster(nc, *opts.ClusterEnable, opts.NotifyEvent)
		*skipLogout = clusterResult.SkipLogout
		if clusterResult.Failed {
			return Result{Failed: true, ErrMsg: clusterResult.ErrMsg, Facts: table}
		}
		return Result{Changed: clusterResult.Changed, Facts: table}
	}

	if opts.ClusterDisable {
		clusterResult := actions.DisableCluster(nc, opts.NotifyEvent)
		*skipLogout = clusterResult.SkipLogout
		if clusterResult.Failed {
			return Result{Failed: true, ErrMsg: clusterResult.ErrMsg, Facts: table}
		}
		return Result{Changed: clusterResult.Changed, Facts: table}
	}

	if opts.Zeroize {
		powerResult := actions.Zeroize(nc, opts.NotifyEvent)
		*skipLogout = powerResult.SkipLogout
		if powerResult.Failed {
			return Result{Failed: true, ErrMsg: powerResult.ErrMsg, Facts: table}
		}
		return Result{Changed: powerResult.Changed, Facts: table}
	}

	if opts.ShutdownAction != "" {
		powerResult := actions.Shutdown(nc, opts.ShutdownAction, opts.NotifyEvent)
		*skipLogout = powerResult.SkipLogout
		if powerResult.Failed {
			return Result{Failed: true, ErrMsg: powerResult.ErrMsg, Facts: table}
		}
		return Result{Changed: powerResult.Changed, Facts: table}
	}

	return Result{Changed: opts.ConfContent != "", Facts: table}
}

// ErrMsg formats a Result's error for stderr, matching spec.md §6's "ERROR:
// <msg>" CLI surface convention.
func ErrMsg(r Result) string {
	return fmt.Sprintf("ERROR: %s", r.ErrMsg)
}
