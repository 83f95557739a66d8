// Command netconify bootstraps a single NOOB device over its console,
// binding spec.md §6's Invocation surface to flags, grounded on
// original_source/lib/netconify/cmdo.py's argparse surface and on the
// teacher repo's (nemith-netconf's sibling example, estuary-flow's)
// jessevdk/go-flags CLI convention.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flags "github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/console-bootstrap/netconify"
	"github.com/console-bootstrap/netconify/actions"
	"github.com/console-bootstrap/netconify/driver"
	"github.com/console-bootstrap/netconify/inventory"
	"github.com/console-bootstrap/netconify/persist"
	"github.com/console-bootstrap/netconify/template"
	"github.com/console-bootstrap/netconify/transport"
	sertransport "github.com/console-bootstrap/netconify/transport/serial"
	sshtransport "github.com/console-bootstrap/netconify/transport/ssh"
	telnettransport "github.com/console-bootstrap/netconify/transport/telnet"
)

type options struct {
	Name string `positional-arg-name:"name" description:"symbolic identity of the NOOB device, used for save-file naming and inventory lookup"`

	Prefix    string `long:"prefix" default:"/etc/netconify" description:"path to skeleton and inventory files"`
	Inventory string `short:"i" long:"inventory" description:"inventory file of named NOOB devices and variables"`

	ConfFile string `short:"C" long:"conf" description:"path to a pre-rendered configuration text file"`
	Model    string `short:"M" long:"model" description:"explicit device model, used to locate the skeleton file"`
	Merge    bool   `long:"merge" description:"use load action 'replace' instead of 'override' (see SPEC_FULL.md on this flag's observed semantics)"`

	QFXMode   string   `long:"qfx-mode" choice:"NODE" choice:"SWITCH" description:"request a QFX device-mode change"`
	QFXModels []string `long:"qfx-model" description:"override the recognized QFX model list (repeatable)"`

	Zeroize      bool   `long:"zeroize" description:"wipe configuration and reboot to factory defaults"`
	Shutdown     string `long:"shutdown" choice:"poweroff" choice:"reboot" description:"fire-and-forget power action"`
	ClusterSpec  string `long:"srx-cluster" description:"enable SRX chassis cluster, '<id>,<node>'"`
	ClusterOff   bool   `long:"srx-cluster-disable" description:"disable SRX chassis cluster"`
	GatherFacts  bool   `long:"gather-facts" description:"gather facts only; no configuration changes"`
	DryRun       bool   `long:"dry-run" description:"build the configuration only, without opening a session"`
	SaveConfPath string `long:"save" description:"with --dry-run, path to write the rendered NOOB configuration text (default <name>.conf)"`

	Port   string `short:"P" long:"port" default:"/dev/ttyUSB0" description:"serial port device"`
	Baud   int    `long:"baud" default:"9600" description:"serial port baud rate"`
	Telnet string `long:"telnet" description:"terminal-server host:port for telnet console access"`
	SSH    string `long:"ssh" description:"console-server host:port for SSH console access"`

	User        string `short:"u" long:"user" default:"root" description:"login user name"`
	Passwd      string `short:"p" long:"passwd" description:"login user password"`
	AskPass     bool   `short:"k" long:"ask-pass" description:"prompt for the login password interactively"`
	Attempts    int    `long:"attempts" description:"login state machine attempt cap (0 = default)"`
	ReadTimeout int    `long:"timeout" default:"10" description:"read/expect timeout in seconds"`

	SaveDir string `long:"savedir" default:"." description:"directory to write <name>-facts.json and <name>-inventory.xml"`
	NoSave  bool   `long:"no-save" description:"suppress writing the facts/inventory save files"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}

func notify(event, message string) {
	log.WithField("event", event).Info(message)
}

func run(opts options) error {
	namevars, err := resolveNamevars(opts)
	if err != nil {
		return err
	}

	if opts.AskPass {
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
		opts.Passwd = string(pw)
	}

	if opts.DryRun {
		return dryRun(opts, namevars)
	}

	confContent, err := buildConfContent(opts, namevars)
	if err != nil {
		return err
	}

	tr, err := buildTransport(opts)
	if err != nil {
		return err
	}

	driverOpts := driver.Options{
		Name:            resolveName(opts),
		ConfContent:     confContent,
		Merge:           opts.Merge,
		GatherFactsOnly: opts.GatherFacts,
		Creds: netconify.Credentials{
			User:     opts.User,
			Password: opts.Passwd,
			Attempts: opts.Attempts,
		},
		ExpectTimeout: time.Duration(opts.ReadTimeout) * time.Second,
		NotifyEvent:   notify,
	}

	if opts.QFXMode != "" {
		driverOpts.QFXMode = actions.DeviceMode(opts.QFXMode)
		driverOpts.QFXModels = opts.QFXModels
	}
	if opts.Zeroize {
		driverOpts.Zeroize = true
	}
	if opts.Shutdown != "" {
		driverOpts.ShutdownAction = actions.PowerAction(opts.Shutdown)
	}
	if opts.ClusterSpec != "" {
		spec, err := parseClusterSpec(opts.ClusterSpec)
		if err != nil {
			return err
		}
		driverOpts.ClusterEnable = spec
	}
	if opts.ClusterOff {
		driverOpts.ClusterDisable = true
	}

	result := driver.Run(tr, driverOpts)
	if result.Failed {
		return fmt.Errorf("%s", result.ErrMsg)
	}

	if result.Facts != nil {
		return persist.Save(opts.SaveDir, driverOpts.Name, result.Facts, opts.NoSave)
	}
	return nil
}

// dryRun builds the rendered configuration only, mirroring
// cmdo.py::_dry_run, and never opens a session: the configuration comes
// from the conf file or model skeleton alone, so with neither given the
// file written is empty (facts are not gathered to pick a skeleton).
func dryRun(opts options, namevars map[string]string) error {
	confContent, err := buildConfContent(opts, namevars)
	if err != nil {
		return err
	}

	savePath := opts.SaveConfPath
	if savePath == "" {
		savePath = resolveName(opts) + ".conf"
	}
	notify("conf", fmt.Sprintf("saving: %s", savePath))
	return os.WriteFile(savePath, []byte(confContent), 0o644)
}

func buildConfContent(opts options, namevars map[string]string) (string, error) {
	path := opts.ConfFile
	if path == "" && opts.Model != "" {
		path = template.SkeletonPath(opts.Prefix, opts.Model)
	}
	if path == "" {
		return "", nil
	}
	return template.RenderFile(path, namevars)
}

func resolveNamevars(opts options) (map[string]string, error) {
	if opts.Name == "" {
		return nil, nil
	}
	invPath := opts.Inventory
	if invPath == "" {
		invPath = opts.Prefix + "/hosts"
	}
	inv, err := inventory.Load(invPath)
	if err != nil {
		return nil, err
	}
	return inv.NameVars(opts.Name)
}

func resolveName(opts options) string {
	if opts.Name != "" {
		return opts.Name
	}
	return "netconify"
}

func parseClusterSpec(s string) (*actions.ClusterSpec, error) {
	var id, node int
	if _, err := fmt.Sscanf(s, "%d,%d", &id, &node); err != nil {
		return nil, fmt.Errorf("invalid --srx-cluster value %q, expected '<id>,<node>'", s)
	}
	return &actions.ClusterSpec{ClusterID: id, Node: node}, nil
}

func buildTransport(opts options) (transport.Transport, error) {
	switch {
	case opts.Telnet != "":
		host, port, err := splitHostPort(opts.Telnet)
		if err != nil {
			return nil, err
		}
		return telnettransport.New(telnettransport.Config{Host: host, Port: port, Baud: opts.Baud}), nil

	case opts.SSH != "":
		host, port, err := splitHostPort(opts.SSH)
		if err != nil {
			return nil, err
		}
		return sshDial(host, port, opts)

	default:
		return sertransport.New(sertransport.Config{Device: opts.Port, Baud: opts.Baud}), nil
	}
}

func sshDial(host string, port int, opts options) (transport.Transport, error) {
	return sshtransport.Dial(context.Background(), sshtransport.Config{
		Host:     host,
		Port:     port,
		User:     opts.User,
		Password: opts.Passwd,
	})
}

func splitHostPort(hostport string) (string, int, error) {
	var host string
	var port int
	if _, err := fmt.Sscanf(hostport, "%[^:]:%d", &host, &port); err != nil {
		return "", 0, fmt.Errorf("invalid host:port %q", hostport)
	}
	return host, port, nil
}
