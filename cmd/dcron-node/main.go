// Command dcron-node runs a single node of the cluster: it starts the
// store, transport, processor, scheduler, executor and web components and
// blocks until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/witlox/dcron/cli"
	"github.com/witlox/dcron/config"
	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/node"
)

var logger = l3.Get()

func main() {
	app := cli.NewCLI()
	app.AddVersion("v1.0.0")
	app.AddCommand(runCommand())

	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	cmd := cli.NewCommand("run", "start a cluster node and block until terminated", "v1.0.0", runAction)
	cmd.Flags = []*cli.Flag{
		{Name: "log-file", Aliases: []string{"l"}, Usage: "append log file (default: console only)", Kind: cli.KindString, Default: ""},
		{Name: "storage-path", Aliases: []string{"p"}, Usage: "snapshot directory (omit for no persistence)", Kind: cli.KindString, Default: ""},
		{Name: "communication-port", Aliases: []string{"c"}, Usage: "UDP broadcast port", Kind: cli.KindInt, Default: node.DefaultCommunicationPort},
		{Name: "web-port", Aliases: []string{"w"}, Usage: "HTTP port", Kind: cli.KindInt, Default: node.DefaultWebPort},
		{Name: "ntp-server", Aliases: []string{"n"}, Usage: "NTP host for the startup skew check", Kind: cli.KindString, Default: node.DefaultNTPServer},
		{Name: "node-staleness", Aliases: []string{"s"}, Usage: "liveness window in seconds", Kind: cli.KindInt, Default: int(node.DefaultNodeStaleness / time.Second)},
		{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging", Kind: cli.KindBool, Default: false},
	}
	return cmd
}

func runAction(ctx *cli.Context) error {
	logFile, _ := ctx.GetFlag("log-file")
	verboseStr, _ := ctx.GetFlag("verbose")
	verbose, _ := strconv.ParseBool(verboseStr)
	configureLogging(logFile, verbose)

	storagePath, _ := ctx.GetFlag("storage-path")
	commPortStr, _ := ctx.GetFlag("communication-port")
	webPortStr, _ := ctx.GetFlag("web-port")
	ntpServer, _ := ctx.GetFlag("ntp-server")
	stalenessStr, _ := ctx.GetFlag("node-staleness")

	commPort, err := strconv.Atoi(commPortStr)
	if err != nil {
		return fmt.Errorf("dcron-node: invalid -c/--communication-port %q: %w", commPortStr, err)
	}
	webPort, err := strconv.Atoi(webPortStr)
	if err != nil {
		return fmt.Errorf("dcron-node: invalid -w/--web-port %q: %w", webPortStr, err)
	}
	stalenessSecs, err := strconv.Atoi(stalenessStr)
	if err != nil {
		return fmt.Errorf("dcron-node: invalid -s/--node-staleness %q: %w", stalenessStr, err)
	}

	defaultUser, err := loadDefaultUser(jobDefaultsPath(storagePath))
	if err != nil {
		return fmt.Errorf("dcron-node: %w", err)
	}

	cfg := node.Config{
		StoragePath:       storagePath,
		CommunicationPort: commPort,
		WebPort:           webPort,
		NTPServer:         ntpServer,
		NodeStaleness:     time.Duration(stalenessSecs) * time.Second,
		CrontabPath:       crontabPath(storagePath),
		SeedCrontabPath:   seedCrontabPath(storagePath),
		DefaultUser:       defaultUser,
	}

	skewCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := node.CheckClockSkew(skewCtx, node.DefaultNTPChecker(), cfg.NTPServer); err != nil {
		return fmt.Errorf("dcron-node: %w", err)
	}

	n, err := node.New(cfg)
	if err != nil {
		return fmt.Errorf("dcron-node: %w", err)
	}

	logger.InfoF("dcron-node: starting on %s, UDP :%d, HTTP :%d", n.SelfIP(), commPort, webPort)
	return n.StartAndWait()
}

func crontabPath(storagePath string) string {
	if storagePath == "" {
		return "crontab.managed"
	}
	return storagePath + "/crontab.managed"
}

// seedCrontabPath names the optional one-time seed crontab, read into the
// store on first startup. It is never an error for this file to be
// absent; ImportSeedCrontab no-ops in that case.
func seedCrontabPath(storagePath string) string {
	if storagePath == "" {
		return "crontab.seed"
	}
	return storagePath + "/crontab.seed"
}

// jobDefaultsPath names the optional job-defaults properties file, read
// by loadDefaultUser.
func jobDefaultsPath(storagePath string) string {
	if storagePath == "" {
		return "job-defaults.properties"
	}
	return storagePath + "/job-defaults.properties"
}

// loadDefaultUser reads the "user" property from path, the default owner
// stamped onto any job whose Job.User arrives empty — spec §4.4's "fill
// in" defaulting. A missing file is not an error: DefaultUser is simply
// left blank, matching the no-seed-crontab case.
func loadDefaultUser(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("opening job defaults %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	props := config.NewProperties()
	if err := props.Load(f); err != nil {
		return "", fmt.Errorf("parsing job defaults %s: %w", path, err)
	}
	return props.Get("user", ""), nil
}

func configureLogging(logFile string, verbose bool) {
	level := "INFO"
	if verbose {
		level = "DEBUG"
	}
	writer := &l3.WriterConfig{Console: &l3.ConsoleConfig{}}
	if logFile != "" {
		writer = &l3.WriterConfig{File: &l3.FileConfig{
			DefaultPath: logFile,
			ErrorPath:   logFile,
			WarnPath:    logFile,
			InfoPath:    logFile,
			DebugPath:   logFile,
			TracePath:   logFile,
		}}
	}
	l3.Configure(&l3.LogConfig{
		Format:     "text",
		DefaultLvl: level,
		Writers:    []*l3.WriterConfig{writer},
	})
}
