// Command ufod is the task-graph scheduler daemon's CLI front door. It
// loads a task-graph JSON document, maps it onto GPU execution
// contexts, runs it to completion, and exits 0 on a clean shutdown or 1
// on init/runtime failure, terminating early on SIGTERM/SIGINT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ufoflow/ufoflow/graph"
	"github.com/ufoflow/ufoflow/log"
	"github.com/ufoflow/ufoflow/plugin"
	"github.com/ufoflow/ufoflow/resource"
	"github.com/ufoflow/ufoflow/scheduler"
	"github.com/ufoflow/ufoflow/store"
	"github.com/ufoflow/ufoflow/store/memory"
	"github.com/ufoflow/ufoflow/store/sqlite"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("ufod", flag.ContinueOnError)
	listen := fs.String("listen", "tcp://*:5555", "listen address, reported in the startup log (ufod opens no listener)")
	graphPath := fs.String("graph", "", "path to a task graph JSON document to run")
	nGPUs := fs.Int("gpus", 1, "number of GPU execution contexts to map onto")
	storeDSN := fs.String("store", "", "store backend DSN, e.g. sqlite://./runs.db (default: in-memory)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error, none")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	if *showVersion {
		fmt.Println("ufod", version)
		return 0
	}

	logger := log.NewDefaultLogger(parseLevel(*logLevel))

	if *graphPath == "" {
		logger.Error("missing required -graph flag")
		return 1
	}

	doc, err := os.ReadFile(*graphPath)
	if err != nil {
		logger.Error("read graph document: %v", err)
		return 1
	}

	// Real deployments register their task plugins on this registry
	// before loading; see plugin.Registry.Register. ufod itself carries
	// none, since individual task plugin code is an external
	// collaborator.
	registry := plugin.NewRegistry()

	tg, err := graph.Load(doc, registry)
	if err != nil {
		logger.Error("load graph: %v", err)
		return 1
	}
	if ok, warnings, err := tg.IsAlright(false); !ok {
		logger.Error("graph validation: %v", err)
		return 1
	} else {
		for _, w := range warnings {
			logger.Warn("%s", w)
		}
	}

	st, err := openStore(*storeDSN)
	if err != nil {
		logger.Error("open store: %v", err)
		return 1
	}

	resources := resource.NewHostManager(*nGPUs)

	gpuNodes := make([]graph.ProcNode, *nGPUs)
	for i := range gpuNodes {
		gpuNodes[i] = graph.NewProcNode(fmt.Sprintf("gpu-%d", i))
	}
	if err := tg.Map(gpuNodes); err != nil {
		logger.Error("map graph: %v", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			logger.Info("received shutdown signal, stopping")
			cancel()
		}
	}()

	logger.Info("ufod %s (listen address %s) running graph %s", version, *listen, *graphPath)

	report, err := scheduler.Run(ctx, tg, scheduler.Config{Resources: resources, Store: st, Logger: logger})
	if err != nil {
		logger.Error("run failed: %v", err)
		return 1
	}

	logger.Info("run %s completed in %s across %d tasks", report.RunID, report.WallTime, len(report.TaskTimings))
	return 0
}

func parseLevel(s string) log.LogLevel {
	switch s {
	case "debug":
		return log.LogLevelDebug
	case "warn":
		return log.LogLevelWarn
	case "error":
		return log.LogLevelError
	case "none":
		return log.LogLevelNone
	default:
		return log.LogLevelInfo
	}
}

func openStore(dsn string) (store.Store, error) {
	if dsn == "" {
		return memory.New(), nil
	}
	const sqlitePrefix = "sqlite://"
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return sqlite.New(sqlite.Options{Path: strings.TrimPrefix(dsn, sqlitePrefix)})
	}
	return nil, fmt.Errorf("unsupported store DSN %q", dsn)
}
