// Command kvload is a load generator and benchmark driver for a
// RESP-speaking key-value server: it opens a pool of non-blocking
// connections, issues a configurable mix of operations against a
// deterministic keyspace, and reports latency and throughput.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/antirez/redis-tools/internal/config"
	"github.com/antirez/redis-tools/internal/engine"
	"github.com/antirez/redis-tools/internal/logging"
	"github.com/antirez/redis-tools/internal/metrics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := config.Default()

	if path, rest := config.ExtractConfigFile(args); path != "" {
		loaded, err := config.LoadFile(path, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		opts = loaded
		args = rest
	}

	opts, err := config.Parse(args, opts)
	if err != nil {
		if _, ok := err.(*config.UsageError); ok {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprint(os.Stderr, config.Usage)
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(logging.Config{Quiet: opts.Quiet, Debug: opts.Debug})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer logger.Sync()

	var rec *metrics.Recorder
	if opts.MetricsAddr != "" {
		rec = metrics.New()
		metricsCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			if err := rec.Serve(metricsCtx, opts.MetricsAddr); err != nil {
				logger.Errorf("metrics server on %s stopped: %v", opts.MetricsAddr, err)
			}
		}()
	}

	eng, err := engine.New(opts, logger, rec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("PRNG seed is: %d\n", opts.PRNGSeed)

	for {
		if err := eng.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		eng.Report(os.Stdout, opts.Quiet)
		if !opts.Loop {
			break
		}
	}
	return 0
}
