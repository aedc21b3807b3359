//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"ember/app"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/kernel"
	"ember/trace"
)

func main() {
	var cfg hal.HeadlessConfig
	var appCfg app.Config
	var (
		traceJSON string
		traceDB   string
		traceLog  bool
		slice     uint
		version   bool
	)
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 1000, "Tick rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N ticks in headless mode (0 = run forever).")
	flag.Uint64Var(&cfg.IRQEvery, "irq-every", 500, "Press space every N ticks in headless mode (0 = never).")
	flag.StringVar(&traceJSON, "trace-json", "", "Write kernel events as JSON lines to this file.")
	flag.StringVar(&traceDB, "trace-db", "", "Store kernel events in this SQLite database.")
	flag.BoolVar(&traceLog, "trace-log", false, "Log context switches and exits.")
	flag.UintVar(&slice, "slice", kernel.DefaultTicksPerSlice, "Ticks per round-robin time slice.")
	flag.IntVar(&appCfg.PriorityLevels, "levels", kernel.DefaultPriorityLevels, "Number of task priority levels.")
	flag.BoolVar(&appCfg.Quiet, "quiet", false, "Suppress demo report lines.")
	flag.BoolVar(&version, "version", false, "Print version and exit.")
	flag.Parse()

	if version {
		fmt.Println(buildinfo.Long())
		return
	}
	appCfg.TicksPerSlice = uint32(slice)

	var (
		tracers trace.Multi
		closers []func() error
	)
	if traceJSON != "" {
		j, err := trace.CreateJSONL(traceJSON)
		if err != nil {
			fatalf("%v", err)
		}
		tracers = append(tracers, j)
		closers = append(closers, j.Close)
	}
	if traceDB != "" {
		s, err := trace.OpenSQLite(traceDB)
		if err != nil {
			fatalf("%v", err)
		}
		tracers = append(tracers, s)
		closers = append(closers, s.Close)
	}

	newApp := func(h hal.HAL) func() error {
		c := appCfg
		ts := tracers
		if traceLog {
			ts = append(ts, trace.NewLog(h.Logger(), kernel.EventSwitch, kernel.EventExit, kernel.EventFault))
		}
		if len(ts) > 0 {
			c.Tracer = ts
		}
		return app.NewWithConfig(h, c)
	}

	var err error
	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = hal.RunHeadless(ctx, newApp, cfg)
		stop()
	} else {
		err = hal.RunWindow(newApp)
	}

	for _, c := range closers {
		if cerr := c(); cerr != nil {
			fmt.Fprintln(os.Stderr, cerr)
		}
	}
	if traceDB != "" {
		printKindCounts(traceDB)
	}

	if errors.Is(err, hal.ErrNoWindow) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printKindCounts(path string) {
	counts, err := trace.KindCounts(context.Background(), path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Printf("%-8s %d\n", k, counts[k])
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
