// Command ktrace summarizes a kernel trace written by ember -trace-json and
// optionally draws it as a Gantt chart.
package main

import (
	"flag"
	"fmt"
	"os"

	"ember/trace"
)

func main() {
	var (
		inPath  = flag.String("in", "", "Input trace (.jsonl).")
		pngPath = flag.String("png", "", "Write a Gantt chart PNG to this path.")
		width   = flag.Int("width", 1200, "Chart width in pixels.")
	)
	flag.Parse()

	if *inPath == "" {
		fatalf("usage: ktrace -in trace.jsonl [-png out.png] [-width 1200]")
	}

	f, err := os.Open(*inPath)
	if err != nil {
		fatalf("open: %v", err)
	}
	recs, err := trace.ReadJSONL(f)
	f.Close()
	if err != nil {
		fatalf("read: %v", err)
	}
	if len(recs) == 0 {
		fatalf("%s: no events", *inPath)
	}

	segs, end := segments(recs)
	if err := writeSummary(os.Stdout, summarize(recs, segs), end); err != nil {
		fatalf("summary: %v", err)
	}

	if *pngPath != "" {
		dc := renderGantt(segs, end, *width)
		if err := dc.SavePNG(*pngPath); err != nil {
			fatalf("png: %v", err)
		}
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
