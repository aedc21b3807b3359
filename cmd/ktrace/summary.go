package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"ember/trace"
)

// segment is a stretch of ticks during which one task held the CPU.
type segment struct {
	id         uint32
	task       string
	prio       int
	start, end uint64
}

type taskStat struct {
	id       uint32
	task     string
	ticks    uint64
	switches int
	blocks   int
	exited   bool
}

// segments splits the trace at switch events. The last segment ends at the
// last recorded tick.
func segments(recs []trace.Record) ([]segment, uint64) {
	var (
		out []segment
		cur *segment
		end uint64
	)
	for _, r := range recs {
		if r.Tick > end {
			end = r.Tick
		}
		if r.Kind != "switch" {
			continue
		}
		if cur != nil {
			cur.end = r.Tick
			out = append(out, *cur)
		}
		cur = &segment{id: r.ID, task: r.Task, prio: r.Priority, start: r.Tick}
	}
	if cur != nil {
		cur.end = end
		out = append(out, *cur)
	}
	return out, end
}

// summarize returns per-task totals, busiest first.
func summarize(recs []trace.Record, segs []segment) []taskStat {
	byID := make(map[uint32]*taskStat)
	get := func(id uint32, name string) *taskStat {
		st, ok := byID[id]
		if !ok {
			st = &taskStat{id: id, task: name}
			byID[id] = st
		}
		return st
	}
	for _, r := range recs {
		if r.ID == 0 {
			continue
		}
		st := get(r.ID, r.Task)
		switch r.Kind {
		case "switch":
			st.switches++
		case "block":
			st.blocks++
		case "exit":
			st.exited = true
		}
	}
	for _, s := range segs {
		get(s.id, s.task).ticks += s.end - s.start
	}

	out := make([]taskStat, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ticks != out[j].ticks {
			return out[i].ticks > out[j].ticks
		}
		return out[i].id < out[j].id
	})
	return out
}

func writeSummary(w io.Writer, stats []taskStat, end uint64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TASK\tID\tTICKS\tCPU\tSWITCHES\tBLOCKS\tEXITED\n")
	for _, st := range stats {
		share := 0.0
		if end > 0 {
			share = 100 * float64(st.ticks) / float64(end)
		}
		fmt.Fprintf(tw, "%s\t%d.%d\t%d\t%.1f%%\t%d\t%d\t%v\n",
			st.task, st.id&0xffff, st.id>>16, st.ticks, share, st.switches, st.blocks, st.exited)
	}
	return tw.Flush()
}
