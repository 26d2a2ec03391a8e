// Package app assembles the per-process EngineContext of spec §9's design
// notes: the scene, camera and material registries, configuration,
// logging, the technique scheduler and a CPU-side frame profiler, all
// reachable from one value instead of through global singletons.
package app

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profiler accumulates named CPU scope timings and counters across a
// frame, for the debug HUD. Grounded on rt/app/profiler.go's Profiler,
// kept as the same general-purpose timing utility since the scope/count
// bookkeeping itself is not domain-specific to the source's rasterizer.
type Profiler struct {
	Scopes     map[string]time.Duration
	StartTimes map[string]time.Time
	Counts     map[string]int
	Order      []string
}

func NewProfiler() *Profiler {
	return &Profiler{
		Scopes:     make(map[string]time.Duration),
		StartTimes: make(map[string]time.Time),
		Counts:     make(map[string]int),
		Order:      make([]string, 0),
	}
}

// BeginScope marks the start of a named timing scope, preserving first-
// seen order so GetStatsString prints scopes in a stable sequence.
func (p *Profiler) BeginScope(name string) {
	p.StartTimes[name] = time.Now()
	for _, n := range p.Order {
		if n == name {
			return
		}
	}
	p.Order = append(p.Order, name)
}

func (p *Profiler) EndScope(name string) {
	if start, ok := p.StartTimes[name]; ok {
		p.Scopes[name] = time.Since(start)
	}
}

func (p *Profiler) SetCount(name string, count int) {
	p.Counts[name] = count
}

// Reset clears accumulated durations but keeps Order, so a HUD redrawing
// every frame doesn't see scopes reshuffle between frames.
func (p *Profiler) Reset() {
	for k := range p.Scopes {
		p.Scopes[k] = 0
	}
}

func (p *Profiler) GetStatsString() string {
	var sb strings.Builder

	sb.WriteString("Timings (CPU):\n")
	for _, name := range p.Order {
		ms := float64(p.Scopes[name].Microseconds()) / 1000.0
		fmt.Fprintf(&sb, "  %-28s: %.2f ms\n", name, ms)
	}

	sb.WriteString("\nCounters:\n")
	keys := make([]string, 0, len(p.Counts))
	for k := range p.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %-28s: %d\n", k, p.Counts[k])
	}

	return sb.String()
}
