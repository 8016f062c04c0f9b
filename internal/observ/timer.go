package observ

import (
	"fmt"
	"sort"
	"time"
)

// Phase records the duration and metadata of one verification phase
// (corpus load, initial parse, fuzz matrix, report).
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of the coarse phases of a run.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	out := "timings:\n"
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
		out += fmt.Sprintf("  %-24s %8.2f ms", p.Name, millis(p.Dur))
		if p.Note != "" {
			out += "  // " + p.Note
		}
		out += "\n"
	}
	out += fmt.Sprintf("  %-24s %8.2f ms\n", "total", millis(total))
	return out
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Sampler aggregates many short durations of one repeated operation — the
// per-edit incremental and fresh parses — into count/min/max/total.
// Не потокобезопасен: каждый воркер держит свой и сливает через Merge.
type Sampler struct {
	stats map[string]*SampleStats
}

// SampleStats are the aggregates for one operation name.
type SampleStats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
}

// NewSampler creates an empty sampler.
func NewSampler() *Sampler {
	return &Sampler{stats: make(map[string]*SampleStats)}
}

// Observe records one duration for the named operation.
func (s *Sampler) Observe(name string, d time.Duration) {
	st, ok := s.stats[name]
	if !ok {
		st = &SampleStats{Min: d, Max: d}
		s.stats[name] = st
	}
	st.Count++
	st.Total += d
	if d < st.Min {
		st.Min = d
	}
	if d > st.Max {
		st.Max = d
	}
}

// Merge folds another sampler into this one.
func (s *Sampler) Merge(other *Sampler) {
	if other == nil {
		return
	}
	for name, o := range other.stats {
		st, ok := s.stats[name]
		if !ok {
			copied := *o
			s.stats[name] = &copied
			continue
		}
		st.Count += o.Count
		st.Total += o.Total
		if o.Min < st.Min {
			st.Min = o.Min
		}
		if o.Max > st.Max {
			st.Max = o.Max
		}
	}
}

// Stats returns aggregates for one operation, or nil when never observed.
func (s *Sampler) Stats(name string) *SampleStats { return s.stats[name] }

// Summary renders all operations sorted by name for stable output.
func (s *Sampler) Summary() string {
	names := make([]string, 0, len(s.stats))
	for name := range s.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := "parse timings:\n"
	for _, name := range names {
		st := s.stats[name]
		avg := time.Duration(0)
		if st.Count > 0 {
			avg = st.Total / time.Duration(st.Count)
		}
		out += fmt.Sprintf("  %-24s n=%-6d min=%8.2fms avg=%8.2fms max=%8.2fms\n",
			name, st.Count, millis(st.Min), millis(avg), millis(st.Max))
	}
	return out
}
