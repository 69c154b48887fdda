package telemetry

import (
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/san-kum/verletsim/internal/physics"
)

// Phases lists the engine pipeline phases in execution order.
var Phases = []string{
	physics.PhaseGravity,
	physics.PhaseCollisions,
	physics.PhaseLinkCollisions,
	physics.PhaseLinks,
	physics.PhaseBounds,
	physics.PhaseIntegrate,
}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	Frame  time.Duration
	Phases map[string]time.Duration
}

// PerfCollector times engine frames over a rolling window.
// It implements physics.PhaseTimer.
type PerfCollector struct {
	window  []PerfSample
	next    int
	filled  int
	current map[string]time.Duration

	frameStart time.Time
	phaseStart time.Time
	phase      string
}

// NewPerfCollector keeps the last windowSize frames; 60 when windowSize < 1.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		window:  make([]PerfSample, windowSize),
		current: make(map[string]time.Duration),
	}
}

func (p *PerfCollector) StartTick() {
	p.frameStart = time.Now()
	p.current = make(map[string]time.Duration, len(Phases))
	p.phase = ""
}

// StartPhase closes the running phase, if any, and opens name.
// Phases repeat once per substep and accumulate.
func (p *PerfCollector) StartPhase(name string) {
	now := time.Now()
	if p.phase != "" {
		p.current[p.phase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.phase = name
}

func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.phase != "" {
		p.current[p.phase] += now.Sub(p.phaseStart)
	}
	p.window[p.next] = PerfSample{Frame: now.Sub(p.frameStart), Phases: p.current}
	p.next = (p.next + 1) % len(p.window)
	if p.filled < len(p.window) {
		p.filled++
	}
	p.phase = ""
}

// Samples returns the number of frames in the window.
func (p *PerfCollector) Samples() int { return p.filled }

type PerfStats struct {
	Frames          int
	AvgFrame        time.Duration
	MinFrame        time.Duration
	MaxFrame        time.Duration
	PhaseAvg        map[string]time.Duration
	PhasePct        map[string]float64
	FramesPerSecond float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		Frames:   p.filled,
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	if p.filled == 0 {
		return s
	}

	var total time.Duration
	sums := make(map[string]time.Duration)
	for i := 0; i < p.filled; i++ {
		sample := p.window[i]
		total += sample.Frame
		if i == 0 || sample.Frame < s.MinFrame {
			s.MinFrame = sample.Frame
		}
		if sample.Frame > s.MaxFrame {
			s.MaxFrame = sample.Frame
		}
		for name, d := range sample.Phases {
			sums[name] += d
		}
	}

	s.AvgFrame = total / time.Duration(p.filled)
	for name, sum := range sums {
		s.PhaseAvg[name] = sum / time.Duration(p.filled)
		if s.AvgFrame > 0 {
			s.PhasePct[name] = float64(s.PhaseAvg[name]) / float64(s.AvgFrame) * 100
		}
	}
	if s.AvgFrame > 0 {
		s.FramesPerSecond = float64(time.Second) / float64(s.AvgFrame)
	}
	return s
}

// Breakdown returns the phases ordered by average cost, highest first.
func (s PerfStats) Breakdown() []string {
	names := make([]string, 0, len(s.PhaseAvg))
	for name := range s.PhaseAvg {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if s.PhaseAvg[names[i]] == s.PhaseAvg[names[j]] {
			return names[i] < names[j]
		}
		return s.PhaseAvg[names[i]] > s.PhaseAvg[names[j]]
	})
	return names
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("avg_frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("min_frame_us", s.MinFrame.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrame.Microseconds()),
		slog.Float64("frames_per_sec", s.FramesPerSecond),
	}
	for _, name := range Phases {
		if pct, ok := s.PhasePct[name]; ok {
			attrs = append(attrs, slog.Float64(name+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfRow is one benchmark measurement in CSV form.
type PerfRow struct {
	Label             string  `csv:"label"`
	Particles         int     `csv:"particles"`
	Links             int     `csv:"links"`
	SubSteps          int     `csv:"sub_steps"`
	AvgFrameUS        int64   `csv:"avg_frame_us"`
	MaxFrameUS        int64   `csv:"max_frame_us"`
	FramesPerSec      float64 `csv:"frames_per_sec"`
	GravityPct        float64 `csv:"gravity_pct"`
	CollisionsPct     float64 `csv:"collisions_pct"`
	LinkCollisionsPct float64 `csv:"link_collisions_pct"`
	LinksPct          float64 `csv:"links_pct"`
	BoundsPct         float64 `csv:"bounds_pct"`
	IntegratePct      float64 `csv:"integrate_pct"`
}

// Row flattens s for a scene of the given size.
func (s PerfStats) Row(label string, e *physics.Engine) *PerfRow {
	return &PerfRow{
		Label:             label,
		Particles:         e.NumParticles(),
		Links:             e.NumLinks(),
		SubSteps:          e.SubSteps(),
		AvgFrameUS:        s.AvgFrame.Microseconds(),
		MaxFrameUS:        s.MaxFrame.Microseconds(),
		FramesPerSec:      s.FramesPerSecond,
		GravityPct:        s.PhasePct[physics.PhaseGravity],
		CollisionsPct:     s.PhasePct[physics.PhaseCollisions],
		LinkCollisionsPct: s.PhasePct[physics.PhaseLinkCollisions],
		LinksPct:          s.PhasePct[physics.PhaseLinks],
		BoundsPct:         s.PhasePct[physics.PhaseBounds],
		IntegratePct:      s.PhasePct[physics.PhaseIntegrate],
	}
}

func WriteCSV(w io.Writer, rows []*PerfRow) error {
	return gocsv.Marshal(rows, w)
}
