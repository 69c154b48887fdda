// Package editor holds the authoring state behind the interactive window.
package editor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/scene"
	"github.com/san-kum/verletsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

// Modes are the scenes selectable from the panel, in combo box order.
var Modes = []string{"free", "collision", "cloth"}

type Tool int

const (
	ToolNone Tool = iota
	ToolObject
	ToolLink
)

func (t Tool) String() string {
	switch t {
	case ToolObject:
		return "object"
	case ToolLink:
		return "link"
	default:
		return "none"
	}
}

// Editor is the authoring state behind the window: the running scene, the
// armed tool and a pending link endpoint.
type Editor struct {
	cfg *config.Config
	reg *experiment.Registry
	sim *sim.Simulator

	Mode    int
	Tool    Tool
	Fixed   bool
	Running bool
	// pending is the first endpoint of a link being created, or -1.
	pending int
}

func NewEditor(cfg *config.Config, reg *experiment.Registry) (*Editor, error) {
	ed := &Editor{cfg: cfg.Clone(), reg: reg, pending: -1}
	mode := 0
	for i, name := range Modes {
		if name == cfg.Scene.Name {
			mode = i
		}
	}
	if err := ed.SetMode(mode); err != nil {
		return nil, err
	}
	return ed, nil
}

func (ed *Editor) Simulator() *sim.Simulator { return ed.sim }
func (ed *Editor) Config() *config.Config    { return ed.cfg }

// Pending returns the first endpoint of an unfinished link, or -1.
func (ed *Editor) Pending() int { return ed.pending }

// SetMode rebuilds the world as the scene at index mode of Modes.
func (ed *Editor) SetMode(mode int) error {
	if mode < 0 || mode >= len(Modes) {
		return fmt.Errorf("%w: mode %d", experiment.ErrUnknownScene, mode)
	}
	ed.cfg.Scene.Name = Modes[mode]
	setup, err := ed.reg.Build(ed.cfg)
	if err != nil {
		return err
	}
	ed.sim = sim.New(setup.Engine, setup.Drivers...)
	ed.Mode = mode
	ed.pending = -1
	slog.Info("scene loaded", "mode", Modes[mode], "particles", setup.Engine.NumParticles(), "links", setup.Engine.NumLinks())
	return nil
}

// Arm selects the tool for the next clicks. Re-arming the active tool
// disarms it.
func (ed *Editor) Arm(t Tool) {
	if ed.Tool == t {
		t = ToolNone
	}
	ed.Tool = t
	ed.pending = -1
}

// Click applies the armed tool at a world position. Objects are placed
// at pos; links take two clicks on existing particles and keep their
// current distance as rest length. Clicks are ignored while running.
func (ed *Editor) Click(pos r2.Vec) error {
	if ed.Running {
		return nil
	}
	e := ed.sim.Engine()
	switch ed.Tool {
	case ToolObject:
		p := ed.cfg.NewParticle(pos)
		p.Fixed = ed.Fixed
		p.Color = scene.Rainbow(e.NumParticles())
		e.AddParticle(p)
	case ToolLink:
		picked := scene.Pick(e, pos)
		if picked < 0 {
			return nil
		}
		if ed.pending < 0 {
			ed.pending = picked
			return nil
		}
		first := ed.pending
		ed.pending = -1
		if first == picked {
			return nil
		}
		return scene.Connect(e, first, picked, ed.cfg.Link.Stiffness, ed.cfg.Link.Spring)
	}
	return nil
}

// Step advances one frame while running.
func (ed *Editor) Step() error {
	if !ed.Running {
		return nil
	}
	return ed.sim.Advance(true)
}

// FrameWatch reports sustained frame-rate drops below Target, at most once
// per Interval.
type FrameWatch struct {
	Target    float64
	Tolerance float64
	Interval  time.Duration
	Logger    *slog.Logger

	last time.Time
}

// Observe logs a warning and returns true when fps is under the target.
func (w *FrameWatch) Observe(fps float64, particles int, now time.Time) bool {
	if fps >= w.Target*(1-w.Tolerance) {
		return false
	}
	if !w.last.IsZero() && now.Sub(w.last) < w.Interval {
		return false
	}
	w.last = now
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("frame rate drop", "fps", fps, "target", w.Target, "particles", particles)
	return true
}
