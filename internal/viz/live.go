package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/metrics"
	"github.com/san-kum/verletsim/internal/scene"
	"github.com/san-kum/verletsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	burstSize       = 5
	maxSubSteps     = 64
)

// GIFPath is where a recording is written when capture stops.
var GIFPath = "verletsim.gif"

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model runs a scene live in the terminal. Every tick advances one frame
// and keeps a bounded history for replay.
type Model struct {
	cfg *config.Config
	reg *experiment.Registry

	sim     *sim.Simulator
	ke      *metrics.KineticEnergy
	overlap *metrics.MaxOverlap
	burst   *scene.Spawner
	spawner *scene.Spawner
	gravity r2.Vec

	width, height int
	canvas        *Canvas
	view          Viewport

	running       bool
	gravityOn     bool
	energyHistory []float64
	overlapHist   []float64
	history       []sim.Frame
	playHead      int
	recording     bool
	frames        []*image.Paletted
	showHelp      bool
	err           error
}

// NewModel builds the scene named by cfg and returns a running viewer.
func NewModel(cfg *config.Config, reg *experiment.Registry) (Model, error) {
	m := Model{
		cfg:           cfg,
		reg:           reg,
		ke:            metrics.NewKineticEnergy(),
		overlap:       metrics.NewMaxOverlap(),
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		running:       true,
		gravityOn:     true,
		energyHistory: make([]float64, 0, historyCapacity),
		overlapHist:   make([]float64, 0, historyCapacity),
		history:       make([]sim.Frame, 0, historyCapacity),
		playHead:      -1,
	}
	if err := m.build(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) build() error {
	setup, err := m.reg.Build(m.cfg)
	if err != nil {
		return err
	}
	m.sim = sim.New(setup.Engine, setup.Drivers...)
	m.spawner = setup.Spawner
	m.gravity = setup.Engine.Gravity()
	m.view = NewViewport(setup.Engine.Bounds(), m.canvas)

	sc := m.cfg.Scene.Spawner
	m.burst = &scene.Spawner{
		Max:       burstSize,
		Speed:     sc.Speed,
		Angle:     sc.Angle,
		Origin:    r2.Vec{X: sc.X, Y: sc.Y},
		Radius:    m.cfg.Particle.Radius,
		Rigidness: m.cfg.Particle.Rigidness,
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "g":
			m.toggleGravity()
		case "+", "=":
			m.adjustSubSteps(1)
		case "-", "_":
			m.adjustSubSteps(-1)
		case "b":
			m.spawnBurst()
		case "c":
			m.toggleRecording()
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) step() {
	if m.err != nil {
		return
	}
	if err := m.sim.Advance(true); err != nil {
		m.err = err
		m.running = false
		return
	}
	e := m.sim.Engine()

	m.energyHistory = appendBounded(m.energyHistory, m.ke.Sample(e))
	m.overlapHist = appendBounded(m.overlapHist, m.overlap.Sample(e))

	m.history = append(m.history, sim.Snapshot(e, m.sim.Frame(), m.sim.Time()))
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

func appendBounded(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[1:]
	}
	return xs
}

func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds the scene from the configuration.
func (m *Model) reset() {
	if err := m.build(); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.gravityOn = true
	m.energyHistory = m.energyHistory[:0]
	m.overlapHist = m.overlapHist[:0]
	m.history = m.history[:0]
	m.playHead = -1
}

func (m *Model) toggleGravity() {
	m.gravityOn = !m.gravityOn
	if m.gravityOn {
		m.sim.Engine().SetGravity(m.gravity)
	} else {
		m.sim.Engine().SetGravity(r2.Vec{})
	}
}

func (m *Model) adjustSubSteps(delta int) {
	e := m.sim.Engine()
	n := e.SubSteps() + delta
	if n < 1 || n > maxSubSteps {
		return
	}
	if err := e.SetSubSteps(n); err != nil {
		m.err = err
	}
}

func (m *Model) spawnBurst() {
	e := m.sim.Engine()
	for i := 0; i < burstSize; i++ {
		m.burst.Emit(e)
	}
}

func (m *Model) current() sim.Frame {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return sim.Snapshot(m.sim.Engine(), m.sim.Frame(), m.sim.Time())
}

func (m *Model) draw() {
	m.canvas.Clear()
	DrawFrame(m.canvas, m.view, m.current())
}

// DrawFrame renders links as lines and particles as circle outlines.
func DrawFrame(c *Canvas, v Viewport, f sim.Frame) {
	for _, l := range f.Links {
		x0, y0 := v.Point(f.Particles[l[0]].Position())
		x1, y1 := v.Point(f.Particles[l[1]].Position())
		c.DrawLine(x0, y0, x1, y1)
	}
	for _, p := range f.Particles {
		x, y := v.Point(p.Position())
		c.DrawCircle(x, y, v.Length(p.Radius))
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return "FAILED: " + m.err.Error()
	case m.playHead != -1 && len(m.history) > 0:
		offset := m.history[m.playHead].Time - m.history[len(m.history)-1].Time
		if m.running {
			return fmt.Sprintf("REPLAYING (%.1fs)", offset)
		}
		return fmt.Sprintf("REPLAY PAUSED (%.1fs)", offset)
	case !m.running:
		return "PAUSED"
	case m.recording:
		return "RECORDING"
	}
	return "RUNNING"
}

// View renders the canvas next to the stats panel.
func (m Model) View() string {
	theme := CurrentTheme
	m.draw()
	frame := m.current()
	e := m.sim.Engine()

	var s strings.Builder
	s.WriteString(theme.header().Render(GradientText(strings.ToUpper(m.cfg.Scene.Name), theme.Primary, theme.Secondary)) + "\n")
	s.WriteString(theme.status(m.running, m.err != nil).Render(m.status()) + "\n\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(theme.graph().Render(chart) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(theme.label().Render(label) + theme.value().Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.2fs", frame.Time))
	row("Frame", fmt.Sprintf("%d", frame.Index))
	row("Particles", fmt.Sprintf("%d", len(frame.Particles)))
	row("Links", fmt.Sprintf("%d", len(frame.Links)))
	row("Substeps", fmt.Sprintf("%d (dt %.2gms)", e.SubSteps(), 1000*e.SubstepTimestep()))
	gravity := "off"
	if m.gravityOn {
		gravity = fmt.Sprintf("(%.0f, %.0f)", m.gravity.X, m.gravity.Y)
	}
	row("Gravity", gravity)
	row("Boundary", e.Boundary().String())
	if len(m.energyHistory) > 0 {
		row("Energy", fmt.Sprintf("%.2f", m.energyHistory[len(m.energyHistory)-1]))
	}
	s.WriteString(theme.label().Render("Overlap") + SparklineChart(m.overlapHist, 20) + "\n")
	if sp := m.spawner; sp != nil && sp.Max > 0 {
		row("Spawned", fmt.Sprintf("%s %d/%d", ProgressBar(float64(sp.Emitted())/float64(sp.Max), 10), sp.Emitted(), sp.Max))
	}

	s.WriteString(keyHint.Render("SP:Pause R:Reset Q:Quit\nG:Gravity B:Burst +-:Substeps\nT:Theme C:Record ?:Help [ ]:Replay"))

	canvasView := theme.canvas().Render(m.canvas.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpBox.Render(helpText) + "\n\n" + mainView
	}
	return mainView
}

const helpText = `KEYBOARD SHORTCUTS

Space   Pause/Resume simulation
R       Rebuild the scene
Q       Quit
G       Toggle gravity
B       Spawn a burst of particles
+ / -   More / fewer substeps
[ / ]   Rewind / forward through history
C       Toggle GIF recording
T       Cycle themes
?       Toggle this help`

func (m *Model) toggleRecording() {
	if !m.recording {
		m.recording = true
		m.frames = make([]*image.Paletted, 0)
		return
	}
	if err := m.saveGIF(GIFPath); err != nil {
		m.err = err
	}
	m.recording = false
	m.frames = nil
}

// captureFrame rasterizes the braille canvas, 8x16 image pixels per cell.
func (m *Model) captureFrame() {
	const charW, charH = 8, 16
	const dotW, dotH = charW / 2, charH / 4
	img := image.NewPaletted(image.Rect(0, 0, m.width*charW, m.height*charH), color.Palette{color.Black, color.White})
	for y := 0; y < m.canvas.PixelHeight(); y++ {
		for x := 0; x < m.canvas.PixelWidth(); x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF(path string) error {
	if len(m.frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}

// Run starts the live viewer and blocks until the user quits.
func Run(cfg *config.Config, reg *experiment.Registry) error {
	m, err := NewModel(cfg, reg)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m).Run()
	return err
}
