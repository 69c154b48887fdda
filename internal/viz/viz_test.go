package viz

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
	"github.com/san-kum/verletsim/internal/physics"
	"github.com/san-kum/verletsim/internal/sim"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func newModel(t *testing.T, scene string) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scene.Name = scene
	m, err := NewModel(cfg, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func TestCanvasSetUnset(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(3, 2)
	if !c.IsSet(3, 2) {
		t.Fatal("expected pixel to be set")
	}
	if c.Grid[0][1] == brailleBlank {
		t.Error("expected second cell to change")
	}
	c.Unset(3, 2)
	if c.IsSet(3, 2) || c.Grid[0][1] != brailleBlank {
		t.Error("expected pixel cleared")
	}

	// out of range is a no-op
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	if strings.TrimSpace(strings.ReplaceAll(c.String(), string(rune(brailleBlank)), "")) != "" {
		t.Error("expected blank canvas")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	for i := 0; i < 20; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("expected diagonal pixel %d set", i)
		}
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawCircle(20, 20, 5)
	for _, p := range [][2]int{{25, 20}, {15, 20}, {20, 25}, {20, 15}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected %v on the circle", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("expected hollow circle")
	}

	c.Clear()
	c.DrawCircle(3, 3, 0)
	if !c.IsSet(3, 3) {
		t.Error("expected degenerate circle to light its center")
	}
}

func TestViewport(t *testing.T) {
	c := NewCanvas(50, 25) // 100 x 100 sub-pixels
	v := NewViewport(physics.NewBounds(0, 0, 1000, 500), c)

	if x, y := v.Point(v.Bounds.Min); x != 0 || y != 0 {
		t.Errorf("expected origin at (0, 0), got (%d, %d)", x, y)
	}
	x, y := v.Point(v.Bounds.Max)
	if x != 99 {
		t.Errorf("expected right edge at 99, got %d", x)
	}
	if y > 99 {
		t.Errorf("expected aspect ratio to keep bottom edge on canvas, got %d", y)
	}
	if v.Length(100) < 9 || v.Length(100) > 10 {
		t.Errorf("unexpected scaled length %d", v.Length(100))
	}
}

func TestDrawFrame(t *testing.T) {
	c := NewCanvas(20, 10)
	v := NewViewport(physics.NewBounds(0, 0, 40, 40), c)
	f := sim.Frame{
		Particles: []sim.ParticleState{{X: 5, Y: 5, Radius: 0.1}, {X: 30, Y: 5, Radius: 0.1}},
		Links:     [][2]int{{0, 1}},
	}
	DrawFrame(c, v, f)

	x0, y := v.Point(f.Particles[0].Position())
	x1, _ := v.Point(f.Particles[1].Position())
	for x := x0; x <= x1; x++ {
		if !c.IsSet(x, y) {
			t.Errorf("expected link pixel at (%d, %d)", x, y)
		}
	}
}

func TestModelTickAdvances(t *testing.T) {
	m := newModel(t, "chain")
	m = update(t, m, TickMsg(time.Now()))
	m = update(t, m, TickMsg(time.Now()))

	if m.sim.Frame() != 2 {
		t.Errorf("expected 2 frames, got %d", m.sim.Frame())
	}
	if len(m.history) != 2 || len(m.energyHistory) != 2 {
		t.Errorf("expected 2 history entries, got %d/%d", len(m.history), len(m.energyHistory))
	}
}

func TestModelPause(t *testing.T) {
	m := newModel(t, "chain")
	m = update(t, m, key(" "))
	m = update(t, m, TickMsg(time.Now()))
	if m.sim.Frame() != 0 {
		t.Errorf("expected paused model to hold, got frame %d", m.sim.Frame())
	}
	if !strings.Contains(m.View(), "PAUSED") {
		t.Error("expected PAUSED in view")
	}
}

func TestModelControls(t *testing.T) {
	m := newModel(t, "free")
	e := m.sim.Engine()

	m = update(t, m, key("g"))
	if e.Gravity().X != 0 || e.Gravity().Y != 0 {
		t.Errorf("expected gravity off, got %v", e.Gravity())
	}
	m = update(t, m, key("g"))
	if e.Gravity().Y != config.DefaultGravityY {
		t.Errorf("expected gravity restored, got %v", e.Gravity())
	}

	m = update(t, m, key("+"))
	if e.SubSteps() != config.DefaultSubSteps+1 {
		t.Errorf("expected %d substeps, got %d", config.DefaultSubSteps+1, e.SubSteps())
	}
	m = update(t, m, key("-"))
	m = update(t, m, key("-"))
	if e.SubSteps() != config.DefaultSubSteps-1 {
		t.Errorf("expected %d substeps, got %d", config.DefaultSubSteps-1, e.SubSteps())
	}

	m = update(t, m, key("b"))
	if e.NumParticles() != burstSize {
		t.Errorf("expected %d particles after burst, got %d", burstSize, e.NumParticles())
	}

	m = update(t, m, key("r"))
	if m.sim.Engine().NumParticles() != 0 {
		t.Errorf("expected reset to rebuild an empty scene, got %d", m.sim.Engine().NumParticles())
	}
	if m.sim.Engine().SubSteps() != config.DefaultSubSteps {
		t.Errorf("expected reset to restore substeps, got %d", m.sim.Engine().SubSteps())
	}
}

func TestModelReplay(t *testing.T) {
	m := newModel(t, "chain")
	for i := 0; i < 5; i++ {
		m = update(t, m, TickMsg(time.Now()))
	}
	m = update(t, m, key("["))
	if m.running || m.playHead != 3 {
		t.Errorf("expected paused replay at 3, got running=%v head=%d", m.running, m.playHead)
	}
	if got := m.current().Index; got != 4 {
		t.Errorf("expected replayed frame 4, got %d", got)
	}
	m = update(t, m, key("]"))
	m = update(t, m, key("]"))
	if m.playHead != -1 {
		t.Errorf("expected replay to return live, got head %d", m.playHead)
	}
}

func TestModelView(t *testing.T) {
	m := newModel(t, "chain")
	m = update(t, m, TickMsg(time.Now()))
	m = update(t, m, TickMsg(time.Now()))

	view := m.View()
	for _, want := range []string{"Substeps", "Particles", "reflect"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in view", want)
		}
	}

	m = update(t, m, key("?"))
	if !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("expected help overlay")
	}
}

func TestThemeCycle(t *testing.T) {
	defer SetTheme(ThemeCyberpunk.Name)

	SetTheme("ocean")
	if CurrentTheme.Name != "ocean" {
		t.Fatalf("expected ocean, got %s", CurrentTheme.Name)
	}
	NextTheme()
	if CurrentTheme.Name != ThemeCyberpunk.Name {
		t.Errorf("expected wrap to cyberpunk, got %s", CurrentTheme.Name)
	}
	if GetTheme("missing").Name != ThemeCyberpunk.Name {
		t.Error("expected unknown theme to fall back to cyberpunk")
	}
}

func TestAppFlow(t *testing.T) {
	a := NewApp(experiment.NewRegistry())
	step := func(msg tea.Msg) {
		next, _ := a.Update(msg)
		a = next.(App)
	}

	for a.scenes[a.cursor] != "pile" {
		step(key("j"))
	}
	step(tea.KeyMsg{Type: tea.KeyEnter})
	if a.state != stateConfig || a.cfg.Scene.Name != "pile" {
		t.Fatalf("expected pile config screen, got state %d", a.state)
	}

	step(key("l"))
	if a.cfg.Engine.SubSteps != config.DefaultSubSteps+1 {
		t.Errorf("expected substeps bumped, got %d", a.cfg.Engine.SubSteps)
	}

	step(tea.KeyMsg{Type: tea.KeyTab})
	if a.presets[a.preset] == "default" {
		t.Error("expected tab to select a preset")
	}

	step(key("s"))
	if a.state != stateSim {
		t.Fatalf("expected live view, got state %d (err %v)", a.state, a.err)
	}
	if a.live.sim.Engine().NumParticles() == 0 {
		t.Error("expected a populated pile")
	}

	step(tea.KeyMsg{Type: tea.KeyEsc})
	if a.state != stateConfig {
		t.Errorf("expected esc to leave the live view, got state %d", a.state)
	}
}

func TestSparklineAndProgress(t *testing.T) {
	if got := ProgressBar(0.5, 10); got != "[=====-----]" {
		t.Errorf("unexpected bar %q", got)
	}
	if got := ProgressBar(2, 4); got != "[====]" {
		t.Errorf("expected clamped bar, got %q", got)
	}
	if SparklineChart(nil, 5) != "─────" {
		t.Error("expected flat line for empty series")
	}
	if GradientText("", "#000000", "#ffffff") != "" {
		t.Error("expected empty gradient text")
	}
}
