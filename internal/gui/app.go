package gui

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/editor"
	"github.com/san-kum/verletsim/internal/experiment"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColPanel   = rl.NewColor(24, 24, 28, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColLink    = rl.NewColor(120, 120, 120, 255)
	ColBounds  = rl.NewColor(40, 40, 40, 255)
)

const (
	panelWidth = 220
	viewHeight = 800

	telemetryLen = 200
)

// App is the raylib authoring window around an editor.Editor.
type App struct {
	ed    *editor.Editor
	watch *editor.FrameWatch

	// scale maps world units to screen pixels inside the view.
	scale         float32
	viewW, viewH  int32
	width, height int32

	telemetry []float64
	err       error
}

func NewApp(ed *editor.Editor) *App {
	b := ed.Config().Bounds()
	w, h := b.Max.X-b.Min.X, b.Max.Y-b.Min.Y
	scale := float32(viewHeight / h)
	viewW := int32(math.Ceil(w * float64(scale)))

	return &App{
		ed: ed,
		watch: &editor.FrameWatch{
			Target:    ed.Config().Engine.FrameRate,
			Tolerance: 0.1,
			Interval:  time.Second,
		},
		scale:     scale,
		viewW:     viewW,
		viewH:     viewHeight,
		width:     viewW + panelWidth,
		height:    viewHeight,
		telemetry: make([]float64, 0, telemetryLen),
	}
}

// Run opens the window and blocks until it is closed.
func Run(cfg *config.Config, reg *experiment.Registry) error {
	ed, err := editor.NewEditor(cfg, reg)
	if err != nil {
		return err
	}
	app := NewApp(ed)

	rl.InitWindow(app.width, app.height, "verletsim")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(math.Round(cfg.Engine.FrameRate)))
	rl.SetExitKey(0)

	app.RunLoop()
	return nil
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()
	}
}

// screenToWorld converts a point inside the view to world coordinates.
func (a *App) screenToWorld(p rl.Vector2) r2.Vec {
	b := a.ed.Config().Bounds()
	return r2.Vec{X: b.Min.X + float64(p.X/a.scale), Y: b.Min.Y + float64(p.Y/a.scale)}
}

func (a *App) worldToScreen(p r2.Vec) rl.Vector2 {
	b := a.ed.Config().Bounds()
	return rl.NewVector2(float32(p.X-b.Min.X)*a.scale, float32(p.Y-b.Min.Y)*a.scale)
}

func (a *App) Update() {
	if rl.IsKeyPressed(rl.KeySpace) {
		a.ed.Running = !a.ed.Running
	}
	if rl.IsKeyPressed(rl.KeyO) {
		a.ed.Arm(editor.ToolObject)
	}
	if rl.IsKeyPressed(rl.KeyL) {
		a.ed.Arm(editor.ToolLink)
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.setErr(a.ed.SetMode(a.ed.Mode))
	}

	mouse := rl.GetMousePosition()
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) && mouse.X < float32(a.viewW) {
		a.setErr(a.ed.Click(a.screenToWorld(mouse)))
	}

	if err := a.ed.Step(); err != nil {
		a.ed.Running = false
		a.setErr(err)
	}

	e := a.ed.Simulator().Engine()
	if a.ed.Running {
		a.watch.Observe(float64(rl.GetFPS()), e.NumParticles(), time.Now())
		if len(a.telemetry) == telemetryLen {
			a.telemetry = a.telemetry[1:]
		}
		a.telemetry = append(a.telemetry, kineticEnergy(e))
	}
}

func (a *App) setErr(err error) {
	if err == nil {
		return
	}
	a.err = err
	slog.Error("editor", "err", err)
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	a.drawWorld()
	a.drawPanel()
	a.drawTelemetry()

	rl.EndDrawing()
}

// drawPanel lays out the authoring controls down the right edge.
func (a *App) drawPanel() {
	x := float32(a.viewW)
	rl.DrawRectangle(a.viewW, 0, panelWidth, a.height, ColPanel)

	px, py := x+15, float32(15)
	rl.DrawText("verletsim", int32(px), int32(py), 24, ColSelect)
	py += 40

	rl.DrawText("Mode", int32(px), int32(py), 14, ColText)
	py += 18
	mode := gui.ComboBox(rl.Rectangle{X: px, Y: py, Width: 190, Height: 28}, comboText(), int32(a.ed.Mode))
	if int(mode) != a.ed.Mode {
		a.setErr(a.ed.SetMode(int(mode)))
	}
	py += 45

	if gui.Button(rl.Rectangle{X: px, Y: py, Width: 190, Height: 30}, toolLabel(a.ed.Tool == editor.ToolObject, "Create Object")) {
		a.ed.Arm(editor.ToolObject)
	}
	py += 38
	a.ed.Fixed = gui.CheckBox(rl.Rectangle{X: px, Y: py, Width: 20, Height: 20}, "Fixed", a.ed.Fixed)
	py += 35

	if gui.Button(rl.Rectangle{X: px, Y: py, Width: 190, Height: 30}, toolLabel(a.ed.Tool == editor.ToolLink, "Create Link")) {
		a.ed.Arm(editor.ToolLink)
	}
	py += 45

	a.ed.Running = gui.Toggle(rl.Rectangle{X: px, Y: py, Width: 190, Height: 30}, toggleText(a.ed.Running, "Running", "Run"), a.ed.Running)
	py += 45

	if gui.Button(rl.Rectangle{X: px, Y: py, Width: 190, Height: 30}, "Reset") {
		a.setErr(a.ed.SetMode(a.ed.Mode))
	}
	py += 50

	e := a.ed.Simulator().Engine()
	sub := gui.SliderBar(rl.Rectangle{X: px + 40, Y: py, Width: 110, Height: 20}, "sub", fmt.Sprintf("%d", e.SubSteps()), float32(e.SubSteps()), 1, 16)
	if n := int(math.Round(float64(sub))); n != e.SubSteps() {
		a.setErr(e.SetSubSteps(n))
	}
	py += 40

	lines := []string{
		fmt.Sprintf("particles  %d", e.NumParticles()),
		fmt.Sprintf("links      %d", e.NumLinks()),
		fmt.Sprintf("time       %.2fs", a.ed.Simulator().Time()),
		fmt.Sprintf("tool       %s", a.ed.Tool),
		fmt.Sprintf("fps        %d", rl.GetFPS()),
	}
	for _, l := range lines {
		rl.DrawText(l, int32(px), int32(py), 14, ColText)
		py += 20
	}

	if a.err != nil {
		rl.DrawText(a.err.Error(), int32(px), int32(py+10), 12, rl.Red)
	}
	rl.DrawText("[SPACE] RUN  [O] OBJECT  [L] LINK  [R] RESET", 15, a.height-20, 12, ColTextDim)
}

func comboText() string {
	names := make([]string, len(editor.Modes))
	for i, m := range editor.Modes {
		names[i] = strings.ToUpper(m[:1]) + m[1:]
	}
	return strings.Join(names, ";")
}

func toolLabel(active bool, label string) string {
	if active {
		return "> " + label
	}
	return label
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}

// drawTelemetry plots recent kinetic energy along the bottom of the view.
func (a *App) drawTelemetry() {
	if len(a.telemetry) < 2 {
		return
	}

	rectX, rectY := float32(30), float32(a.viewH-100)
	width, height := float32(300), float32(60)

	lo, hi := a.telemetry[0], a.telemetry[0]
	for _, v := range a.telemetry {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	points := make([]rl.Vector2, len(a.telemetry))
	for i, val := range a.telemetry {
		px := rectX + float32(i)/float32(len(a.telemetry))*width
		norm := float32((val - lo) / (hi - lo))
		points[i] = rl.NewVector2(px, rectY+height-norm*height)
	}

	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText(fmt.Sprintf("KE %.2e", a.telemetry[len(a.telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}
