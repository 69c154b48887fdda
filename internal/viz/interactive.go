package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/experiment"
)

var (
	menuTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSubtle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuValue    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff")).Bold(true)
	menuIdle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuKey      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

var sceneInfo = map[string]string{
	"free":      "empty world",
	"collision": "spawner stream",
	"cloth":     "pinned mesh",
	"chain":     "hanging rope",
	"pile":      "seeded heap",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// tunable is one editable field of the configuration screen.
type tunable struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
	step float64
}

var tunables = []tunable{
	{"sub_steps", func(c *config.Config) float64 { return float64(c.Engine.SubSteps) }, func(c *config.Config, v float64) { c.Engine.SubSteps = max(1, int(v)) }, 1},
	{"radius", func(c *config.Config) float64 { return c.Particle.Radius }, func(c *config.Config, v float64) { c.Particle.Radius = max(0.5, v) }, 0.5},
	{"rigidness", func(c *config.Config) float64 { return c.Particle.Rigidness }, func(c *config.Config, v float64) { c.Particle.Rigidness = min(1, max(0, v)) }, 0.1},
	{"stiffness", func(c *config.Config) float64 { return c.Link.Stiffness }, func(c *config.Config, v float64) { c.Link.Stiffness = min(1, max(0.05, v)) }, 0.05},
	{"gravity_y", func(c *config.Config) float64 { return c.Engine.GravityY }, func(c *config.Config, v float64) { c.Engine.GravityY = v }, 50},
}

// App is the scene picker: choose a scene and preset, tune a few
// parameters, then watch it live.
type App struct {
	reg     *experiment.Registry
	state   int
	cursor  int
	scenes  []string
	presets []string
	preset  int
	cfg     *config.Config
	param   int
	live    Model
	err     error
}

func NewApp(reg *experiment.Registry) App {
	return App{reg: reg, state: stateMenu, scenes: reg.ListScenes()}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateSim {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = stateConfig
			return a, nil
		}
		live, cmd := a.live.Update(msg)
		a.live = live.(Model)
		return a, cmd
	}
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch a.state {
	case stateMenu:
		return a.menuKey(k)
	case stateConfig:
		return a.configKey(k)
	}
	return a, nil
}

func (a App) menuKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.scenes)-1 {
			a.cursor++
		}
	case "enter", " ":
		name := a.scenes[a.cursor]
		a.presets = append([]string{"default"}, config.ListPresets(name)...)
		a.preset, a.param = 0, 0
		a.loadPreset(name)
		a.state = stateConfig
	}
	return a, nil
}

func (a *App) loadPreset(scene string) {
	cfg := config.GetPreset(scene, a.presets[a.preset])
	if cfg == nil {
		cfg = config.DefaultConfig()
		cfg.Scene.Name = scene
	}
	a.cfg = cfg
	a.err = nil
}

func (a App) configKey(msg tea.KeyMsg) (App, tea.Cmd) {
	t := tunables[a.param]
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "q", "esc":
		a.state = stateMenu
	case "up", "k":
		if a.param > 0 {
			a.param--
		}
	case "down", "j":
		if a.param < len(tunables)-1 {
			a.param++
		}
	case "left", "h":
		t.set(a.cfg, t.get(a.cfg)-t.step)
	case "right", "l":
		t.set(a.cfg, t.get(a.cfg)+t.step)
	case "tab":
		a.preset = (a.preset + 1) % len(a.presets)
		a.loadPreset(a.cfg.Scene.Name)
	case "s", "enter":
		return a.start()
	}
	return a, nil
}

func (a App) start() (App, tea.Cmd) {
	if err := a.cfg.Validate(); err != nil {
		a.err = err
		return a, nil
	}
	live, err := NewModel(a.cfg, a.reg)
	if err != nil {
		a.err = err
		return a, nil
	}
	a.live = live
	a.state = stateSim
	return a, a.live.Init()
}

func (a App) View() string {
	switch a.state {
	case stateMenu:
		return a.viewMenu()
	case stateConfig:
		return a.viewConfig()
	case stateSim:
		return a.live.View()
	}
	return ""
}

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(menuKey.Render(pairs[i]) + menuIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (a App) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("VERLETSIM") + "\n    " + menuSubtle.Render("particle physics sandbox") + "\n    " + menuSubtle.Render("─────────────────────────") + "\n\n")
	for i, name := range a.scenes {
		desc := sceneInfo[name]
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", menuCursor.Render("▸"), menuSelected.Render(fmt.Sprintf("%-12s", name)), menuValue.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", menuIdle.Render(fmt.Sprintf("  %-12s", name)), menuIdle.Render(desc)))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (a App) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(a.cfg.Scene.Name)) + "\n    " + menuSubtle.Render("preset: "+a.presets[a.preset]) + "\n    " + menuSubtle.Render("─────────────────────────") + "\n\n")
	for i, t := range tunables {
		val := fmt.Sprintf("%8.2f", t.get(a.cfg))
		if i == a.param {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", menuCursor.Render("▸"), menuSelected.Render(fmt.Sprintf("%-10s", t.name)), menuValue.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", menuIdle.Render(fmt.Sprintf("  %-10s", t.name)), menuIdle.Render(val)))
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "h/l", "adjust", "tab", "preset", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// RunInteractive starts the scene picker in the alternate screen.
func RunInteractive(reg *experiment.Registry) error {
	_, err := tea.NewProgram(NewApp(reg), tea.WithAltScreen()).Run()
	return err
}
