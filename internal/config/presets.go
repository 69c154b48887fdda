package config

import (
	"math"
	"sort"
)

// Presets holds overrides applied on top of DefaultConfig, keyed by scene.
var Presets = map[string]map[string]func(*Config){
	"collision": {
		"stream": func(c *Config) {},
		"fountain": func(c *Config) {
			c.Scene.Spawner.Max = 400
			c.Scene.Spawner.Delay = 0.02
			c.Scene.Spawner.Speed = 800
			c.Scene.Spawner.Angle = -math.Pi / 3
			c.Run.Duration = 20
		},
		"soft": func(c *Config) {
			c.Scene.Spawner.Max = 200
			c.Particle.Rigidness = 0.3
			c.Engine.Boundary = "pushback"
		},
	},
	"cloth": {
		"curtain": func(c *Config) {},
		"fine": func(c *Config) {
			c.Scene.Cloth.Columns = 45
			c.Scene.Cloth.Rows = 30
			c.Scene.Cloth.Spacing = 10
			c.Particle.Radius = 3
			c.Engine.SubSteps = 8
		},
		"elastic": func(c *Config) {
			c.Link.Spring = true
			c.Link.Stiffness = 0.3
		},
	},
	"chain": {
		"rope": func(c *Config) {},
		"spring": func(c *Config) {
			c.Link.Spring = true
			c.Link.Stiffness = 0.5
			c.Scene.Chain.Length = 30
		},
	},
	"pile": {
		"sparse": func(c *Config) { c.Scene.Count = 100 },
		"dense": func(c *Config) {
			c.Scene.Count = 1500
			c.Engine.SubSteps = 8
		},
		"pushback": func(c *Config) {
			c.Engine.Boundary = "pushback"
			c.Particle.Rigidness = 0.8
		},
	},
}

// GetPreset returns a fresh config for scene with the named overrides applied.
func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	apply, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Scene.Name = scene
	apply(cfg)
	return cfg
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func PresetScenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
