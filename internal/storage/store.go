package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/san-kum/verletsim/internal/config"
	"github.com/san-kum/verletsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	framesFile   = "frames.csv"
	linksFile    = "links.csv"
	seriesFile   = "series.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Preset    string             `json:"preset,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	FrameRate float64            `json:"frame_rate"`
	SubSteps  int                `json:"sub_steps"`
	Duration  float64            `json:"duration"`
	Steps     int                `json:"steps"`
	Particles int                `json:"particles"`
	Links     int                `json:"links"`
	Config    *config.Config     `json:"config"`
	Metrics   map[string]float64 `json:"metrics"`
}

// FrameRow is one particle of one recorded frame.
type FrameRow struct {
	Frame    int     `csv:"frame"`
	Time     float64 `csv:"time"`
	Particle int     `csv:"particle"`
	X        float64 `csv:"x"`
	Y        float64 `csv:"y"`
	Radius   float64 `csv:"radius"`
	Fixed    bool    `csv:"fixed"`
	Color    string  `csv:"color"`
}

type LinkRow struct {
	Frame  int `csv:"frame"`
	First  int `csv:"first"`
	Second int `csv:"second"`
}

// SeriesRow is one sample of a named series, in long format.
type SeriesRow struct {
	Index int     `csv:"index"`
	Name  string  `csv:"name"`
	Value float64 `csv:"value"`
}

// Save writes metadata, frames, links and series under a new run directory.
func (s *Store) Save(cfg *config.Config, preset string, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", cfg.Scene.Name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Scene:     cfg.Scene.Name,
		Preset:    preset,
		Timestamp: now,
		Seed:      cfg.Scene.Seed,
		FrameRate: cfg.Engine.FrameRate,
		SubSteps:  cfg.Engine.SubSteps,
		Duration:  cfg.Run.Duration,
		Steps:     result.StepsTaken,
		Config:    cfg,
		Metrics:   result.Metrics,
	}
	if n := len(result.Frames); n > 0 {
		meta.Particles = len(result.Frames[n-1].Particles)
		meta.Links = len(result.Frames[n-1].Links)
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, framesFile), frameRows(result.Frames)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, linksFile), linkRows(result.Frames)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, seriesFile), seriesRows(result.Series)); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}

	return &meta, nil
}

// LoadFrames rebuilds the recorded frames of a run.
func (s *Store) LoadFrames(runID string) ([]sim.Frame, error) {
	var rows []FrameRow
	if err := s.readCSV(runID, framesFile, &rows); err != nil {
		return nil, err
	}
	var links []LinkRow
	if err := s.readCSV(runID, linksFile, &links); err != nil {
		return nil, err
	}

	frames := make([]sim.Frame, 0)
	pos := make(map[int]int)
	for _, r := range rows {
		k, ok := pos[r.Frame]
		if !ok {
			k = len(frames)
			pos[r.Frame] = k
			frames = append(frames, sim.Frame{Index: r.Frame, Time: r.Time})
		}
		frames[k].Particles = append(frames[k].Particles, sim.ParticleState{
			X:      r.X,
			Y:      r.Y,
			Radius: r.Radius,
			Fixed:  r.Fixed,
			Color:  parseColor(r.Color),
		})
	}
	for _, l := range links {
		if k, ok := pos[l.Frame]; ok {
			frames[k].Links = append(frames[k].Links, [2]int{l.First, l.Second})
		}
	}

	return frames, nil
}

func (s *Store) LoadSeries(runID string) (map[string][]float64, error) {
	var rows []SeriesRow
	if err := s.readCSV(runID, seriesFile, &rows); err != nil {
		return nil, err
	}

	series := make(map[string][]float64)
	for _, r := range rows {
		series[r.Name] = append(series[r.Name], r.Value)
	}
	return series, nil
}

func (s *Store) readCSV(runID, name string, out interface{}) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	defer file.Close()

	if err := gocsv.Unmarshal(file, out); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return nil
		}
		return fmt.Errorf("decode %s/%s: %w", runID, name, err)
	}
	return nil
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.Marshal(rows, file)
}

func writeJSON(path string, v interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func frameRows(frames []sim.Frame) []*FrameRow {
	rows := make([]*FrameRow, 0)
	for _, f := range frames {
		for i, p := range f.Particles {
			rows = append(rows, &FrameRow{
				Frame:    f.Index,
				Time:     f.Time,
				Particle: i,
				X:        p.X,
				Y:        p.Y,
				Radius:   p.Radius,
				Fixed:    p.Fixed,
				Color:    formatColor(p.Color),
			})
		}
	}
	return rows
}

func linkRows(frames []sim.Frame) []*LinkRow {
	rows := make([]*LinkRow, 0)
	for _, f := range frames {
		for _, l := range f.Links {
			rows = append(rows, &LinkRow{Frame: f.Index, First: l[0], Second: l[1]})
		}
	}
	return rows
}

func seriesRows(series map[string][]float64) []*SeriesRow {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]*SeriesRow, 0)
	for _, name := range names {
		for i, v := range series[name] {
			rows = append(rows, &SeriesRow{Index: i, Name: name, Value: v})
		}
	}
	return rows
}

func formatColor(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}

func parseColor(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
