// Package settings persists the application configuration of the sprite
// player: sheet layout, keying, playback appearance and image provider.
//
// Settings are loaded once at startup and saved on every change through a
// Store. Out-of-range values are clamped to the ranges the controls allow
// rather than rejected.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/sprite"
	"github.com/gogpu/sprite/provider"
)

// Control ranges.
const (
	MinFPS       = 1
	MaxFPS       = 24
	MinThreshold = 10
	MaxThreshold = 250
	MinPadding   = 0
	MaxPadding   = 20
	MinScale     = 0.5
	MaxScale     = 3.0

	MinOutputSize = 64
	MaxOutputSize = 4096
)

// Provider model names.
const (
	ModelGeminiFlash = "gemini-2.5-flash-image"
	ModelGeminiPro   = "gemini-3-pro-image-preview"
	ModelCustom      = "custom"
)

// Settings is the persisted configuration.
type Settings struct {
	Columns    int      `yaml:"columns"`
	Rows       int      `yaml:"rows"`
	FPS        float64  `yaml:"fps"`
	Threshold  float64  `yaml:"threshold"`
	Padding    int      `yaml:"padding"`
	Scale      float64  `yaml:"scale"`
	Background string   `yaml:"background"`
	ChromaKey  string   `yaml:"chroma_key"`
	OutputSize int      `yaml:"output_size"`
	Row        string   `yaml:"row"`
	Provider   Provider `yaml:"provider"`
}

// Provider selects and configures the image generation backend.
type Provider struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"api_key,omitempty"`

	// OpenAI-compatible endpoint, used when Model is "custom".
	CustomURL    string `yaml:"custom_url,omitempty"`
	CustomModel  string `yaml:"custom_model,omitempty"`
	CustomAPIKey string `yaml:"custom_api_key,omitempty"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Columns:    sprite.DefaultColumns,
		Rows:       sprite.DefaultRows,
		FPS:        sprite.DefaultFPS,
		Threshold:  sprite.DefaultThreshold,
		Padding:    sprite.DefaultInset,
		Scale:      sprite.DefaultScale,
		Background: sprite.BackgroundCheckerboard.String(),
		ChromaKey:  sprite.KeyColorHex(sprite.Magenta),
		OutputSize: sprite.DefaultOutputSize,
		Row:        sprite.RowIdle.String(),
		Provider:   Provider{Model: ModelGeminiFlash},
	}
}

// Clamp returns s with every field forced into its valid range. Unknown
// names fall back to their defaults.
func (s Settings) Clamp() Settings {
	d := Default()

	s.Columns = max(s.Columns, 1)
	s.Rows = max(s.Rows, 1)
	s.FPS = clampFloat(s.FPS, MinFPS, MaxFPS, d.FPS)
	s.Threshold = clampFloat(s.Threshold, MinThreshold, MaxThreshold, d.Threshold)
	s.Padding = min(max(s.Padding, MinPadding), MaxPadding)
	s.Scale = clampFloat(s.Scale, MinScale, MaxScale, d.Scale)
	if s.OutputSize <= 0 {
		s.OutputSize = d.OutputSize
	}
	s.OutputSize = min(max(s.OutputSize, MinOutputSize), MaxOutputSize)

	if _, err := sprite.ParseBackground(s.Background); err != nil {
		s.Background = d.Background
	}
	if _, err := sprite.ParseKeyColor(s.ChromaKey); err != nil {
		s.ChromaKey = d.ChromaKey
	}
	if _, err := sprite.ParseAnimationRow(s.Row); err != nil {
		s.Row = d.Row
	}
	switch s.Provider.Model {
	case ModelGeminiFlash, ModelGeminiPro, ModelCustom:
	default:
		s.Provider.Model = d.Provider.Model
	}
	return s
}

func clampFloat(v, lo, hi, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return min(max(v, lo), hi)
}

// Grid returns the sheet layout.
func (s Settings) Grid() sprite.Grid {
	return sprite.Grid{Columns: s.Columns, Rows: s.Rows}.Normalize()
}

// RenderParams returns the playback appearance.
func (s Settings) RenderParams() sprite.RenderParams {
	return sprite.RenderParams{
		FPS:        s.FPS,
		Inset:      s.Padding,
		Scale:      s.Scale,
		OutputSize: s.OutputSize,
	}.Normalize()
}

// Key returns the chroma key. An unparsable key color falls back to magenta.
func (s Settings) Key() sprite.ChromaKey {
	k := sprite.DefaultChromaKey().WithThreshold(s.Threshold)
	if c, err := sprite.ParseKeyColor(s.ChromaKey); err == nil {
		k.Key = c
	}
	return k
}

// BackgroundMode returns the preview background.
func (s Settings) BackgroundMode() sprite.Background {
	bg, _ := sprite.ParseBackground(s.Background)
	return bg
}

// AnimationRow returns the selected row.
func (s Settings) AnimationRow() sprite.AnimationRow {
	r, _ := sprite.ParseAnimationRow(s.Row)
	return r
}

// PlayerOptions returns the Player options described by s.
func (s Settings) PlayerOptions() []sprite.Option {
	return []sprite.Option{
		sprite.WithGrid(s.Grid()),
		sprite.WithRenderParams(s.RenderParams()),
		sprite.WithChromaKey(s.Key()),
	}
}

// ProviderConfig returns the image provider configuration. The custom
// backend uses its own key and endpoint.
func (s Settings) ProviderConfig() provider.Config {
	p := s.Provider
	if p.Model == ModelCustom {
		return provider.Config{
			Model:       ModelCustom,
			APIKey:      p.CustomAPIKey,
			BaseURL:     p.CustomURL,
			CustomModel: p.CustomModel,
		}
	}
	return provider.Config{Model: p.Model, APIKey: p.APIKey}
}

// Load reads settings from path. A missing file yields the defaults; fields
// absent from the file keep their default values.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("settings: load: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("settings: parse %s: %w", path, err)
	}
	return s.Clamp(), nil
}

// Save writes s to path atomically.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("settings: save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// Store holds the current settings and saves them on every change.
//
// Thread safety: Store is safe for concurrent use.
type Store struct {
	path string

	mu   sync.Mutex
	cur  Settings
	subs []func(Settings)
}

// Open loads path into a new Store.
func Open(path string) (*Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, cur: s}, nil
}

// Path returns the file the Store saves to.
func (st *Store) Path() string {
	return st.path
}

// Get returns the current settings.
func (st *Store) Get() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cur
}

// Update applies fn to a copy of the current settings, clamps the result,
// saves it and notifies subscribers. On a save error the in-memory settings
// are left unchanged.
func (st *Store) Update(fn func(*Settings)) (Settings, error) {
	st.mu.Lock()
	next := st.cur
	fn(&next)
	next = next.Clamp()
	if err := Save(st.path, next); err != nil {
		st.mu.Unlock()
		return st.Get(), err
	}
	st.cur = next
	subs := st.subs
	st.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, nil
}

// Subscribe registers fn to be called with the new settings after every
// successful Update.
func (st *Store) Subscribe(fn func(Settings)) {
	st.mu.Lock()
	st.subs = append(st.subs, fn)
	st.mu.Unlock()
}

// Apply pushes s onto a Player. Changing the key or threshold reprocesses
// the current sheet; other fields take effect on the next tick.
func Apply(p *sprite.Player, s Settings) {
	p.SetGrid(s.Grid())
	p.SetRenderParams(s.RenderParams())
	p.SetAnimation(s.AnimationRow())
	if k := s.Key(); k != p.ChromaKey() {
		p.SetChromaKey(k)
	}
}
