// Package config loads the JSON scene description of a render.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/soniakeys/unit"

	"github.com/echoflaresat/blackhole/colors"
	"github.com/echoflaresat/blackhole/geodesic"
	"github.com/echoflaresat/blackhole/rays"
	"github.com/echoflaresat/blackhole/spacetime"
	"github.com/echoflaresat/blackhole/vectors"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Integrator kinds.
const (
	IntegratorNative = "native"
	IntegratorExec   = "exec"
)

type Output struct {
	Height int    `json:"height"`
	Path   string `json:"path"`
}

type View struct {
	// BaseDeg is added to the longitude of every output pixel.
	BaseDeg   *float64   `json:"baseDeg,omitempty"`
	Boresight [3]float64 `json:"boresight"`
}

type World struct {
	ID        int     `json:"id"`
	Image     string  `json:"image"`
	OffsetDeg float64 `json:"offsetDeg"`
}

type Scene struct {
	Metric    string  `json:"metric"`
	Rs        float64 `json:"rs"`
	R0        float64 `json:"r0"`
	FovDeg    float64 `json:"fovDeg"`
	Rays      int     `json:"rays"`
	Emission  string  `json:"emission,omitempty"`
	Length    float64 `json:"length"`
	Step      float64 `json:"step,omitempty"`
	Snapshots int     `json:"snapshots,omitempty"`
}

type Integrator struct {
	Kind   string `json:"kind,omitempty"`
	Binary string `json:"binary,omitempty"`
	Source string `json:"source,omitempty"`
}

type Config struct {
	Output     Output     `json:"output"`
	View       View       `json:"view"`
	Worlds     []World    `json:"worlds"`
	Scene      Scene      `json:"scene"`
	Integrator Integrator `json:"integrator"`
	// Horizon is the RGB colour of captured pixels.
	Horizon [3]float64 `json:"horizon"`
	Workers int        `json:"workers,omitempty"`
}

// Default values
const (
	Height     = 1024
	OutputPath = "black_hole.png"
	BaseDeg    = 180.0
	Metric     = "schwarzschild"
	Rs         = 1.0
	R0         = 15.0
	FovDeg     = 180.0
	Rays       = 500
	Length     = 300.0
	Snapshots  = 1000

	// ExecStep suits the external integrator, NativeStep the in-process one.
	ExecStep   = 5e-5
	NativeStep = 1e-2
)

// Load reads a configuration file, fills in defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("loaded config", "path", path, "metric", cfg.Scene.Metric, "rays", cfg.Scene.Rays, "height", cfg.Output.Height)
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Output.Height <= 0 {
		c.Output.Height = Height
	}
	if c.Output.Path == "" {
		c.Output.Path = OutputPath
	}
	if c.View.BaseDeg == nil {
		base := BaseDeg
		c.View.BaseDeg = &base
	}
	if c.View.Boresight == [3]float64{} {
		c.View.Boresight = [3]float64{1, 0, 0}
	}
	s := &c.Scene
	if s.Metric == "" {
		s.Metric = Metric
	}
	if s.Rs == 0 {
		s.Rs = Rs
	}
	if s.R0 == 0 {
		s.R0 = R0
	}
	if s.FovDeg == 0 {
		s.FovDeg = FovDeg
	}
	if s.Rays == 0 {
		s.Rays = Rays
	}
	if s.Emission == "" {
		s.Emission = rays.SpacingEqual.String()
	}
	if s.Length == 0 {
		s.Length = Length
	}
	if s.Snapshots == 0 {
		s.Snapshots = Snapshots
	}
	if c.Integrator.Kind == "" {
		c.Integrator.Kind = IntegratorNative
	}
	if s.Step == 0 {
		s.Step = NativeStep
		if c.Integrator.Kind == IntegratorExec {
			s.Step = ExecStep
		}
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks a configuration with defaults applied.
func (c *Config) Validate() error {
	if c.Output.Height <= 0 {
		return invalid("output height %d", c.Output.Height)
	}
	if c.View.Boresight == [3]float64{} {
		return invalid("boresight must not be zero")
	}
	if len(c.Worlds) == 0 {
		return invalid("no worlds")
	}
	seen := make(map[int]bool)
	for _, w := range c.Worlds {
		if w.ID < spacetime.AreaExterior || w.ID > spacetime.AreaWhite {
			return invalid("world id %d not in [1, 4]", w.ID)
		}
		if seen[w.ID] {
			return invalid("duplicate world %d", w.ID)
		}
		seen[w.ID] = true
		if w.Image == "" {
			return invalid("world %d has no image", w.ID)
		}
	}

	s := c.Scene
	if _, err := spacetime.ParseKind(s.Metric); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := rays.ParseSpacing(s.Emission); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if !(s.Rs > 0) || !(s.R0 > 0) {
		return invalid("radii must be positive (rs %v, r0 %v)", s.Rs, s.R0)
	}
	// only the Kruskal chart reaches inside the horizon
	if space, err := s.Space(); err == nil && space.Kind() != spacetime.KindKruskal && s.R0 <= space.Horizon() {
		return invalid("emission radius %v inside the %v horizon at %v", s.R0, space.Kind(), space.Horizon())
	}
	if !(s.FovDeg > 0 && s.FovDeg <= 360) {
		return invalid("field of view %v° not in (0, 360]", s.FovDeg)
	}
	if s.Rays < 2 {
		return invalid("need at least 2 rays, got %d", s.Rays)
	}
	if !(s.Length > 0) || !(s.Step > 0) || s.Step > s.Length {
		return invalid("integration length %v and step %v", s.Length, s.Step)
	}
	if s.Snapshots < 0 {
		return invalid("snapshots %d", s.Snapshots)
	}

	switch c.Integrator.Kind {
	case IntegratorNative:
	case IntegratorExec:
		if c.Integrator.Binary == "" {
			return invalid("exec integrator needs a binary")
		}
	default:
		return invalid("unknown integrator %q", c.Integrator.Kind)
	}

	for _, v := range c.Horizon {
		if v < 0 || v > 1 {
			return invalid("horizon colour %v outside [0, 1]", c.Horizon)
		}
	}
	if c.Workers < 0 {
		return invalid("workers %d", c.Workers)
	}
	return nil
}

// Base returns the base longitude in radians.
func (v View) Base() float64 {
	if v.BaseDeg == nil {
		return 0
	}
	return unit.AngleFromDeg(*v.BaseDeg).Rad()
}

// Axis returns the boresight as a vector.
func (v View) Axis() vectors.Vec3 {
	return vectors.Vec3{X: v.Boresight[0], Y: v.Boresight[1], Z: v.Boresight[2]}
}

// Offset returns the longitude offset of the world's sky in radians.
func (w World) Offset() float64 {
	return unit.AngleFromDeg(w.OffsetDeg).Rad()
}

// Fov returns the field of view of the ray fan in radians.
func (s Scene) Fov() float64 {
	return unit.AngleFromDeg(s.FovDeg).Rad()
}

// Space builds the metric of the scene.
func (s Scene) Space() (spacetime.Space, error) {
	kind, err := spacetime.ParseKind(s.Metric)
	if err != nil {
		return nil, err
	}
	return spacetime.New(kind, s.Rs)
}

// Fan emits the scene's initial rays in space.
func (s Scene) Fan(space spacetime.Space) ([]rays.Ray, error) {
	spacing, err := rays.ParseSpacing(s.Emission)
	if err != nil {
		return nil, err
	}
	return rays.Fan(space, s.R0, s.Fov(), s.Rays, spacing), nil
}

// Params returns the integration settings. The horizon radius is the only
// metric argument.
func (s Scene) Params() geodesic.Params {
	return geodesic.Params{
		Length:    s.Length,
		Step:      s.Step,
		Snapshots: s.Snapshots,
		Args:      []float64{s.Rs},
	}
}

// HorizonColor returns the opaque colour of captured pixels.
func (c *Config) HorizonColor() colors.Color4 {
	return colors.RGB(c.Horizon[0], c.Horizon[1], c.Horizon[2])
}

// NewIntegrator returns the configured integrator.
func (c *Config) NewIntegrator(log *slog.Logger) geodesic.Integrator {
	if c.Integrator.Kind == IntegratorExec {
		return geodesic.Exec{Binary: c.Integrator.Binary, Source: c.Integrator.Source, Logger: log}
	}
	return geodesic.Native{Workers: c.Workers, Logger: log}
}
