package scene

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Config holds the user adjustable appearance and camera parameters.
// The zero value is not a usable configuration; start from DefaultConfig.
type Config struct {
	Color     string  `json:"color"`
	Opacity   float64 `json:"opacity"`
	Ambient   float64 `json:"ambient"`
	Diffuse   float64 `json:"diffuse"`
	Roughness float64 `json:"roughness"`
	Specular  float64 `json:"specular"`
	// Eye is the camera position relative to the scene center.
	Eye r3.Vec `json:"eye"`
}

// DefaultConfig returns the configuration of a fresh session.
func DefaultConfig() Config {
	return Config{
		Color:     DefaultColor,
		Opacity:   1.0,
		Ambient:   0.5,
		Diffuse:   1.0,
		Roughness: 0.5,
		Specular:  0.2,
		Eye:       r3.Vec{X: -1.2, Y: -1.2, Z: 1.2},
	}
}

// Control names accepted by Config.Set.
const (
	ControlColor     = "color"
	ControlOpacity   = "opacity"
	ControlAmbient   = "ambient"
	ControlDiffuse   = "diffuse"
	ControlRoughness = "roughness"
	ControlSpecular  = "specular"
	ControlEyeX      = "eye_x"
	ControlEyeY      = "eye_y"
	ControlEyeZ      = "eye_z"
)

// Control describes one sidebar input.
type Control struct {
	Name  string
	Label string
	// Bounded controls are sliders clamped to [Min, Max]. Unbounded
	// controls are free numeric inputs.
	Bounded  bool
	Min, Max float64
	Step     float64
	// Decimals is the number of decimal places shown.
	Decimals int
}

var controls = []Control{
	{Name: ControlOpacity, Label: "Opacity", Bounded: true, Max: 1, Step: 0.05, Decimals: 2},
	{Name: ControlAmbient, Label: "Ambient", Bounded: true, Max: 1, Step: 0.05, Decimals: 2},
	{Name: ControlDiffuse, Label: "Diffuse", Bounded: true, Max: 1, Step: 0.05, Decimals: 2},
	{Name: ControlRoughness, Label: "Roughness", Bounded: true, Max: 1, Step: 0.05, Decimals: 2},
	{Name: ControlSpecular, Label: "Specular", Bounded: true, Max: 1, Step: 0.05, Decimals: 2},
	{Name: ControlEyeX, Label: "Camera eye X", Step: 0.1, Decimals: 1},
	{Name: ControlEyeY, Label: "Camera eye Y", Step: 0.1, Decimals: 1},
	{Name: ControlEyeZ, Label: "Camera eye Z", Step: 0.1, Decimals: 1},
}

// Controls returns the numeric controls in display order. The color
// control is described by Palette.
func Controls() []Control {
	return append([]Control(nil), controls...)
}

// Value returns the current value of numeric control name formatted with
// the control's display precision.
func (c Config) Value(name string) (string, error) {
	ctl, ok := lookupControl(name)
	if !ok {
		return "", fmt.Errorf("unknown control %q", name)
	}
	return strconv.FormatFloat(*c.field(name), 'f', ctl.Decimals, 64), nil
}

// Set updates the single field named by control to value. Bounded values
// are clamped to their range. On error the configuration is left unchanged.
func (c *Config) Set(control, value string) error {
	if control == ControlColor {
		name := strings.ToLower(strings.TrimSpace(value))
		if _, ok := LookupColor(name); !ok {
			return fmt.Errorf("color %q not in palette", value)
		}
		c.Color = name
		return nil
	}
	ctl, ok := lookupControl(control)
	if !ok {
		return fmt.Errorf("unknown control %q", control)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fmt.Errorf("control %s: %w", control, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("control %s: value must be finite", control)
	}
	if ctl.Bounded {
		v = math.Max(ctl.Min, math.Min(ctl.Max, v))
	}
	*c.field(control) = v
	return nil
}

func (c *Config) field(control string) *float64 {
	switch control {
	case ControlOpacity:
		return &c.Opacity
	case ControlAmbient:
		return &c.Ambient
	case ControlDiffuse:
		return &c.Diffuse
	case ControlRoughness:
		return &c.Roughness
	case ControlSpecular:
		return &c.Specular
	case ControlEyeX:
		return &c.Eye.X
	case ControlEyeY:
		return &c.Eye.Y
	case ControlEyeZ:
		return &c.Eye.Z
	}
	panic("unreachable control " + control)
}

func lookupControl(name string) (Control, bool) {
	for _, ctl := range controls {
		if ctl.Name == name {
			return ctl, true
		}
	}
	return Control{}, false
}
