// SPDX-License-Identifier: MIT

// Package settings holds the live-tunable spectrum and wheel parameters.
//
// Every field may change while the display runs. The tick loop reads a copy
// once per pass; writers (the settings socket, the config watcher and the
// terminal key bindings) go through Store.Update.
package settings

import (
	"errors"
	"fmt"

	"audiowheel/internal/analysis"
	"audiowheel/pkg/bitint"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Limits enforced by Validate. They mirror the ranges offered by the
// interactive controls.
const (
	MinColumnPower    = 5
	MaxColumnPower    = 10
	MinColumnWidth    = 1.0
	MaxColumnWidth    = 20.0
	MaxRadius         = 1000.0
	MinSectionCount   = 1
	MaxSectionCount   = 10
	MinMaxHeight      = 2.0
	MaxMaxHeight      = 1000.0
	MaxRotationSpeed  = 0.5
	MaxScaleStrength  = 20000.0
	MinScaleThreshold = 0.55
	MaxScaleThreshold = 10.0
	MinHDRMultiplier  = 1.0
	MaxHDRMultiplier  = 10.0
	MaxSamplingRate   = 192000.0
	MaxTransitionStep = 0.5
)

// ColorScheme is one of the two color identities a column can take. When
// Transition is set the color ping-pongs between Primary and Secondary by
// TransitionSpeed per tick; a negative speed starts in reverse.
type ColorScheme struct {
	Primary         string  `yaml:"primary" json:"primary"`
	Secondary       string  `yaml:"secondary" json:"secondary"`
	PrimaryHDR      float64 `yaml:"primary_hdr" json:"primaryHdr"`
	SecondaryHDR    float64 `yaml:"secondary_hdr" json:"secondaryHdr"`
	Transition      bool    `yaml:"transition" json:"transition"`
	TransitionSpeed float64 `yaml:"transition_speed" json:"transitionSpeed"`
}

// Colors parses the primary and secondary hex colors.
func (c ColorScheme) Colors() (primary, secondary colorful.Color, err error) {
	if primary, err = colorful.Hex(c.Primary); err != nil {
		return primary, secondary, fmt.Errorf("primary color %q: %w", c.Primary, err)
	}
	if secondary, err = colorful.Hex(c.Secondary); err != nil {
		return primary, secondary, fmt.Errorf("secondary color %q: %w", c.Secondary, err)
	}
	return primary, secondary, nil
}

func (c ColorScheme) validate(name string) error {
	if _, _, err := c.Colors(); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidSettings, name, err)
	}
	if c.PrimaryHDR < MinHDRMultiplier || c.PrimaryHDR > MaxHDRMultiplier ||
		c.SecondaryHDR < MinHDRMultiplier || c.SecondaryHDR > MaxHDRMultiplier {
		return fmt.Errorf("%w: %s HDR multipliers must be in [%.0f, %.0f]",
			ErrInvalidSettings, name, MinHDRMultiplier, MaxHDRMultiplier)
	}
	if c.TransitionSpeed < -MaxTransitionStep || c.TransitionSpeed > MaxTransitionStep {
		return fmt.Errorf("%w: %s transition speed %f outside [-%.1f, %.1f]",
			ErrInvalidSettings, name, c.TransitionSpeed, MaxTransitionStep, MaxTransitionStep)
	}
	return nil
}

// Spectrum is the full set of analysis and wheel parameters.
type Spectrum struct {
	LowerFrequencyLimit float64                 `yaml:"lower_frequency_limit" json:"lowerFrequencyLimit"`
	UpperFrequencyLimit float64                 `yaml:"upper_frequency_limit" json:"upperFrequencyLimit"`
	SamplingRate        float64                 `yaml:"sampling_rate" json:"samplingRate"`
	WindowFunction      analysis.WindowFunction `yaml:"window_function" json:"windowFunction"`
	TransformLength     int                     `yaml:"transform_length" json:"transformLength"`

	// ColumnCount is derived from ColumnCountPowerOfTwo by Normalize and is
	// never read from input.
	ColumnCountPowerOfTwo int     `yaml:"column_count_power_of_two" json:"columnCountPowerOfTwo"`
	ColumnCount           int     `yaml:"-" json:"columnCount"`
	ColumnWidth           float64 `yaml:"column_width" json:"columnWidth"`
	Radius                float64 `yaml:"radius" json:"radius"`
	SectionCount          int     `yaml:"section_count" json:"sectionCount"`
	SmoothingRange        int     `yaml:"smoothing_range" json:"smoothingRange"`
	MaxHeight             float64 `yaml:"max_height" json:"maxHeight"`

	RotationSpeed  float64 `yaml:"rotation_speed" json:"rotationSpeed"`
	ScaleStrength  float64 `yaml:"scale_strength" json:"scaleStrength"`
	ScaleThreshold float64 `yaml:"scale_threshold" json:"scaleThreshold"`

	Normal    ColorScheme `yaml:"normal" json:"normal"`
	Highlight ColorScheme `yaml:"highlight" json:"highlight"`
}

// Defaults returns the settings the display starts with.
func Defaults() Spectrum {
	s := Spectrum{
		LowerFrequencyLimit:   20,
		UpperFrequencyLimit:   1555.5,
		SamplingRate:          44100,
		WindowFunction:        analysis.WindowNone,
		TransformLength:       4096,
		ColumnCountPowerOfTwo: 8,
		ColumnWidth:           2.5,
		Radius:                200,
		SectionCount:          1,
		SmoothingRange:        4,
		MaxHeight:             500,
		RotationSpeed:         0.005,
		ScaleStrength:         1000,
		ScaleThreshold:        2,
		Normal: ColorScheme{
			Primary:         "#ffffff",
			Secondary:       "#7f7fff",
			PrimaryHDR:      1,
			SecondaryHDR:    1,
			TransitionSpeed: 0.01,
		},
		Highlight: ColorScheme{
			Primary:         "#ff0000",
			Secondary:       "#ffa500",
			PrimaryHDR:      1,
			SecondaryHDR:    1,
			TransitionSpeed: 0.01,
		},
	}
	s.Normalize()
	return s
}

// Normalize recomputes derived fields and pulls the smoothing range into
// [1, ColumnCount/SectionCount]. It does not fix out of range inputs; that
// is Validate's job.
func (s *Spectrum) Normalize() {
	if s.ColumnCountPowerOfTwo >= 0 && s.ColumnCountPowerOfTwo < 31 {
		s.ColumnCount = bitint.Pow2(s.ColumnCountPowerOfTwo)
	} else {
		s.ColumnCount = 0
	}
	if s.SectionCount >= 1 {
		s.SmoothingRange = min(s.SmoothingRange, s.SegmentWidth())
	}
	s.SmoothingRange = max(s.SmoothingRange, 1)
}

// SegmentWidth is the number of columns computed from spectrum data; the
// remaining columns mirror them.
func (s *Spectrum) SegmentWidth() int {
	if s.SectionCount < 1 {
		return s.ColumnCount
	}
	return max(s.ColumnCount/s.SectionCount, 1)
}

// Validate checks every range. capacity is the sample buffer size the
// transform length is drawn from.
func (s *Spectrum) Validate(capacity int) error {
	if s.LowerFrequencyLimit < 0 || s.LowerFrequencyLimit >= s.UpperFrequencyLimit {
		return fmt.Errorf("%w: frequency range [%g, %g] must satisfy 0 <= lower < upper",
			ErrInvalidSettings, s.LowerFrequencyLimit, s.UpperFrequencyLimit)
	}
	if s.SamplingRate < 2*s.UpperFrequencyLimit+1 || s.SamplingRate > MaxSamplingRate {
		return fmt.Errorf("%w: sampling rate %g must be in [%g, %g]",
			ErrInvalidSettings, s.SamplingRate, 2*s.UpperFrequencyLimit+1, MaxSamplingRate)
	}
	if _, err := s.WindowFunction.MarshalText(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if !bitint.IsPowerOfTwo(s.TransformLength) || s.TransformLength > capacity {
		return fmt.Errorf("%w: transform length %d must be a power of 2 no larger than %d",
			ErrInvalidSettings, s.TransformLength, capacity)
	}
	if s.ColumnCountPowerOfTwo < MinColumnPower || s.ColumnCountPowerOfTwo > MaxColumnPower {
		return fmt.Errorf("%w: column count exponent %d must be in [%d, %d]",
			ErrInvalidSettings, s.ColumnCountPowerOfTwo, MinColumnPower, MaxColumnPower)
	}
	if s.ColumnCount != bitint.Pow2(s.ColumnCountPowerOfTwo) {
		return fmt.Errorf("%w: column count %d does not match exponent %d",
			ErrInvalidSettings, s.ColumnCount, s.ColumnCountPowerOfTwo)
	}
	if s.ColumnWidth < MinColumnWidth || s.ColumnWidth > MaxColumnWidth {
		return fmt.Errorf("%w: column width %g must be in [%g, %g]",
			ErrInvalidSettings, s.ColumnWidth, MinColumnWidth, MaxColumnWidth)
	}
	if s.Radius < 0 || s.Radius > MaxRadius {
		return fmt.Errorf("%w: radius %g must be in [0, %g]", ErrInvalidSettings, s.Radius, MaxRadius)
	}
	if s.SectionCount < MinSectionCount || s.SectionCount > MaxSectionCount {
		return fmt.Errorf("%w: section count %d must be in [%d, %d]",
			ErrInvalidSettings, s.SectionCount, MinSectionCount, MaxSectionCount)
	}
	if s.SmoothingRange < 1 || s.SmoothingRange > s.SegmentWidth() {
		return fmt.Errorf("%w: smoothing range %d must be in [1, %d]",
			ErrInvalidSettings, s.SmoothingRange, s.SegmentWidth())
	}
	if s.MaxHeight < MinMaxHeight || s.MaxHeight > MaxMaxHeight {
		return fmt.Errorf("%w: max height %g must be in [%g, %g]",
			ErrInvalidSettings, s.MaxHeight, MinMaxHeight, MaxMaxHeight)
	}
	if s.RotationSpeed < -MaxRotationSpeed || s.RotationSpeed > MaxRotationSpeed {
		return fmt.Errorf("%w: rotation speed %g must be in [-%g, %g]",
			ErrInvalidSettings, s.RotationSpeed, MaxRotationSpeed, MaxRotationSpeed)
	}
	if s.ScaleStrength < 0 || s.ScaleStrength > MaxScaleStrength {
		return fmt.Errorf("%w: scale strength %g must be in [0, %g]",
			ErrInvalidSettings, s.ScaleStrength, MaxScaleStrength)
	}
	if s.ScaleThreshold < MinScaleThreshold || s.ScaleThreshold > MaxScaleThreshold {
		return fmt.Errorf("%w: scale threshold %g must be in [%g, %g]",
			ErrInvalidSettings, s.ScaleThreshold, MinScaleThreshold, MaxScaleThreshold)
	}
	if err := s.Normal.validate("normal"); err != nil {
		return err
	}
	return s.Highlight.validate("highlight")
}

// AnalysisConfig extracts the analyzer's view of the settings.
func (s *Spectrum) AnalysisConfig() analysis.Config {
	return analysis.Config{
		TransformLength: s.TransformLength,
		SamplingRate:    s.SamplingRate,
		LowerFrequency:  s.LowerFrequencyLimit,
		UpperFrequency:  s.UpperFrequencyLimit,
		Window:          s.WindowFunction,
	}
}
