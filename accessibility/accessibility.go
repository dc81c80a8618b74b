// Package accessibility carries the per-session accessibility profile.
// Profiles are configuration bundles consumed by rendering and playback
// collaborators. They validate their fields and expose a couple of derived
// computations, but hold no lifecycle state of their own.
package accessibility

import (
	"math"

	"github.com/vaanihq/voicecore/validate"
)

// ContrastLevel selects the rendering contrast setting.
type ContrastLevel string

const (
	ContrastNormal  ContrastLevel = "normal"
	ContrastHigh    ContrastLevel = "high"
	ContrastMaximum ContrastLevel = "maximum"
)

// IsValid reports whether the contrast level is a known value.
func (c ContrastLevel) IsValid() bool {
	switch c {
	case ContrastNormal, ContrastHigh, ContrastMaximum:
		return true
	}
	return false
}

// TextSize is the coarse text size preference, alongside the fine-grained
// multiplier.
type TextSize string

const (
	TextSmall      TextSize = "small"
	TextNormal     TextSize = "normal"
	TextLarge      TextSize = "large"
	TextExtraLarge TextSize = "extra_large"
)

// IsValid reports whether the text size is a known value.
func (s TextSize) IsValid() bool {
	switch s {
	case TextSmall, TextNormal, TextLarge, TextExtraLarge:
		return true
	}
	return false
}

// NavigationMode is the preferred input method for navigating the interface.
type NavigationMode string

const (
	NavMouse    NavigationMode = "mouse"
	NavKeyboard NavigationMode = "keyboard"
	NavTouch    NavigationMode = "touch"
	NavVoice    NavigationMode = "voice"
	NavMixed    NavigationMode = "mixed"
)

// IsValid reports whether the navigation mode is a known value.
func (m NavigationMode) IsValid() bool {
	switch m {
	case NavMouse, NavKeyboard, NavTouch, NavVoice, NavMixed:
		return true
	}
	return false
}

// Config is the accessibility configuration for one session. A zero Config
// is not usable; start from DefaultConfig.
type Config struct {
	ScreenReaderSupport bool   `json:"screen_reader_support"`
	ScreenReaderType    string `json:"screen_reader_type,omitempty"`

	HighContrastMode   bool          `json:"high_contrast_mode"`
	ContrastLevel      ContrastLevel `json:"contrast_level"`
	TextSizeMultiplier float64       `json:"text_size_multiplier"`
	TextSize           TextSize      `json:"text_size"`

	AudioSpeedMultiplier float64 `json:"audio_speed_multiplier"`
	AudioDescriptions    bool    `json:"audio_descriptions"`
	CaptionsEnabled      bool    `json:"captions_enabled"`

	KeyboardNavigationEnabled bool           `json:"keyboard_navigation_enabled"`
	PreferredNavigationMode   NavigationMode `json:"preferred_navigation_mode"`
	FocusIndicatorsEnhanced   bool           `json:"focus_indicators_enhanced"`

	AlternativeTextEnabled bool `json:"alternative_text_enabled"`
	SimplifiedInterface    bool `json:"simplified_interface"`
	ReducedMotion          bool `json:"reduced_motion"`

	ColorBlindSupport   bool   `json:"color_blind_support"`
	ColorBlindType      string `json:"color_blind_type,omitempty"`
	UsePatternsForColor bool   `json:"use_patterns_for_color"`
}

// DefaultConfig returns the configuration new sessions start with.
func DefaultConfig() Config {
	return Config{
		ContrastLevel:           ContrastNormal,
		TextSizeMultiplier:      1.0,
		TextSize:                TextNormal,
		AudioSpeedMultiplier:    1.0,
		PreferredNavigationMode: NavMixed,
		AlternativeTextEnabled:  true,
	}
}

// Validate checks the enum fields and multiplier ranges. The accessibility
// ranges are wider than the session preference ranges; playback collaborators
// are expected to honor the full span here.
func (c *Config) Validate() error {
	if !c.ContrastLevel.IsValid() {
		return validate.Errorf("contrast_level", "unknown value %q", c.ContrastLevel)
	}
	if !c.TextSize.IsValid() {
		return validate.Errorf("text_size", "unknown value %q", c.TextSize)
	}
	if !c.PreferredNavigationMode.IsValid() {
		return validate.Errorf("preferred_navigation_mode", "unknown value %q", c.PreferredNavigationMode)
	}
	if err := validate.Multiplier("text_size_multiplier", c.TextSizeMultiplier, 0.8, 3.0); err != nil {
		return err
	}
	return validate.Multiplier("audio_speed_multiplier", c.AudioSpeedMultiplier, 0.25, 4.0)
}

// TextSizePixels computes the rendered text size for a base pixel size.
// The result is rounded to the nearest pixel, so 16 at 1.1x yields 18,
// not 17.
func (c *Config) TextSizePixels(base int) int {
	return int(math.Round(float64(base) * c.TextSizeMultiplier))
}

// RequiresAlternativeIndicators reports whether color-coded information
// needs a non-color channel as well.
func (c *Config) RequiresAlternativeIndicators() bool {
	return c.ColorBlindSupport || c.UsePatternsForColor
}

// AudioSpeed returns the playback speed multiplier.
func (c *Config) AudioSpeed() float64 {
	return c.AudioSpeedMultiplier
}

// Profile associates a validated Config with a session.
type Profile struct {
	SessionID string `json:"session_id"`
	Config    Config `json:"config"`
}

// NewProfile builds a profile after validating both halves.
func NewProfile(sessionID string, cfg Config) (*Profile, error) {
	id, err := validate.SessionID(sessionID)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Profile{SessionID: id, Config: cfg}, nil
}
