package language

import (
	"github.com/vaanihq/voicecore/validate"
)

// VoiceOption is one synthesized voice available for a language. Options are
// immutable once registered.
type VoiceOption struct {
	VoiceName   string `json:"voice_name"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
	AgeGroup    string `json:"age_group"`
	Accent      string `json:"accent,omitempty"`
	IsPremium   bool   `json:"is_premium"`
	SampleRate  int    `json:"sample_rate"`
}

// Validate checks the voice option fields.
func (v *VoiceOption) Validate() error {
	if v.VoiceName == "" {
		return validate.Errorf("voice_name", "must not be empty")
	}
	if v.SampleRate <= 0 {
		return validate.Errorf("sample_rate", "must be a positive integer, got %d", v.SampleRate)
	}
	return nil
}

// LanguageConfig describes one supported language. Code is immutable after
// registration.
type LanguageConfig struct {
	Code        string `json:"language_code"`
	DisplayName string `json:"display_name"`
	NativeName  string `json:"native_name"`
	IsSupported bool   `json:"is_supported"`

	STTAvailable         bool `json:"stt_available"`
	TTSAvailable         bool `json:"tts_available"`
	TranslationAvailable bool `json:"translation_available"`

	VoiceOptions []VoiceOption `json:"voice_options"`

	RTLScript               bool   `json:"rtl_script"`
	RequiresSpecialHandling bool   `json:"requires_special_handling"`
	FallbackLanguage        string `json:"fallback_language,omitempty"`
}

// Validate checks the config fields, normalizing the language codes in place.
func (c *LanguageConfig) Validate() error {
	code, err := validate.LanguageCode(c.Code)
	if err != nil {
		return err
	}
	c.Code = code
	if c.DisplayName == "" {
		return validate.Errorf("display_name", "must not be empty")
	}
	if c.NativeName == "" {
		return validate.Errorf("native_name", "must not be empty")
	}
	if c.FallbackLanguage != "" {
		fb, err := validate.LanguageCode(c.FallbackLanguage)
		if err != nil {
			return err
		}
		c.FallbackLanguage = fb
	}
	seen := make(map[string]struct{}, len(c.VoiceOptions))
	for i := range c.VoiceOptions {
		if err := c.VoiceOptions[i].Validate(); err != nil {
			return err
		}
		name := c.VoiceOptions[i].VoiceName
		if _, dup := seen[name]; dup {
			return validate.Errorf("voice_options", "duplicate voice name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// DefaultVoice returns the default voice for the language, preferring
// non-premium voices. Returns false when the language has no voices.
func (c *LanguageConfig) DefaultVoice() (VoiceOption, bool) {
	if len(c.VoiceOptions) == 0 {
		return VoiceOption{}, false
	}
	for _, v := range c.VoiceOptions {
		if !v.IsPremium {
			return v, true
		}
	}
	return c.VoiceOptions[0], true
}

// VoiceByName looks up a voice option by its unique name.
func (c *LanguageConfig) VoiceByName(name string) (VoiceOption, bool) {
	for _, v := range c.VoiceOptions {
		if v.VoiceName == name {
			return v, true
		}
	}
	return VoiceOption{}, false
}

// MultilingualText holds the same content in several languages, keyed by
// language code.
type MultilingualText struct {
	Texts           map[string]string `json:"texts"`
	PrimaryLanguage string            `json:"primary_language"`
}

// Text returns the content in the requested language. When fallback is true
// and the requested language is absent, the primary language is tried, then
// any available translation.
func (m *MultilingualText) Text(code string, fallback bool) (string, bool) {
	if t, ok := m.Texts[code]; ok {
		return t, true
	}
	if !fallback {
		return "", false
	}
	if t, ok := m.Texts[m.PrimaryLanguage]; ok {
		return t, true
	}
	for _, t := range m.Texts {
		return t, true
	}
	return "", false
}

// AddTranslation records content for the given language code.
func (m *MultilingualText) AddTranslation(code, text string) {
	if m.Texts == nil {
		m.Texts = make(map[string]string, 1)
	}
	m.Texts[code] = text
}
