package language

// DefaultLanguages returns the language set seeded into a fresh deployment.
// The durable table (supastore) is seeded from this exact set on first
// startup; afterwards the table is the source of truth.
func DefaultLanguages() []LanguageConfig {
	return []LanguageConfig{
		{
			Code:                 "en",
			DisplayName:          "English",
			NativeName:           "English",
			IsSupported:          true,
			STTAvailable:         true,
			TTSAvailable:         true,
			TranslationAvailable: true,
			VoiceOptions: []VoiceOption{
				{
					VoiceName:   "en-US-Standard-A",
					DisplayName: "English (US) - Female",
					Gender:      "female",
					AgeGroup:    "adult",
					Accent:      "US",
					SampleRate:  22050,
				},
				{
					VoiceName:   "en-US-Standard-B",
					DisplayName: "English (US) - Male",
					Gender:      "male",
					AgeGroup:    "adult",
					Accent:      "US",
					SampleRate:  22050,
				},
			},
		},
		{
			Code:                 "hi",
			DisplayName:          "Hindi",
			NativeName:           "हिन्दी",
			IsSupported:          true,
			STTAvailable:         true,
			TTSAvailable:         true,
			TranslationAvailable: true,
			VoiceOptions: []VoiceOption{
				{
					VoiceName:   "hi-IN-Standard-A",
					DisplayName: "Hindi (India) - Female",
					Gender:      "female",
					AgeGroup:    "adult",
					Accent:      "IN",
					SampleRate:  22050,
				},
			},
			FallbackLanguage: "en",
		},
		{
			Code:                 "es",
			DisplayName:          "Spanish",
			NativeName:           "Español",
			IsSupported:          true,
			STTAvailable:         true,
			TTSAvailable:         true,
			TranslationAvailable: true,
			VoiceOptions: []VoiceOption{
				{
					VoiceName:   "es-ES-Standard-A",
					DisplayName: "Spanish (Spain) - Female",
					Gender:      "female",
					AgeGroup:    "adult",
					Accent:      "ES",
					SampleRate:  22050,
				},
			},
			FallbackLanguage: "en",
		},
	}
}

// NewDefaultRegistry returns a registry preloaded with DefaultLanguages.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.Replace(DefaultLanguages()); err != nil {
		// The default set is static and validated by tests; a failure here
		// is a programming error.
		panic(err)
	}
	return r
}
