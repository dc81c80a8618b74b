package sessions

import (
	"time"

	"github.com/vaanihq/voicecore/validate"
)

// InputType distinguishes how the user produced a turn.
type InputType string

const (
	InputTypeVoice InputType = "voice"
	InputTypeText  InputType = "text"
)

// IsValid reports whether the input type is one of the known values.
func (t InputType) IsValid() bool {
	return t == InputTypeVoice || t == InputTypeText
}

// DeviceInfo describes the device a session was created from.
type DeviceInfo struct {
	DeviceType         string `json:"device_type"`
	UserAgent          string `json:"user_agent,omitempty"`
	ScreenWidth        int    `json:"screen_width,omitempty"`
	ScreenHeight       int    `json:"screen_height,omitempty"`
	SupportsAudio      bool   `json:"supports_audio"`
	SupportsMicrophone bool   `json:"supports_microphone"`
}

// Validate checks the device description. Screen dimensions are optional;
// when present they must be positive.
func (d *DeviceInfo) Validate() error {
	if d.DeviceType == "" {
		return validate.Errorf("device_type", "must not be empty")
	}
	if d.ScreenWidth < 0 {
		return validate.Errorf("screen_width", "must be positive, got %d", d.ScreenWidth)
	}
	if d.ScreenHeight < 0 {
		return validate.Errorf("screen_height", "must be positive, got %d", d.ScreenHeight)
	}
	return nil
}

// UserPreferences carries the per-session rendering and playback preferences.
type UserPreferences struct {
	PreferredLanguage    string    `json:"preferred_language"`
	InputType            InputType `json:"input_type"`
	AudioSpeedMultiplier float64   `json:"audio_speed_multiplier"`
	TextSizeMultiplier   float64   `json:"text_size_multiplier"`
	HighContrastMode     bool      `json:"high_contrast_mode"`
	ScreenReaderSupport  bool      `json:"screen_reader_support"`
}

// DefaultPreferences returns the preference set new sessions start with.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		PreferredLanguage:    "en",
		InputType:            InputTypeVoice,
		AudioSpeedMultiplier: 1.0,
		TextSizeMultiplier:   1.0,
	}
}

// Validate checks the preference ranges.
func (p *UserPreferences) Validate() error {
	if !p.InputType.IsValid() {
		return validate.Errorf("input_type", "must be voice or text, got %q", p.InputType)
	}
	if err := validate.Multiplier("audio_speed_multiplier", p.AudioSpeedMultiplier, 0.5, 2.0); err != nil {
		return err
	}
	return validate.Multiplier("text_size_multiplier", p.TextSizeMultiplier, 0.8, 2.0)
}

// QueryHistory is the immutable record of one conversation turn: the user's
// input and the system's response. Created once, never mutated.
type QueryHistory struct {
	QueryID          string    `json:"query_id"`
	UserInput        string    `json:"user_input"`
	InputType        InputType `json:"input_type"`
	DetectedLanguage string    `json:"detected_language"`
	ResponseText     string    `json:"response_text"`
	Timestamp        time.Time `json:"timestamp"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
}

// maxQueryTextLength bounds the user input stored per turn.
const maxQueryTextLength = 10000

// Validate checks the turn record, trimming the user input in place.
func (q *QueryHistory) Validate() error {
	if q.QueryID == "" {
		return validate.Errorf("query_id", "must not be empty")
	}
	if !q.InputType.IsValid() {
		return validate.Errorf("input_type", "must be voice or text, got %q", q.InputType)
	}
	if _, err := validate.LanguageCode(q.DetectedLanguage); err != nil {
		return err
	}
	text, err := validate.TextLength("user_input", q.UserInput, 1, maxQueryTextLength)
	if err != nil {
		return err
	}
	q.UserInput = text
	return validate.NonNegative("processing_time_ms", q.ProcessingTimeMs)
}

// ProcessingMetrics records how one processing operation performed. Attached
// to pipeline results by the voice and translation collaborators.
type ProcessingMetrics struct {
	ProcessingTimeMs float64  `json:"processing_time_ms"`
	ConfidenceScore  *float64 `json:"confidence_score,omitempty"`
	ErrorCount       int      `json:"error_count"`
	RetryCount       int      `json:"retry_count"`
}

// Validate checks the metric ranges. ConfidenceScore is optional; when
// present it must lie in [0, 1].
func (m *ProcessingMetrics) Validate() error {
	if err := validate.NonNegative("processing_time_ms", m.ProcessingTimeMs); err != nil {
		return err
	}
	if m.ConfidenceScore != nil {
		if err := validate.Score("confidence_score", *m.ConfidenceScore); err != nil {
			return err
		}
	}
	if m.ErrorCount < 0 {
		return validate.Errorf("error_count", "must not be negative, got %d", m.ErrorCount)
	}
	if m.RetryCount < 0 {
		return validate.Errorf("retry_count", "must not be negative, got %d", m.RetryCount)
	}
	return nil
}

// ContextualData is the free-form conversation state the dialogue layer
// maintains alongside the turn log.
type ContextualData struct {
	CurrentTopic      string            `json:"current_topic,omitempty"`
	MentionedEntities []string          `json:"mentioned_entities,omitempty"`
	UserIntent        string            `json:"user_intent,omitempty"`
	ConversationStage string            `json:"conversation_stage"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// ConversationContext is the bounded, append-only turn log owned by exactly
// one UserSession. The log is a strict sliding window: AddTurn evicts
// oldest-first and never reorders.
type ConversationContext struct {
	PreviousQueries       []QueryHistory  `json:"previous_queries"`
	UserPreferences       UserPreferences `json:"user_preferences"`
	CurrentTopic          string          `json:"current_topic,omitempty"`
	ContextualInformation ContextualData  `json:"contextual_information"`
}

// NewConversationContext returns an empty context with default preferences.
func NewConversationContext() ConversationContext {
	return ConversationContext{
		UserPreferences:       DefaultPreferences(),
		ContextualInformation: ContextualData{ConversationStage: "initial"},
	}
}

// AddTurn appends a turn and truncates the log from the front so at most max
// entries remain.
func (c *ConversationContext) AddTurn(turn QueryHistory, max int) {
	c.PreviousQueries = append(c.PreviousQueries, turn)
	if max > 0 && len(c.PreviousQueries) > max {
		// Copy into a fresh slice so the evicted prefix can be collected.
		trimmed := make([]QueryHistory, max)
		copy(trimmed, c.PreviousQueries[len(c.PreviousQueries)-max:])
		c.PreviousQueries = trimmed
	}
}

// RecentTurns returns the last n turns in chronological order. The result is
// a snapshot copy: appends that happen after the call are not visible
// through it.
func (c *ConversationContext) RecentTurns(n int) []QueryHistory {
	if n <= 0 || len(c.PreviousQueries) == 0 {
		return nil
	}
	if n > len(c.PreviousQueries) {
		n = len(c.PreviousQueries)
	}
	out := make([]QueryHistory, n)
	copy(out, c.PreviousQueries[len(c.PreviousQueries)-n:])
	return out
}

// UserSession is one bounded-lifetime interaction context tied to a device.
// IsActive transitions one way, true to false; a terminated or expired
// session is never revived.
type UserSession struct {
	SessionID           string              `json:"session_id"`
	DeviceInfo          DeviceInfo          `json:"device_info"`
	LanguagePreference  string              `json:"language_preference"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
	LastActivity        time.Time           `json:"last_activity"`
	ConversationContext ConversationContext `json:"conversation_context"`
	IsActive            bool                `json:"is_active"`
}

// ExpiredAt reports whether the session is past its timeout at the given
// instant. The boundary is inclusive: exactly timeout since last activity is
// still live.
func (s *UserSession) ExpiredAt(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}
