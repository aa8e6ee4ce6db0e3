package scenario

import "fmt"

// SceneMetadata drives presentation only. It is produced with the scene and never mutated.
type SceneMetadata struct {
	VisualAssets    []VisualAsset    `json:"visualAssets"`
	AudioAssets     []AudioAsset     `json:"audioAssets"`
	ParticleEffects []ParticleEffect `json:"particleEffects"`
	Mood            Mood             `json:"mood"`
	TimeOfDay       TimeOfDay        `json:"timeOfDay"`
	Weather         Weather          `json:"weather"`
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type VisualAsset struct {
	Type     string    `json:"type"` // background, character, object, effect
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Position *Position `json:"position,omitempty"`
	Scale    *float64  `json:"scale,omitempty"`
	Opacity  *float64  `json:"opacity,omitempty"`
}

type AudioAsset struct {
	Type    string  `json:"type"` // ambient, music, sfx, voice
	Name    string  `json:"name"`
	Path    string  `json:"path"`
	Volume  float64 `json:"volume"` // 0..1
	Loop    bool    `json:"loop"`
	FadeIn  *int    `json:"fadeIn,omitempty"`  // Milliseconds
	FadeOut *int    `json:"fadeOut,omitempty"` // Milliseconds
}

type ParticleEffect struct {
	Type      string    `json:"type"`      // magic, fire, smoke, sparkles, rain, snow
	Intensity string    `json:"intensity"` // low, medium, high
	Duration  int       `json:"duration"`  // Milliseconds
	Position  *Position `json:"position,omitempty"`
}

type Mood string
type TimeOfDay string
type Weather string

const (
	MoodDark       Mood = "dark"
	MoodMysterious Mood = "mysterious"
	MoodBright     Mood = "bright"
	MoodTense      Mood = "tense"
	MoodPeaceful   Mood = "peaceful"
	MoodEpic       Mood = "epic"
	MoodNeutral    Mood = "neutral" // Only produced by the fallback scene
)

const (
	Dawn      TimeOfDay = "dawn"
	Morning   TimeOfDay = "morning"
	Noon      TimeOfDay = "noon"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

const (
	WeatherClear  Weather = "clear"
	WeatherCloudy Weather = "cloudy"
	WeatherRainy  Weather = "rainy"
	WeatherStormy Weather = "stormy"
	WeatherFoggy  Weather = "foggy"
	WeatherSnowy  Weather = "snowy"
)

var (
	Moods      = []Mood{MoodDark, MoodMysterious, MoodBright, MoodTense, MoodPeaceful, MoodEpic, MoodNeutral}
	TimesOfDay = []TimeOfDay{Dawn, Morning, Noon, Afternoon, Evening, Night}
	Weathers   = []Weather{WeatherClear, WeatherCloudy, WeatherRainy, WeatherStormy, WeatherFoggy, WeatherSnowy}

	visualTypes    = []string{"background", "character", "object", "effect"}
	audioTypes     = []string{"ambient", "music", "sfx", "voice"}
	particleTypes  = []string{"magic", "fire", "smoke", "sparkles", "rain", "snow"}
	intensityTypes = []string{"low", "medium", "high"}
)

func oneOf[T comparable](v T, set []T) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

func (m Mood) Valid() bool      { return oneOf(m, Moods) }
func (t TimeOfDay) Valid() bool { return oneOf(t, TimesOfDay) }
func (w Weather) Valid() bool   { return oneOf(w, Weathers) }

// EnsureLists replaces nil asset lists with empty ones so they encode as [].
func (m *SceneMetadata) EnsureLists() {
	if m.VisualAssets == nil {
		m.VisualAssets = []VisualAsset{}
	}
	if m.AudioAssets == nil {
		m.AudioAssets = []AudioAsset{}
	}
	if m.ParticleEffects == nil {
		m.ParticleEffects = []ParticleEffect{}
	}
}

// Validate checks enums and asset value ranges.
func (m SceneMetadata) Validate() error {
	if !m.Mood.Valid() {
		return fmt.Errorf("invalid mood %q", m.Mood)
	}
	if !m.TimeOfDay.Valid() {
		return fmt.Errorf("invalid timeOfDay %q", m.TimeOfDay)
	}
	if !m.Weather.Valid() {
		return fmt.Errorf("invalid weather %q", m.Weather)
	}
	for _, a := range m.VisualAssets {
		if !oneOf(a.Type, visualTypes) {
			return fmt.Errorf("invalid visual asset type %q", a.Type)
		}
		if a.Opacity != nil && (*a.Opacity < 0 || *a.Opacity > 1) {
			return fmt.Errorf("visual asset %q opacity out of range", a.Name)
		}
	}
	for _, a := range m.AudioAssets {
		if !oneOf(a.Type, audioTypes) {
			return fmt.Errorf("invalid audio asset type %q", a.Type)
		}
		if a.Volume < 0 || a.Volume > 1 {
			return fmt.Errorf("audio asset %q volume out of range", a.Name)
		}
	}
	for _, p := range m.ParticleEffects {
		if !oneOf(p.Type, particleTypes) {
			return fmt.Errorf("invalid particle effect type %q", p.Type)
		}
		if !oneOf(p.Intensity, intensityTypes) {
			return fmt.Errorf("invalid particle intensity %q", p.Intensity)
		}
		if p.Duration < 0 {
			return fmt.Errorf("particle effect %q has negative duration", p.Type)
		}
	}
	return nil
}

// Background returns the name of the first background asset, if any.
func (m SceneMetadata) Background() string {
	for _, a := range m.VisualAssets {
		if a.Type == "background" {
			return a.Name
		}
	}
	return ""
}

// SoundNames returns the names of all ambient and music assets.
func (m SceneMetadata) SoundNames() []string {
	var names []string
	for _, a := range m.AudioAssets {
		if a.Type == "ambient" || a.Type == "music" {
			names = append(names, a.Name)
		}
	}
	return names
}
