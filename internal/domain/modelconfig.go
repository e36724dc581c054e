package domain

// ModelConfig is the connection settings for one provider. One config
// exists per provider; exactly one is active at a time.
type ModelConfig struct {
	Provider  Provider `json:"provider"`
	BaseURL   string   `json:"baseUrl"`
	ModelName string   `json:"modelName"`
}

// ConfigPatch is a partial config update. Nil fields are left untouched.
type ConfigPatch struct {
	BaseURL   *string
	ModelName *string
}

// DefaultGeminiModel is the out-of-the-box model for new installs.
const DefaultGeminiModel = "gemini-3-flash-preview"

// DefaultConfigs returns the factory configuration table, one entry per
// provider. Only Gemini ships with a model preselected.
func DefaultConfigs() map[Provider]ModelConfig {
	configs := make(map[Provider]ModelConfig, len(Providers))
	for _, p := range Providers {
		configs[p] = ModelConfig{Provider: p}
	}
	gemini := configs[ProviderGemini]
	gemini.ModelName = DefaultGeminiModel
	configs[ProviderGemini] = gemini
	return configs
}

// Settings is the small bounded state kept in the local persistence
// slot: provider configs and UI language, never sessions or images.
type Settings struct {
	Configs      map[Provider]ModelConfig `json:"configs"`
	ActiveConfig ModelConfig              `json:"activeConfig"`
	Language     Language                 `json:"language"`
}

// DefaultSettings is the state of a fresh install.
func DefaultSettings() Settings {
	configs := DefaultConfigs()
	return Settings{
		Configs:      configs,
		ActiveConfig: configs[ProviderGemini],
		Language:     LanguageZH,
	}
}
