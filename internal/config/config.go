package config

import (
	"os"
	"path/filepath"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	PersonaDir    string `json:"persona_dir"`
	MaxConcurrent int    `json:"max_concurrent"`
	HTTP          struct {
		Addr string `json:"addr"`
	} `json:"http"`
	LLM struct {
		Provider         string  `json:"provider"`
		BaseURL          string  `json:"base_url"`
		APIKey           string  `json:"api_key"`
		Model            string  `json:"model"`
		MaxTokens        int     `json:"max_tokens"`
		Temperature      float32 `json:"temperature"`
		MaxContextTokens int     `json:"max_context_tokens"`
		OutputReserve    int     `json:"output_reserve"`
	} `json:"llm"`
	Gemini struct {
		APIKey string `json:"api_key"`
		Model  string `json:"model"`
	} `json:"gemini"`
	Webhook struct {
		URL    string `json:"url"`
		Secret string `json:"secret"`
	} `json:"webhook"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID string `json:"chat_id"`
	} `json:"telegram"`
	Reaper struct {
		Spec        string `json:"spec"`
		IdleMinutes int    `json:"idle_minutes"`
	} `json:"reaper"`
}

// DatabasePath is the SQLite file under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "honeypot.db")
}

// PersonaPath is the persona profile directory; defaults to
// <data_dir>/personas when not set explicitly.
func (c *Config) PersonaPath() string {
	if c.PersonaDir != "" {
		return c.PersonaDir
	}
	return filepath.Join(c.DataDir, "personas")
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".honeypot"),
		MaxConcurrent: 4,
	}
	cfg.LogLevel = "info"
	cfg.HTTP.Addr = ":8080"
	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = "https://api.openai.com/v1"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 512
	cfg.LLM.Temperature = 0.8
	cfg.LLM.MaxContextTokens = 128000
	cfg.LLM.OutputReserve = 1024
	cfg.Gemini.Model = "gemini-2.0-flash"
	cfg.Reaper.Spec = "*/5 * * * *"
	cfg.Reaper.IdleMinutes = 120

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := unmarshalConfig(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		cfg.Gemini.APIKey = geminiKey
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if tgChat := os.Getenv("TELEGRAM_CHAT_ID"); tgChat != "" {
		cfg.Telegram.ChatID = tgChat
	}
	if hook := os.Getenv("WEBHOOK_URL"); hook != "" {
		cfg.Webhook.URL = hook
	}
	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		cfg.Webhook.Secret = secret
	}

	return cfg, nil
}
