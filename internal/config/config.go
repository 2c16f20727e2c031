package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultCountryCode     = "55"
	DefaultHistoryLimit    = 20
	DefaultMaxToolRounds   = 5
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "lexbot"
	DefaultPGSSLMode       = "disable"
	DefaultQdrantHost      = "127.0.0.1"
	DefaultQdrantPort      = 6334
	DefaultQdrantColl      = "documents"
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultEmbeddingDims   = 768
	DefaultWordsPerMinute  = 150
	DefaultMaxAudios       = 3
	DefaultVoiceID         = "21m00Tcm4TlvDq8ikWAM"
	DefaultTTSModelID      = "eleven_multilingual_v2"
	DefaultWhatsAppBaseURL = "https://api.uazapi.com"
	DefaultChunkDelayMs    = 1500
)

type Config struct {
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Qdrant     QdrantConfig     `toml:"qdrant"`
	Gemini     GeminiConfig     `toml:"gemini"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	ElevenLabs ElevenLabsConfig `toml:"elevenlabs"`
	WhatsApp   WhatsAppConfig   `toml:"whatsapp"`
	Assistant  AssistantConfig  `toml:"assistant"`
	Audio      AudioConfig      `toml:"audio"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// DSN renders the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	APIKey     string `toml:"api_key"`
	UseTLS     bool   `toml:"use_tls"`
	Collection string `toml:"collection"`
}

type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	// BaseURL overrides the Google Generative Language endpoint, mainly for tests.
	BaseURL          string   `toml:"base_url"`
	ChatModels       []string `toml:"chat_models"`
	TranscribeModels []string `toml:"transcribe_models"`
	VisionModels     []string `toml:"vision_models"`
	EmbeddingModel   string   `toml:"embedding_model"`
	EmbeddingDims    int      `toml:"embedding_dims"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	WhisperModel   string `toml:"whisper_model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ElevenLabsConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	VoiceID        string `toml:"voice_id"`
	ModelID        string `toml:"model_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type WhatsAppConfig struct {
	BaseURL        string `toml:"base_url"`
	InstanceID     string `toml:"instance_id"`
	Token          string `toml:"token"`
	CountryCode    string `toml:"country_code"`
	ChunkDelayMs   int    `toml:"chunk_delay_ms"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type AssistantConfig struct {
	SystemPrompt  string `toml:"system_prompt"`
	HistoryLimit  int    `toml:"history_limit"`
	MaxToolRounds int    `toml:"max_tool_rounds"`
}

type AudioConfig struct {
	WordsPerMinute int `toml:"words_per_minute"`
	MaxAudios      int `toml:"max_audios"`
}

// Load reads the TOML config at path, falling back to defaults when the file
// does not exist. Environment is not consulted; everything is explicit.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Qdrant: QdrantConfig{
			Host:       DefaultQdrantHost,
			Port:       DefaultQdrantPort,
			Collection: DefaultQdrantColl,
		},
		Gemini: GeminiConfig{
			ChatModels:       []string{"gemini-2.0-flash-exp", "gemini-1.5-flash", "gemini-1.5-pro", "gemini-pro"},
			TranscribeModels: []string{"gemini-2.5-flash", "gemini-2.0-flash-exp", "gemini-1.5-pro", "gemini-pro"},
			VisionModels:     []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
			EmbeddingModel:   DefaultEmbeddingModel,
			EmbeddingDims:    DefaultEmbeddingDims,
			TimeoutSeconds:   60,
		},
		OpenAI: OpenAIConfig{
			WhisperModel:   "whisper-1",
			Language:       "pt",
			TimeoutSeconds: 60,
		},
		ElevenLabs: ElevenLabsConfig{
			VoiceID:        DefaultVoiceID,
			ModelID:        DefaultTTSModelID,
			TimeoutSeconds: 60,
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:        DefaultWhatsAppBaseURL,
			CountryCode:    DefaultCountryCode,
			ChunkDelayMs:   DefaultChunkDelayMs,
			TimeoutSeconds: 30,
		},
		Assistant: AssistantConfig{
			SystemPrompt:  DefaultSystemPrompt,
			HistoryLimit:  DefaultHistoryLimit,
			MaxToolRounds: DefaultMaxToolRounds,
		},
		Audio: AudioConfig{
			WordsPerMinute: DefaultWordsPerMinute,
			MaxAudios:      DefaultMaxAudios,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// DefaultSystemPrompt instructs the assistant to consult the document base
// for substantive questions and to answer greetings directly.
const DefaultSystemPrompt = "Você é o assistente jurídico do escritório. " +
	"Use a ferramenta 'document_search' sempre que precisar consultar leis, processos ou documentos. " +
	"Se for apenas um 'oi' ou saudação, responda educadamente sem buscar documentos."
