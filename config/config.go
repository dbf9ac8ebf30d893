package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string              `mapstructure:"port"`
	UploadDir           string              `mapstructure:"upload_dir"`
	AIProvider          string              `mapstructure:"ai_provider"` // "openai" or "gemini"
	AIEndpoint          string              `mapstructure:"ai_endpoint"`
	Model               string              `mapstructure:"model"`
	MaxOutputTokens     int                 `mapstructure:"max_output_tokens"`
	OpenAIAPIKey        string              `mapstructure:"OPENAI_API_KEY"`
	MongoURI            string              `mapstructure:"MONGODB_URI"`
	GeminiAPIKeys       []string            `mapstructure:"gemini_api_keys"`
	Chunker             ChunkerConfig       `mapstructure:"chunker"`
	WeaviateStoreConfig WeaviateStoreConfig `mapstructure:"weaviate_store_config"`
	Logging             LoggingConfig       `mapstructure:"logging"`
}

type ChunkerConfig struct {
	MaxChunkTokens int `mapstructure:"max_chunk_tokens"`
	OverlapTokens  int `mapstructure:"overlap_tokens"`
}

type WeaviateStoreConfig struct {
	Host         string       `mapstructure:"host"`
	APIKey       string       `mapstructure:"WEAVIATE_APIKEY"` // Changed to match env var
	Text2Vec     string       `mapstructure:"text2vec"`
	ModuleConfig ModuleConfig `mapstructure:"module_config"`
	ResultLimit  int          `mapstructure:"result_limit"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type ModuleConfig map[string]interface{}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set up Viper to read from config file
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// Set up Viper to read from environment variables
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Bind environment variables
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")
	v.BindEnv("MONGODB_URI")

	v.SetDefault("ai_provider", "openai")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("max_output_tokens", 3200)
	v.SetDefault("chunker.max_chunk_tokens", 1000)
	v.SetDefault("chunker.overlap_tokens", 0)
	v.SetDefault("weaviate_store_config.result_limit", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output_path", "stdout")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}
