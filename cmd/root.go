package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "arie"
)

type Config struct {
	Layout *LayoutConfig `mapstructure:"layout"`
	OCR    *OCRConfig    `mapstructure:"ocr"`
	NER    *NERConfig    `mapstructure:"ner"`
	Parser *ParserConfig `mapstructure:"parser"`
	Server *ServerConfig `mapstructure:"server"`
	Cache  *CacheConfig  `mapstructure:"cache"`
}

type LayoutConfig struct {
	Provider string         `mapstructure:"provider"`
	Docling  *DoclingConfig `mapstructure:"docling"`
}

type DoclingConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	APIKeyFile string        `mapstructure:"api-key-file"`
}

type OCRConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Provider  string   `mapstructure:"provider"`
	Scale     float64  `mapstructure:"scale"`
	Languages []string `mapstructure:"languages"`
	Pdftoppm  string   `mapstructure:"pdftoppm"`
}

type NERConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type ParserConfig struct {
	SkillsFile string   `mapstructure:"skills-file"`
	BodyLabels []string `mapstructure:"body-labels"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	Workers     int    `mapstructure:"workers"`
	MaxUploadMB int    `mapstructure:"max-upload-mb"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "arie extracts structured profiles (contacts, links, skills, experience) from PDF resumes",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ner.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("layout.docling.api-key-file", "DOCLING_API_KEY_FILE"); err != nil {
		log.Fatalf("binding DOCLING_API_KEY_FILE environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is arie.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("layout.provider", "tabula")
	v.SetDefault("layout.docling.url", "http://localhost:5001")
	v.SetDefault("layout.docling.timeout", "120s")

	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.scale", 3.0)
	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.pdftoppm", "pdftoppm")

	v.SetDefault("ner.provider", "gemini")
	v.SetDefault("ner.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ner.gemini.max-retries", 3)
	v.SetDefault("ner.gemini.max-log-length", 200)

	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.workers", 2)
	v.SetDefault("server.max-upload-mb", 20)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", "arie-cache.db")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional; defaults cover a local run. A broken one
	// is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Layout == nil {
		config.Layout = &LayoutConfig{}
	}
	if config.Layout.Docling == nil {
		config.Layout.Docling = &DoclingConfig{}
	}
	if config.OCR == nil {
		config.OCR = &OCRConfig{}
	}
	if config.NER == nil {
		config.NER = &NERConfig{}
	}
	if config.NER.Gemini == nil {
		config.NER.Gemini = &GeminiConfig{}
	}
	if config.Parser == nil {
		config.Parser = &ParserConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Cache == nil {
		config.Cache = &CacheConfig{}
	}

	return config, nil
}
