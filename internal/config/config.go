package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Oracles   OraclesConfig   `mapstructure:"oracles"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	TLS       bool   `mapstructure:"tls"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// OraclesConfig enumerates every external service the verifiers consult.
// Each oracle carries its own base URL and timeout so a slow provider can
// be bounded independently.
type OraclesConfig struct {
	Nominatim      NominatimConfig      `mapstructure:"nominatim"`
	Overpass       OverpassConfig       `mapstructure:"overpass"`
	Vision         VisionConfig         `mapstructure:"vision"`
	SerpAPI        SerpAPIConfig        `mapstructure:"serpapi"`
	ContextMatch   ContextMatchConfig   `mapstructure:"context_match"`
	Embeddings     EmbeddingsConfig     `mapstructure:"embeddings"`
	PricePredictor PricePredictorConfig `mapstructure:"price_predictor"`
	Idealista      IdealistaConfig      `mapstructure:"idealista"`
}

type NominatimConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type OverpassConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	POIRadius      int           `mapstructure:"poi_radius"`
	PrecheckRadius int           `mapstructure:"precheck_radius"`
}

type VisionConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SerpAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ContextMatchConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EmbeddingsConfig struct {
	URL     string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PricePredictorConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type IdealistaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Secret       string        `mapstructure:"secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SearchRadius int           `mapstructure:"search_radius"`
}

// ScoringConfig holds the location scoring weights and the image allow list.
type ScoringConfig struct {
	GeocodeScore     float64  `mapstructure:"geocode_score"`
	SimilarityWeight float64  `mapstructure:"similarity_weight"`
	PopulatedBonus   float64  `mapstructure:"populated_bonus"`
	UrbanBonus       float64  `mapstructure:"urban_bonus"`
	ContextBonus     float64  `mapstructure:"context_bonus"`
	ContextThreshold float64  `mapstructure:"context_threshold"`
	ContextStrategy  string   `mapstructure:"context_strategy"` // "embeddings" or "lexical"
	POILimit         int      `mapstructure:"poi_limit"`
	TrustedDomains   []string `mapstructure:"trusted_domains"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/listingguard")
	}

	// Environment variables
	v.SetEnvPrefix("LISTINGGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind nested env vars explicitly (viper doesn't auto-bind nested struct fields)
	v.BindEnv("redis.host", "LISTINGGUARD_REDIS_HOST")
	v.BindEnv("redis.port", "LISTINGGUARD_REDIS_PORT")
	v.BindEnv("redis.password", "LISTINGGUARD_REDIS_PASSWORD")
	v.BindEnv("database.host", "LISTINGGUARD_DATABASE_HOST")
	v.BindEnv("database.port", "LISTINGGUARD_DATABASE_PORT")
	v.BindEnv("database.user", "LISTINGGUARD_DATABASE_USER")
	v.BindEnv("database.password", "LISTINGGUARD_DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "LISTINGGUARD_DATABASE_DBNAME")
	v.BindEnv("database.sslmode", "LISTINGGUARD_DATABASE_SSLMODE")
	v.BindEnv("oracles.serpapi.api_key", "LISTINGGUARD_ORACLES_SERPAPI_API_KEY")
	v.BindEnv("oracles.idealista.api_key", "LISTINGGUARD_ORACLES_IDEALISTA_API_KEY")
	v.BindEnv("oracles.idealista.secret", "LISTINGGUARD_ORACLES_IDEALISTA_SECRET")
	v.BindEnv("app.environment", "LISTINGGUARD_APP_ENVIRONMENT")

	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Env-only configuration is acceptable when no file is present
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

// setDefaults registers the defaults the original deployment ran with.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "listingguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.key_prefix", "listingguard:")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("oracles.nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("oracles.nominatim.user_agent", "ListingGuard/1.0 (contact@listingguard.dev)")
	v.SetDefault("oracles.nominatim.timeout", "10s")
	v.SetDefault("oracles.overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("oracles.overpass.timeout", "30s")
	v.SetDefault("oracles.overpass.poi_radius", 5000)
	v.SetDefault("oracles.overpass.precheck_radius", 3000)
	v.SetDefault("oracles.vision.timeout", "30s")
	v.SetDefault("oracles.serpapi.base_url", "https://serpapi.com/search.json")
	v.SetDefault("oracles.serpapi.timeout", "30s")
	v.SetDefault("oracles.context_match.timeout", "15s")
	v.SetDefault("oracles.embeddings.model", "all-MiniLM-L6-v2")
	v.SetDefault("oracles.embeddings.timeout", "15s")
	v.SetDefault("oracles.price_predictor.timeout", "5s")
	v.SetDefault("oracles.idealista.base_url", "https://api.idealista.com")
	v.SetDefault("oracles.idealista.timeout", "15s")
	v.SetDefault("oracles.idealista.search_radius", 1500)

	v.SetDefault("scoring.geocode_score", 0.4)
	v.SetDefault("scoring.similarity_weight", 0.1)
	v.SetDefault("scoring.populated_bonus", 0.15)
	v.SetDefault("scoring.urban_bonus", 0.15)
	v.SetDefault("scoring.context_bonus", 0.2)
	v.SetDefault("scoring.context_threshold", 0.5)
	v.SetDefault("scoring.context_strategy", "embeddings")
	v.SetDefault("scoring.poi_limit", 10)
	v.SetDefault("scoring.trusted_domains", []string{
		"idealista.com", "fotocasa.es", "pisos.com", "milanuncios.com",
	})
}
