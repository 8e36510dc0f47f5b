package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the settings of a borocut run.
//
// Values come from, in increasing priority: built-in defaults, an optional
// config.yaml in the working directory or ./configs, and BOROCUT_ prefixed
// environment variables (BOROCUT_SPLIT_CUT_BUFFER_METERS sets
// split.cut_buffer_meters). A .env file is loaded into the environment first.
type Config struct {
	Env      string         `mapstructure:"env"`   // Env is the current environment: local, development, production.
	Place    string         `mapstructure:"place"` // Place is the geocoding query the street is searched in.
	Input    InputConfig    `mapstructure:"input"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Overpass OverpassConfig `mapstructure:"overpass"`
	Split    SplitConfig    `mapstructure:"split"`
	Output   OutputConfig   `mapstructure:"output"`
	Landmark LandmarkConfig `mapstructure:"landmark"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// InputConfig locates and reads the borough boundary archive.
type InputConfig struct {
	ZipCandidates []string `mapstructure:"zip_candidates"` // Archive paths tried in order, ~ expands to home.
	ExtractDir    string   `mapstructure:"extract_dir"`    // Directory the archive is unpacked into once.
	NameColumns   []string `mapstructure:"name_columns"`   // Borough name attributes, first present wins.
	Match         string   `mapstructure:"match"`          // Case-insensitive borough name substring.
	DefaultEPSG   int      `mapstructure:"default_epsg"`   // CRS assumed when the shapefile has no .prj.
}

// GeocoderConfig selects the provider resolving Place.
type GeocoderConfig struct {
	Provider  string        `mapstructure:"provider"` // nominatim or google
	APIKey    string        `mapstructure:"api_key"`
	RateLimit int           `mapstructure:"rate_limit"`
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OverpassConfig controls the OSM feature download and the street filter.
type OverpassConfig struct {
	URL         string        `mapstructure:"url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Tag         string        `mapstructure:"tag"`
	NameColumns []string      `mapstructure:"name_columns"`
	Needles     []string      `mapstructure:"needles"`
}

// SplitConfig tunes the geometric cut.
type SplitConfig struct {
	WorkEPSG        int     `mapstructure:"work_epsg"`
	CutBufferMeters float64 `mapstructure:"cut_buffer_meters"`
	SimplifyMeters  float64 `mapstructure:"simplify_meters"` // 0 disables simplification
	PadRatio        float64 `mapstructure:"pad_ratio"`
}

// OutputConfig names the written region.
type OutputConfig struct {
	Path string `mapstructure:"path"`
	Name string `mapstructure:"name"`
	Slug string `mapstructure:"slug"`
}

// LandmarkConfig is a point the result is expected to contain.
type LandmarkConfig struct {
	Name string  `mapstructure:"name"`
	Lon  float64 `mapstructure:"lon"`
	Lat  float64 `mapstructure:"lat"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`  // Enabled turns on the PostGIS sink.
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     int    `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"db_name"`  // Name is the name of the database.
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string for pgx.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

// MetricsConfig enables pushing run metrics to a Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"` // Empty disables pushing.
	Job            string `mapstructure:"job"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("place", "Manhattan, New York, USA")

	v.SetDefault("input.zip_candidates", []string{"nybb_25b.zip", "~/Downloads/nybb_25b.zip"})
	v.SetDefault("input.extract_dir", "nybb_25b_unzipped")
	v.SetDefault("input.name_columns", []string{"BoroName", "Borough"})
	v.SetDefault("input.match", "Manhattan")
	v.SetDefault("input.default_epsg", 2263)

	v.SetDefault("geocoder.provider", "nominatim")
	v.SetDefault("geocoder.api_key", "")
	v.SetDefault("geocoder.rate_limit", 1)
	v.SetDefault("geocoder.base_url", "")
	v.SetDefault("geocoder.user_agent", "")
	v.SetDefault("geocoder.timeout", 10*time.Second)

	v.SetDefault("overpass.url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "")
	v.SetDefault("overpass.timeout", 180*time.Second)
	v.SetDefault("overpass.tag", "highway")
	v.SetDefault("overpass.name_columns", []string{"name", "alt_name", "official_name"})
	v.SetDefault("overpass.needles", []string{"125th", "martin luther king"})

	v.SetDefault("split.work_epsg", 2263)
	v.SetDefault("split.cut_buffer_meters", 8.0)
	v.SetDefault("split.simplify_meters", 6.0)
	v.SetDefault("split.pad_ratio", 0.2)

	v.SetDefault("output.path", "public/data/manhattan-south125.geojson")
	v.SetDefault("output.name", "Manhattan south of 125th (cut via bbox)")
	v.SetDefault("output.slug", "manhattan-south125")

	v.SetDefault("landmark.name", "Times Square")
	v.SetDefault("landmark.lon", -73.9855)
	v.SetDefault("landmark.lat", 40.7580)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.db_name", "borocut")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "borocut")
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BOROCUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Input.ZipCandidates) == 0 {
		errs = append(errs, "input.zip_candidates must not be empty")
	}
	if c.Input.ExtractDir == "" {
		errs = append(errs, "input.extract_dir is required")
	}
	switch c.Geocoder.Provider {
	case "nominatim":
	case "google":
		if c.Geocoder.APIKey == "" {
			errs = append(errs, "geocoder.api_key is required for google")
		}
	default:
		errs = append(errs, fmt.Sprintf("geocoder.provider must be nominatim or google, got %q", c.Geocoder.Provider))
	}
	if c.Place == "" {
		errs = append(errs, "place is required")
	}
	if c.Overpass.Tag == "" {
		errs = append(errs, "overpass.tag is required")
	}
	if c.Overpass.Timeout <= 0 {
		errs = append(errs, "overpass.timeout must be positive")
	}
	if c.Split.CutBufferMeters <= 0 {
		errs = append(errs, "split.cut_buffer_meters must be positive")
	}
	if c.Split.SimplifyMeters < 0 {
		errs = append(errs, "split.simplify_meters must not be negative")
	}
	if c.Split.PadRatio <= 0 {
		errs = append(errs, "split.pad_ratio must be positive")
	}
	if c.Output.Path == "" {
		errs = append(errs, "output.path is required")
	}
	if c.Output.Slug == "" {
		errs = append(errs, "output.slug is required")
	}
	if c.Postgres.Enabled {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres.host is required when postgres is enabled")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres.port must be 1-65535, got %d", c.Postgres.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
