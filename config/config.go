package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/angas/fmi-go/fmi"
	"github.com/angas/fmi-go/logging"
	"github.com/spf13/viper"
)

type AppConfigApi struct {
	Address string
	Port    int16
	// If not assigned, the server will serve embedded files.
	// If assigned, the server will serve files from the directory,
	// that must contain a "static" and "templates" directory.
	// This is useful for development.
	WwwDir *string `mapstructure:"www_dir"`
}

type AppConfigDatabase struct {
	Path string
	// How many days data should be stored in database before it gets purged
	DataRetentionDays *int `mapstructure:"data_retention_days"`
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetDataRetentionDays() int {
	if d.DataRetentionDays == nil {
		return 90
	}
	return *d.DataRetentionDays
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 90
	}
	return *d.BackupRetentionDays
}

type AppConfigFmi struct {
	// Default: https://opendata.fmi.fi/wfs
	BaseUrl *string `mapstructure:"base_url"`
	// Request timeout in seconds, default: 30
	Timeout *int `mapstructure:"timeout"`
}

func (f AppConfigFmi) GetBaseUrl() string {
	if f.BaseUrl == nil || *f.BaseUrl == "" {
		return fmi.BASE_URL
	}
	return *f.BaseUrl
}

func (f AppConfigFmi) GetTimeout() time.Duration {
	if f.Timeout == nil || *f.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(*f.Timeout) * time.Second
}

// A place (city) or an observation station to follow, one of Place and Fmisid is required.
type AppConfigStation struct {
	Name   string
	Place  string
	Fmisid string
}

// Key is what the station data is stored under.
func (s AppConfigStation) Key() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Place != "" {
		return s.Place
	}
	return s.Fmisid
}

func (s AppConfigStation) Location() fmi.Location {
	return fmi.Location{Place: s.Place, Fmisid: s.Fmisid}
}

type AppConfigObservations struct {
	Parameters []string
	// How many hours back to load when nothing is stored yet, default: 24
	Hours *int   `mapstructure:"hours"`
	RunAt string `mapstructure:"run_at"`
}

func (o AppConfigObservations) GetHours() int {
	if o.Hours == nil || *o.Hours <= 0 {
		return 24
	}
	return *o.Hours
}

type AppConfigForecast struct {
	Parameters []string
	// "harmonie" or "hirlam", default: "harmonie"
	Model *string `mapstructure:"model"`
	// How many hours ahead to load, default: as far as the model predicts
	Hours *int   `mapstructure:"hours"`
	RunAt string `mapstructure:"run_at"`
}

func (f AppConfigForecast) GetModel() fmi.Model {
	if f.Model == nil || *f.Model == "" {
		return fmi.ModelHarmonie
	}
	return fmi.Model(strings.ToLower(*f.Model))
}

func (f AppConfigForecast) GetHours() int {
	if f.Hours == nil || *f.Hours < 0 {
		return 0
	}
	return *f.Hours
}

type AppConfigMqtt struct {
	Enabled  bool
	Host     string
	Port     int16
	Username string
	Password string
	// Topics are <topic_prefix>/<station>/..., default: "fmi"
	TopicPrefix *string `mapstructure:"topic_prefix"`
}

func (m AppConfigMqtt) GetTopicPrefix() string {
	if m.TopicPrefix == nil || *m.TopicPrefix == "" {
		return "fmi"
	}
	return strings.TrimRight(*m.TopicPrefix, "/")
}

type AppConfigGui struct {
	// Timezone for displaying times in the GUI, default: Europe/Helsinki
	Timezone *string `mapstructure:"timezone"`
}

func (g AppConfigGui) GetTimezone() string {
	if g.Timezone == nil {
		return "Europe/Helsinki"
	}
	return *g.Timezone
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for database console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

// parseLevel accepts the slog level names in any case, such as "warn" or "DEBUG-4".
func parseLevel(str *string) (slog.Level, error) {
	var lvl slog.Level
	if str == nil || strings.TrimSpace(*str) == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(*str))); err != nil {
		return slog.LevelInfo, err
	}
	return lvl, nil
}

func (l AppConfigLogging) GetDbLevel() slog.Level {
	lvl, _ := parseLevel(l.DbLevel)
	return lvl
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	if strings.EqualFold(*l.DbAttrsFormat, "text") {
		return logging.LogAttrFormatText
	}
	return logging.LogAttrFormatJSON
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	lvl, _ := parseLevel(l.ConsoleLevel)
	return lvl
}

type AppConfig struct {
	Api          AppConfigApi
	Database     AppConfigDatabase
	Fmi          AppConfigFmi
	Stations     []AppConfigStation
	Observations AppConfigObservations `mapstructure:"observations"`
	Forecast     AppConfigForecast     `mapstructure:"forecast"`
	Mqtt         AppConfigMqtt         `mapstructure:"mqtt"`
	Gui          AppConfigGui          `mapstructure:"gui"`
	Logging      AppConfigLogging      `mapstructure:"logging"`
}

func (c *AppConfig) Validate() error {
	if len(c.Stations) == 0 {
		return fmt.Errorf("no stations configured")
	}
	for i, s := range c.Stations {
		if s.Location().IsZero() {
			return fmt.Errorf("station %d: either place or fmisid must be given", i)
		}
	}
	for _, p := range c.Observations.Parameters {
		if _, err := fmi.ParameterCode(p, fmi.KindObservation); err != nil {
			return fmt.Errorf("observations: %w", err)
		}
	}
	for _, p := range c.Forecast.Parameters {
		if _, err := fmi.ParameterCode(p, fmi.KindForecast); err != nil {
			return fmt.Errorf("forecast: %w", err)
		}
	}
	if _, err := fmi.ForecastWindow(c.Forecast.GetModel(), 0, time.Now()); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if _, err := parseLevel(c.Logging.DbLevel); err != nil {
		return fmt.Errorf("logging.db_level: %w", err)
	}
	if _, err := parseLevel(c.Logging.ConsoleLevel); err != nil {
		return fmt.Errorf("logging.console_level: %w", err)
	}
	return nil
}

func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("api.port", 8080)
	v.SetDefault("database.path", "fmi.db")
	v.SetDefault("observations.parameters", []string{"temperature", "humidity", "wind_speed", "air_pressure"})
	v.SetDefault("observations.run_at", "10 * * * *")
	v.SetDefault("forecast.parameters", []string{"temperature", "humidity", "wind_speed"})
	v.SetDefault("forecast.run_at", "20 */3 * * *")
	v.SetDefault("mqtt.port", 1883)

	var c AppConfig

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config file: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &c, nil
}
