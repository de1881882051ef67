package configure

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func checkErr(err error) {
	if err != nil {
		zap.S().Fatalw("config",
			"error", err,
		)
	}
}

func New(flags *pflag.FlagSet) *Config {
	initLogging("info")

	if err := godotenv.Load(); err == nil {
		zap.S().Debug("loaded .env file")
	}

	config := viper.New()

	// Default config
	b, _ := json.Marshal(Default())
	tmp := viper.New()
	defaultConfig := bytes.NewReader(b)
	tmp.SetConfigType("json")
	checkErr(tmp.ReadConfig(defaultConfig))
	checkErr(config.MergeConfigMap(tmp.AllSettings()))

	if flags != nil {
		checkErr(config.BindPFlags(flags))
	}

	// File
	config.SetConfigFile(config.GetString("config"))
	config.AddConfigPath(".")
	if err := config.MergeInConfig(); err != nil {
		zap.S().Debugw("config file not loaded",
			"file", config.GetString("config"),
			"error", err,
		)
	}

	// Environment
	config.AutomaticEnv()
	config.SetEnvPrefix("OPTIPIX")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AllowEmptyEnv(true)

	bindEnvs(config, Config{})

	c := &Config{}
	checkErr(config.Unmarshal(&c))

	initLogging(c.Level)

	return c
}

func bindEnvs(config *viper.Viper, iface interface{}, parts ...string) {
	ifv := reflect.ValueOf(iface)
	ift := reflect.TypeOf(iface)
	for i := 0; i < ift.NumField(); i++ {
		v := ifv.Field(i)
		t := ift.Field(i)
		tv, ok := t.Tag.Lookup("mapstructure")
		if !ok {
			continue
		}
		switch v.Kind() {
		case reflect.Struct:
			bindEnvs(config, v.Interface(), append(parts, tv)...)
		default:
			_ = config.BindEnv(strings.Join(append(parts, tv), "."))
		}
	}
}

type EngineSourceKind string

const (
	EngineSourcePath   EngineSourceKind = "path"
	EngineSourceLookup EngineSourceKind = "lookup"
	EngineSourceURL    EngineSourceKind = "url"
	EngineSourceS3     EngineSourceKind = "s3"
)

type EngineSource struct {
	Kind   EngineSourceKind `mapstructure:"kind" json:"kind"`
	Path   string           `mapstructure:"path" json:"path,omitempty"`
	URL    string           `mapstructure:"url" json:"url,omitempty"`
	Bucket string           `mapstructure:"bucket" json:"bucket,omitempty"`
	Key    string           `mapstructure:"key" json:"key,omitempty"`
}

type Config struct {
	Level      string `mapstructure:"level" json:"level"`
	ConfigFile string `mapstructure:"config" json:"config"`
	NoHeader   bool   `mapstructure:"noheader" json:"noheader"`

	API struct {
		Bind           string   `mapstructure:"bind" json:"bind"`
		Enabled        bool     `mapstructure:"enabled" json:"enabled"`
		MaxUploadBytes int      `mapstructure:"max_upload_bytes" json:"max_upload_bytes"`
		AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
		RateLimit      int      `mapstructure:"rate_limit" json:"rate_limit"`
		TimeoutSeconds int      `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	} `mapstructure:"api" json:"api"`

	Engine struct {
		Enabled            bool           `mapstructure:"enabled" json:"enabled"`
		Sources            []EngineSource `mapstructure:"sources" json:"sources"`
		ProbePath          string         `mapstructure:"probe_path" json:"probe_path"`
		CacheDir           string         `mapstructure:"cache_dir" json:"cache_dir"`
		WorkDir            string         `mapstructure:"work_dir" json:"work_dir"`
		InitTimeoutSeconds int            `mapstructure:"init_timeout_seconds" json:"init_timeout_seconds"`
	} `mapstructure:"engine" json:"engine"`

	Remote struct {
		URL            string `mapstructure:"url" json:"url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	} `mapstructure:"remote" json:"remote"`

	Image struct {
		MaxSizeBytes int `mapstructure:"max_size_bytes" json:"max_size_bytes"`
		Jobs         int `mapstructure:"jobs" json:"jobs"`
	} `mapstructure:"image" json:"image"`

	Health struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"health" json:"health"`

	S3 struct {
		Region      string `mapstructure:"region" json:"region"`
		Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
		AccessToken string `mapstructure:"access_token" json:"access_token"`
		SecretKey   string `mapstructure:"secret_key" json:"secret_key"`
	} `mapstructure:"s3" json:"s3"`

	Monitoring struct {
		Bind    string `mapstructure:"bind" json:"bind"`
		Enabled bool   `mapstructure:"enabled" json:"enabled"`
		Labels  Labels `mapstructure:"labels" json:"labels"`
	} `mapstructure:"monitoring" json:"monitoring"`
}

// Default is the configuration before any file, env or flag is applied.
func Default() Config {
	c := Config{
		Level:      "info",
		ConfigFile: "config.yaml",
	}

	c.API.Bind = "0.0.0.0:3001"
	c.API.Enabled = true
	c.API.MaxUploadBytes = 500 * 1024 * 1024
	c.API.AllowedOrigins = []string{"*"}
	c.API.RateLimit = 60
	c.API.TimeoutSeconds = 600

	c.Engine.Enabled = true
	c.Engine.Sources = []EngineSource{
		{Kind: EngineSourceLookup, Path: "ffmpeg"},
	}
	c.Engine.InitTimeoutSeconds = 120

	c.Remote.URL = "http://localhost:3001"
	c.Remote.TimeoutSeconds = 600

	c.Image.MaxSizeBytes = 1024 * 1024

	c.Health.Bind = "0.0.0.0:9000"
	c.Monitoring.Bind = "0.0.0.0:9100"

	return c
}

type Labels []struct {
	Key   string `mapstructure:"key" json:"key"`
	Value string `mapstructure:"value" json:"value"`
}

func (l Labels) ToPrometheus() prometheus.Labels {
	mp := prometheus.Labels{}

	for _, v := range l {
		mp[v.Key] = v.Value
	}

	return mp
}
