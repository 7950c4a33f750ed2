package config

// Package config provides a reusable loader for combgraph configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"combgraph/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a combgraph process. It
// mirrors the structure of the YAML files under cmd/config.
type Config struct {
	Ingest struct {
		ListenAddr        string        `mapstructure:"listen_addr" json:"listen_addr"`
		IdleTimeout       time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`
		ProbeTimeout      time.Duration `mapstructure:"probe_timeout" json:"probe_timeout"`
		ForkBufferCap     int           `mapstructure:"fork_buffer_cap" json:"fork_buffer_cap"`
		ForkRetention     time.Duration `mapstructure:"fork_retention" json:"fork_retention"`
		CleanupInterval   time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`
		OrphanHeightDelta uint64        `mapstructure:"orphan_height_delta" json:"orphan_height_delta"`
	} `mapstructure:"ingest" json:"ingest"`

	Graph struct {
		Addr           string `mapstructure:"addr" json:"addr"`
		MaxSendMsgSize int    `mapstructure:"max_send_msg_size" json:"max_send_msg_size"`
		MaxRecvMsgSize int    `mapstructure:"max_recv_msg_size" json:"max_recv_msg_size"`
		WriteDeadline  time.Duration `mapstructure:"write_deadline" json:"write_deadline"`
		WriteRetries   int    `mapstructure:"write_retries" json:"write_retries"`
	} `mapstructure:"graph" json:"graph"`

	ContentStore struct {
		GatewayURL string        `mapstructure:"gateway_url" json:"gateway_url"`
		FetchTimeout time.Duration `mapstructure:"fetch_timeout" json:"fetch_timeout"`
		CacheDir   string        `mapstructure:"cache_dir" json:"cache_dir"`
		CacheEntries int         `mapstructure:"cache_entries" json:"cache_entries"`
	} `mapstructure:"content_store" json:"content_store"`

	Registry struct {
		DataDir string `mapstructure:"data_dir" json:"data_dir"`
	} `mapstructure:"registry" json:"registry"`

	Workers struct {
		PerNetwork int `mapstructure:"per_network" json:"per_network"`
	} `mapstructure:"workers" json:"workers"`

	ReadAPI struct {
		ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`
	} `mapstructure:"read_api" json:"read_api"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Defaults applies the documented defaults from spec §5 and §6 on top of a
// zero-value Config. Load calls this before unmarshalling so that fields
// absent from the YAML file still carry sane values.
func Defaults() Config {
	var c Config
	c.Ingest.ListenAddr = ":8500"
	c.Ingest.IdleTimeout = 90 * time.Second
	c.Ingest.ProbeTimeout = 30 * time.Second
	c.Ingest.ForkBufferCap = 10_000
	c.Ingest.ForkRetention = time.Hour
	c.Ingest.CleanupInterval = 5 * time.Minute
	c.Ingest.OrphanHeightDelta = 100

	c.Graph.Addr = "127.0.0.1:9080"
	c.Graph.MaxSendMsgSize = 50 << 20
	c.Graph.MaxRecvMsgSize = 50 << 20
	c.Graph.WriteDeadline = 30 * time.Second
	c.Graph.WriteRetries = 3

	c.ContentStore.GatewayURL = "http://127.0.0.1:8080"
	c.ContentStore.FetchTimeout = 60 * time.Second
	c.ContentStore.CacheDir = "data/contentstore-cache"
	c.ContentStore.CacheEntries = 10_000

	c.Registry.DataDir = "data"
	c.Workers.PerNetwork = 4
	c.ReadAPI.ListenAddr = ":8501"
	c.Logging.Level = "info"
	return c
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	AppConfig = Defaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvPrefix("COMBGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // picks up COMBGRAPH_* overrides

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the COMBGRAPH_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("COMBGRAPH_ENV", ""))
}
