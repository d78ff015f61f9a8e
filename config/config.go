// Package config loads the interceptor's configuration from a yaml or json file and
// overlays GETHOOK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	jsoniter "github.com/json-iterator/go"
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/network"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type LogConfig struct {
	Level     string `yaml:"Level" json:"Level" env:"LEVEL"`
	Format    string `yaml:"Format" json:"Format" env:"FORMAT"` // text or json
	Dir       string `yaml:"Dir" json:"Dir" env:"DIR"`          // empty logs to stdout
	Prefix    string `yaml:"Prefix" json:"Prefix" env:"PREFIX"`
	AddSource bool   `yaml:"AddSource" json:"AddSource" env:"ADD_SOURCE"`
}

type HookConfig struct {
	InvokeTileEditOnChestKill       bool     `yaml:"InvokeTileEditOnChestKill" json:"InvokeTileEditOnChestKill" env:"INVOKE_TILE_EDIT_ON_CHEST_KILL"`
	InvokeTileEditOnObjectPlacement bool     `yaml:"InvokeTileEditOnObjectPlacement" json:"InvokeTileEditOnObjectPlacement" env:"INVOKE_TILE_EDIT_ON_OBJECT_PLACEMENT"`
	MassWireOpTileEdit              string   `yaml:"MassWireOpTileEdit" json:"MassWireOpTileEdit" env:"MASS_WIRE_OP_TILE_EDIT"`
	TraceEvents                     []string `yaml:"TraceEvents" json:"TraceEvents" env:"TRACE_EVENTS"`
	HookPriority                    int      `yaml:"HookPriority" json:"HookPriority" env:"PRIORITY"`
}

type TcpCfg struct {
	ListenAddr        string `yaml:"ListenAddr" json:"ListenAddr" env:"LISTEN_ADDR"`
	MaxConnNum        int    `yaml:"MaxConnNum" json:"MaxConnNum"`
	PendingWriteNum   int    `yaml:"PendingWriteNum" json:"PendingWriteNum"`
	MaxMsgLen         uint32 `yaml:"MaxMsgLen" json:"MaxMsgLen"`
	ReadDeadlineMill  int    `yaml:"ReadDeadlineMill" json:"ReadDeadlineMill"`
	WriteDeadlineMill int    `yaml:"WriteDeadlineMill" json:"WriteDeadlineMill"`
}

type WSCfg struct {
	ListenAddr        string `yaml:"ListenAddr" json:"ListenAddr" env:"LISTEN_ADDR"`
	MaxConnNum        int    `yaml:"MaxConnNum" json:"MaxConnNum"`
	PendingWriteNum   int    `yaml:"PendingWriteNum" json:"PendingWriteNum"`
	MaxMsgLen         uint32 `yaml:"MaxMsgLen" json:"MaxMsgLen"`
	WriteDeadlineMill int    `yaml:"WriteDeadlineMill" json:"WriteDeadlineMill"`
	CertFile          string `yaml:"CertFile" json:"CertFile"`
	KeyFile           string `yaml:"KeyFile" json:"KeyFile"`
}

type ServerConfig struct {
	WorldWidth  int `yaml:"WorldWidth" json:"WorldWidth" env:"WORLD_WIDTH"`
	WorldHeight int `yaml:"WorldHeight" json:"WorldHeight" env:"WORLD_HEIGHT"`

	Tcp *TcpCfg         `yaml:"Tcp" json:"Tcp" envPrefix:"TCP_"`
	Ws  *WSCfg          `yaml:"Ws" json:"Ws" envPrefix:"WS_"`
	Kcp *network.KcpCfg `yaml:"Kcp" json:"Kcp"`
}

type AdminConfig struct {
	ListenAddr string `yaml:"ListenAddr" json:"ListenAddr" env:"LISTEN_ADDR"`
	GinMode    string `yaml:"GinMode" json:"GinMode" env:"GIN_MODE"`
}

type StorageConfig struct {
	Driver      string `yaml:"Driver" json:"Driver" env:"DRIVER"` // mysql, sqlite or mongo
	DSN         string `yaml:"DSN" json:"DSN" env:"DSN"`
	Database    string `yaml:"Database" json:"Database" env:"DATABASE"`
	TimeoutMill int    `yaml:"TimeoutMill" json:"TimeoutMill" env:"TIMEOUT_MILL"`
}

type RelayConfig struct {
	Backend   string   `yaml:"Backend" json:"Backend" env:"BACKEND"` // nats, kafka or redis
	Addrs     []string `yaml:"Addrs" json:"Addrs" env:"ADDRS"`
	Subject   string   `yaml:"Subject" json:"Subject" env:"SUBJECT"`
	Password  string   `yaml:"Password" json:"Password" env:"PASSWORD"`
	Events    []string `yaml:"Events" json:"Events" env:"EVENTS"`
	Encoding  string   `yaml:"Encoding" json:"Encoding" env:"ENCODING"` // json or proto
	Compress  bool     `yaml:"Compress" json:"Compress" env:"COMPRESS"`
	QueueSize int      `yaml:"QueueSize" json:"QueueSize" env:"QUEUE_SIZE"`
}

type MetadataConfig struct {
	Path string `yaml:"Path" json:"Path" env:"PATH"`
}

type Config struct {
	Log      LogConfig      `yaml:"Log" json:"Log" envPrefix:"LOG_"`
	Hook     HookConfig     `yaml:"Hook" json:"Hook" envPrefix:"HOOK_"`
	Server   ServerConfig   `yaml:"Server" json:"Server" envPrefix:"SERVER_"`
	Admin    AdminConfig    `yaml:"Admin" json:"Admin" envPrefix:"ADMIN_"`
	Storage  StorageConfig  `yaml:"Storage" json:"Storage" envPrefix:"STORAGE_"`
	Relay    RelayConfig    `yaml:"Relay" json:"Relay" envPrefix:"RELAY_"`
	Metadata MetadataConfig `yaml:"Metadata" json:"Metadata" envPrefix:"METADATA_"`
}

const EnvPrefix = "GETHOOK_"

const (
	DefaultWorldWidth  = 8400
	DefaultWorldHeight = 2400
)

func Default() *Config {
	return &Config{
		Log:  LogConfig{Level: "info", Format: "text", Prefix: "gethook"},
		Hook: HookConfig{MassWireOpTileEdit: hook.DontInvoke.String()},
		Server: ServerConfig{
			WorldWidth:  DefaultWorldWidth,
			WorldHeight: DefaultWorldHeight,
		},
		Relay: RelayConfig{Encoding: "json", QueueSize: 1024},
	}
}

// Load reads path (yaml unless it ends in .json) over the defaults, then the environment.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err = Decode(data, strings.ToLower(filepath.Ext(path)), cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Decode(data []byte, ext string, cfg *Config) error {
	if ext == ".json" {
		return json.Unmarshal(data, cfg)
	}

	return yaml.Unmarshal(data, cfg)
}

// ParseEnv overlays GETHOOK_ prefixed variables. Unset variables keep the file values.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (cfg *Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if cfg.Log.Format != "" && cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", cfg.Log.Format))
	}
	if _, err := cfg.Hook.ToHook(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Server.WorldWidth <= 0 || cfg.Server.WorldHeight <= 0 {
		errs = append(errs, fmt.Errorf("invalid world size %dx%d", cfg.Server.WorldWidth, cfg.Server.WorldHeight))
	}

	switch cfg.Storage.Driver {
	case "", "mysql", "sqlite", "mongo":
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver))
	}
	if cfg.Storage.Driver != "" && cfg.Storage.DSN == "" {
		errs = append(errs, errors.New("storage DSN is empty"))
	}

	switch cfg.Relay.Backend {
	case "":
	case "nats", "kafka", "redis":
		if len(cfg.Relay.Addrs) == 0 {
			errs = append(errs, errors.New("relay needs at least one address"))
		}
		if cfg.Relay.Subject == "" {
			errs = append(errs, errors.New("relay subject is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown relay backend %q", cfg.Relay.Backend))
	}
	if cfg.Relay.Encoding != "json" && cfg.Relay.Encoding != "proto" {
		errs = append(errs, fmt.Errorf("unknown relay encoding %q", cfg.Relay.Encoding))
	}
	for _, name := range cfg.Relay.Events {
		if _, err := event.ParseType(name); err != nil {
			errs = append(errs, fmt.Errorf("relay events: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ToHook resolves the policy name. Trace names are checked by the handler itself.
func (hc HookConfig) ToHook() (hook.Config, error) {
	policy := hook.DontInvoke
	if hc.MassWireOpTileEdit != "" {
		var err error
		if policy, err = hook.ParseMassWireOpPolicy(hc.MassWireOpTileEdit); err != nil {
			return hook.Config{}, err
		}
	}

	for _, name := range hc.TraceEvents {
		if _, err := event.ParseType(name); err != nil {
			return hook.Config{}, fmt.Errorf("trace events: %w", err)
		}
	}

	return hook.Config{
		InvokeTileEditOnChestKill:       hc.InvokeTileEditOnChestKill,
		InvokeTileEditOnObjectPlacement: hc.InvokeTileEditOnObjectPlacement,
		MassWireOpTileEdit:              policy,
		TraceEvents:                     append([]string(nil), hc.TraceEvents...),
		HookPriority:                    hc.HookPriority,
	}, nil
}

// NewLogger builds the logger described by the Log section.
func (lc LogConfig) NewLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}

	if lc.Dir != "" {
		return log.NewFileLogger(lc.Format, level, lc.Dir, lc.Prefix, lc.AddSource)
	}
	if lc.Format == "json" {
		return log.NewJsonLogger(level, os.Stdout, lc.AddSource), nil
	}
	return log.NewTextLogger(level, os.Stdout, lc.AddSource), nil
}

func Millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
