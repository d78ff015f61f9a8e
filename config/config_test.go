package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tilegate/gethook/hook"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const yamlCfg = `
Log:
  Level: debug
Hook:
  InvokeTileEditOnChestKill: true
  MassWireOpTileEdit: ForEach
  TraceEvents: [ChatText, TileEdit]
  HookPriority: 5
Server:
  WorldWidth: 400
  WorldHeight: 300
  Tcp:
    ListenAddr: 127.0.0.1:7777
    ReadDeadlineMill: 60000
  Kcp:
    ListenAddr: 127.0.0.1:7778
    Mtu: 1200
`

func TestLoadYaml(t *testing.T) {
	cfg, err := Load(writeFile(t, "gethook.yaml", yamlCfg))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if cfg.Server.WorldWidth != 400 || cfg.Server.Tcp == nil || cfg.Server.Tcp.ListenAddr != "127.0.0.1:7777" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if Millis(cfg.Server.Tcp.ReadDeadlineMill).Seconds() != 60 {
		t.Fatalf("read deadline = %d", cfg.Server.Tcp.ReadDeadlineMill)
	}
	if cfg.Server.Ws != nil {
		t.Fatal("ws section appeared from nowhere")
	}
	if cfg.Server.Kcp == nil || cfg.Server.Kcp.Mtu == nil || *cfg.Server.Kcp.Mtu != 1200 {
		t.Fatalf("kcp = %+v", cfg.Server.Kcp)
	}

	hc, err := cfg.Hook.ToHook()
	if err != nil {
		t.Fatal(err)
	}
	if !hc.InvokeTileEditOnChestKill || hc.MassWireOpTileEdit != hook.ForEach || hc.HookPriority != 5 || len(hc.TraceEvents) != 2 {
		t.Fatalf("hook config = %+v", hc)
	}
}

func TestLoadJson(t *testing.T) {
	path := writeFile(t, "gethook.json", `{"Hook":{"MassWireOpTileEdit":"AlwaysPlaceWire"},"Relay":{"Backend":"nats","Addrs":["nats://127.0.0.1:4222"],"Subject":"gethook.events"}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Hook.MassWireOpTileEdit != "AlwaysPlaceWire" || cfg.Relay.Backend != "nats" || cfg.Relay.QueueSize != 1024 {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("GETHOOK_LOG_LEVEL", "warning")
	t.Setenv("GETHOOK_HOOK_TRACE_EVENTS", "SignEdit,ChestOpen")
	t.Setenv("GETHOOK_SERVER_TCP_LISTEN_ADDR", "0.0.0.0:9999")
	t.Setenv("GETHOOK_STORAGE_DRIVER", "sqlite")
	t.Setenv("GETHOOK_STORAGE_DSN", "file:test.db")

	cfg, err := Load(writeFile(t, "gethook.yml", yamlCfg))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "warning" {
		t.Fatalf("level = %s", cfg.Log.Level)
	}
	if strings.Join(cfg.Hook.TraceEvents, ",") != "SignEdit,ChestOpen" {
		t.Fatalf("trace = %v", cfg.Hook.TraceEvents)
	}
	if cfg.Server.Tcp.ListenAddr != "0.0.0.0:9999" {
		t.Fatalf("tcp addr = %s", cfg.Server.Tcp.ListenAddr)
	}
	if cfg.Hook.HookPriority != 5 {
		t.Fatalf("unset variable overwrote file value: %d", cfg.Hook.HookPriority)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("driver = %s", cfg.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"level", func(c *Config) { c.Log.Level = "loud" }, "unknown level"},
		{"policy", func(c *Config) { c.Hook.MassWireOpTileEdit = "Sometimes" }, "mass wire policy"},
		{"trace", func(c *Config) { c.Hook.TraceEvents = []string{"Nope"} }, "trace events"},
		{"world", func(c *Config) { c.Server.WorldHeight = 0 }, "world size"},
		{"driver", func(c *Config) { c.Storage.Driver = "oracle"; c.Storage.DSN = "x" }, "storage driver"},
		{"dsn", func(c *Config) { c.Storage.Driver = "mysql" }, "DSN"},
		{"relay addrs", func(c *Config) { c.Relay.Backend = "kafka"; c.Relay.Subject = "s" }, "address"},
		{"relay events", func(c *Config) { c.Relay.Events = []string{"Bogus"} }, "relay events"},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err = %v, want %q", tc.name, err, tc.want)
		}
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file loaded")
	}
}
