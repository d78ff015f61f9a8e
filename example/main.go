package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/tilegate/gethook/admin"
	"github.com/tilegate/gethook/config"
	"github.com/tilegate/gethook/event"
	"github.com/tilegate/gethook/gameserver"
	"github.com/tilegate/gethook/hook"
	"github.com/tilegate/gethook/host"
	"github.com/tilegate/gethook/log"
	"github.com/tilegate/gethook/metadata"
	"github.com/tilegate/gethook/network"
	"github.com/tilegate/gethook/packet"
	"github.com/tilegate/gethook/player"
	"github.com/tilegate/gethook/relay"
	"github.com/tilegate/gethook/storage"
	"github.com/tilegate/gethook/world"
)

type serverMeta struct {
	TraceEvents []string  `yaml:"TraceEvents"`
	StartCount  int       `yaml:"StartCount"`
	LastStart   time.Time `yaml:"LastStart"`
}

func main() {
	configPath := flag.String("config", "", "yaml or json config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return err
	}
	log.Export(logger)
	defer log.Close()

	hookCfg, err := cfg.Hook.ToHook()
	if err != nil {
		return err
	}

	var meta *metadata.File[serverMeta]
	if cfg.Metadata.Path != "" {
		meta, err = metadata.Open(cfg.Metadata.Path, func() serverMeta {
			return serverMeta{TraceEvents: hookCfg.TraceEvents}
		})
		if err != nil {
			return err
		}
		if saved := meta.Get().TraceEvents; len(saved) > 0 {
			hookCfg.TraceEvents = saved
		}
		if err = meta.Update(func(m *serverMeta) {
			m.StartCount++
			m.LastStart = time.Now()
		}); err != nil {
			log.Warning("update metadata fail", log.ErrorAttr("err", err))
		}
	}

	tiles := world.NewTileMap(cfg.Server.WorldWidth, cfg.Server.WorldHeight)
	players := player.NewRegistry()
	netGetData := &host.NetGetData{}

	handler, err := hook.New("gethook", netGetData, tiles, players, hookCfg)
	if err != nil {
		return err
	}
	defer handler.Dispose()

	var accounts player.AccountStore
	if cfg.Storage.Driver != "" {
		store, err := storage.Open(context.Background(), storage.Config{
			Driver:   cfg.Storage.Driver,
			DSN:      cfg.Storage.DSN,
			Database: cfg.Storage.Database,
			Timeout:  config.Millis(cfg.Storage.TimeoutMill),
		})
		if err != nil {
			return err
		}
		defer store.Close()

		if err = store.EnsureDataStructure(context.Background()); err != nil {
			return err
		}
		accounts = storage.AccountLookup{Store: store, Timeout: config.Millis(cfg.Storage.TimeoutMill)}
	}

	subscribe(handler, tiles, players, accounts)

	var rl *relay.Relay
	if cfg.Relay.Backend != "" {
		if rl, err = newRelay(handler, cfg.Relay); err != nil {
			return err
		}
		rl.Start()
		defer rl.Close()
	}

	gs := gameserver.NewServer(players, netGetData, func(whoAmI int, tag packet.Type, payload []byte) {
		log.Trace("default processing", log.Int("whoAmI", whoAmI), log.String("tag", tag.String()), log.Int("len", len(payload)))
	})
	listen(gs, cfg.Server)
	if err = gs.Start(); err != nil {
		return err
	}
	defer gs.Close()

	if cfg.Admin.ListenAddr != "" {
		adminServer := admin.New(cfg.Admin.ListenAddr, handler, players)
		if meta != nil {
			adminServer.OnTraceChange = func(events []string) {
				if err := meta.Update(func(m *serverMeta) { m.TraceEvents = events }); err != nil {
					log.Error("save trace events fail", log.ErrorAttr("err", err))
				}
			}
		}
		if rl != nil {
			adminServer.AddStatus("relay", func() any { return rl.Stats() })
		}
		adminServer.AddStatus("connections", func() any { return gs.GetConnNum() })
		if err = adminServer.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			adminServer.Stop(ctx)
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", log.String("signal", s.String()))
	return nil
}

func listen(gs *gameserver.Server, cfg config.ServerConfig) {
	if tcp := cfg.Tcp; tcp != nil {
		gs.ListenTCP(&network.TCPServer{
			Addr:            tcp.ListenAddr,
			MaxConnNum:      tcp.MaxConnNum,
			PendingWriteNum: tcp.PendingWriteNum,
			MaxMsgLen:       tcp.MaxMsgLen,
			ReadDeadline:    config.Millis(tcp.ReadDeadlineMill),
			WriteDeadline:   config.Millis(tcp.WriteDeadlineMill),
		})
		gs.ReadTimeout = config.Millis(tcp.ReadDeadlineMill)
	}
	if ws := cfg.Ws; ws != nil {
		gs.ListenWS(&network.WSServer{
			Addr:            ws.ListenAddr,
			MaxConnNum:      ws.MaxConnNum,
			PendingWriteNum: ws.PendingWriteNum,
			MaxMsgLen:       ws.MaxMsgLen,
			WriteDeadline:   config.Millis(ws.WriteDeadlineMill),
			CertFile:        ws.CertFile,
			KeyFile:         ws.KeyFile,
		})
	}
	if cfg.Kcp != nil {
		kcpServer := &network.KCPServer{}
		kcpServer.Init(cfg.Kcp)
		gs.ListenKCP(kcpServer)
	}
}

func newRelay(source relay.Source, cfg config.RelayConfig) (*relay.Relay, error) {
	var (
		publisher relay.Publisher
		err       error
	)
	switch cfg.Backend {
	case "nats":
		publisher, err = relay.NewNatsPublisher(cfg.Addrs, 0)
	case "kafka":
		var producerCfg *sarama.Config
		if producerCfg, err = relay.NewProducerConfig("", sarama.WaitForLocal); err == nil {
			publisher, err = relay.NewKafkaPublisher(cfg.Addrs, producerCfg)
		}
	case "redis":
		publisher = relay.NewRedisPublisher(cfg.Addrs[0], cfg.Password, 8)
	default:
		err = fmt.Errorf("unknown relay backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	events := make([]event.Type, 0, len(cfg.Events))
	for _, name := range cfg.Events {
		typ, err := event.ParseType(name)
		if err != nil {
			publisher.Close()
			return nil, err
		}
		events = append(events, typ)
	}

	rl, err := relay.New(source, publisher, relay.Config{
		Subject:   cfg.Subject,
		Events:    events,
		Encoding:  cfg.Encoding,
		Compress:  cfg.Compress,
		QueueSize: cfg.QueueSize,
	})
	if err != nil {
		publisher.Close()
		return nil, err
	}
	return rl, nil
}

// subscribe keeps the tile map in step with accepted edits, blocks edits from disabled
// players and resolves accounts on spawn.
func subscribe(handler *hook.Handler, tiles *world.TileMap, players *player.Registry, accounts player.AccountStore) {
	hook.On(handler.Registry, func(ev *event.TileEditEvent) error {
		if ev.Sender().IsBeingDisabled() {
			ev.SetHandled(true)
			return nil
		}

		switch ev.EditType {
		case event.TileKill, event.TileKillNoItem:
			tiles.ClearTile(ev.Location.X, ev.Location.Y)
		case event.PlaceTile:
			tiles.SetTile(ev.Location.X, ev.Location.Y, ev.BlockType)
		}
		return nil
	})

	hook.On(handler.Registry, func(ev *event.ChestPlaceEvent) error {
		tiles.SetTile(ev.Location.X, ev.Location.Y, ev.TileType())
		return nil
	})

	hook.On(handler.Registry, func(ev *event.SignEditEvent) error {
		log.Info("sign edit", log.String("player", ev.Sender().Name), log.Int("sign", ev.SignIndex),
			log.Int("x", ev.Location.X), log.Int("y", ev.Location.Y))
		return nil
	})

	hook.On(handler.Registry, func(ev *event.PlayerSpawnEvent) error {
		p := ev.Sender()
		p.TileX, p.TileY = ev.SpawnTileLocation.X, ev.SpawnTileLocation.Y
		if p.Name == "" {
			return nil
		}

		account, err := players.MatchAccount(accounts, p.Name)
		if err != nil {
			return fmt.Errorf("resolve account of %s: %w", p.Name, err)
		}
		p.AccountID, p.AccountName = account.ID, account.Name
		return nil
	})
}
