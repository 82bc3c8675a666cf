// Package daemon runs the long-lived paludario process.
//
// The daemon:
// 1. Loads the aggregate (local first, then remote)
// 2. Schedules the periodic remote check
// 3. Serves the dashboard WebSocket and optionally publishes to MQTT
// 4. Reloads the config file when it changes
// 5. Flushes pending changes on shutdown
package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tia2694/paludario/internal/config"
	"github.com/tia2694/paludario/internal/notify"
	syncstore "github.com/tia2694/paludario/internal/sync"
)

// Config holds configuration for the daemon.
type Config struct {
	// ServeDashboard starts the WebSocket server on Port (0 picks a free port)
	ServeDashboard bool
	Port           int

	// MQTT enables publishing when non-nil
	MQTT *notify.MQTTConfig

	// ConfigFile is watched for changes when set
	ConfigFile string

	// ShutdownTimeout bounds the final save
	ShutdownTimeout time.Duration

	// Logger for daemon activity
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ShutdownTimeout: 10 * time.Second,
		Logger:          zap.NewNop(),
	}
}

// FromAppConfig derives the daemon settings from the application config.
func FromAppConfig(c config.Config, logger *zap.Logger) *Config {
	cfg := DefaultConfig()
	cfg.ServeDashboard = c.Notify.Port > 0
	cfg.Port = c.Notify.Port
	cfg.ConfigFile = c.File
	if c.Notify.MQTTBroker != "" {
		cfg.MQTT = &notify.MQTTConfig{
			Broker:   c.Notify.MQTTBroker,
			Topic:    c.Notify.MQTTTopic,
			Retained: true,
		}
	}
	if logger != nil {
		cfg.Logger = logger
	}
	return cfg
}

// TokenSetter receives token changes from config reloads.
type TokenSetter interface {
	Token() string
	SetToken(string)
}

// Daemon orchestrates loading, auto-sync and notifications.
type Daemon struct {
	store  *syncstore.Store
	tokens TokenSetter
	config *Config
	logger *zap.Logger

	server    *notify.Server
	publisher *notify.MQTTPublisher
	handler   *notify.Handler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce sync.Once
	started  chan struct{}
}

// New creates a daemon around store. tokens may be nil.
func New(store *syncstore.Store, tokens TokenSetter, config *Config) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:   store,
		tokens:  tokens,
		config:  config,
		logger:  config.Logger,
		ctx:     ctx,
		cancel:  cancel,
		started: make(chan struct{}),
	}, nil
}

// Start runs the daemon. It blocks until ctx is cancelled or Stop is called.
func (d *Daemon) Start(ctx context.Context) error {
	d.logger.Info("starting daemon")

	var publishers []notify.Publisher
	if d.config.MQTT != nil {
		p, err := notify.NewMQTTPublisher(*d.config.MQTT, d.logger.Named("mqtt"))
		if err != nil {
			d.cancel()
			return fmt.Errorf("failed to start mqtt publisher: %w", err)
		}
		d.publisher = p
		publishers = append(publishers, p)
	}

	if d.config.ServeDashboard {
		d.server = notify.NewServer(&notify.Config{
			Port:   d.config.Port,
			State:  func() any { return d.store.Snapshot() },
			Logger: d.logger.Named("notify"),
		})
		if err := d.server.Start(); err != nil {
			d.server = nil
			d.cancel()
			d.closePublisher()
			return fmt.Errorf("failed to start dashboard server: %w", err)
		}
	}

	if d.server != nil || len(publishers) > 0 {
		var b notify.Broadcaster
		if d.server != nil {
			b = d.server
		}
		d.handler = notify.NewHandler(b, d.logger.Named("notify"), publishers...)
		d.store.Subscribe(d.handler)
	}

	out := d.store.Load(d.ctx)
	d.logger.Info("initial load", zap.Stringer("outcome", out))

	if err := d.store.StartAutoSync(d.ctx); err != nil {
		_ = d.Stop()
		return fmt.Errorf("failed to start auto-sync: %w", err)
	}

	if d.config.ConfigFile != "" {
		w, err := config.NewWatcher(d.config.ConfigFile, d.logger.Named("config"))
		if err != nil {
			d.logger.Warn("config reload disabled", zap.Error(err))
		} else {
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				w.Run(d.ctx, d.applyConfig)
			}()
		}
	}

	close(d.started)

	select {
	case <-ctx.Done():
		d.logger.Info("shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Started is closed once Start has finished starting every component.
func (d *Daemon) Started() <-chan struct{} {
	return d.started
}

// Addr returns the dashboard address, empty when the server is disabled.
func (d *Daemon) Addr() string {
	if d.server == nil {
		return ""
	}
	return d.server.Addr()
}

// applyConfig applies the settings that can change without a restart.
func (d *Daemon) applyConfig(c config.Config) {
	if err := d.store.SetAutoSyncInterval(d.ctx, c.Sync.Interval); err != nil {
		d.logger.Warn("failed to apply sync interval", zap.Error(err))
	}
	if d.tokens != nil && c.GitHub.Token != "" && c.GitHub.Token != d.tokens.Token() {
		d.tokens.SetToken(c.GitHub.Token)
		d.logger.Info("github token updated")
	}
}

// Stop gracefully shuts down the daemon and saves pending changes.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.logger.Info("stopping daemon")

		d.store.StopAutoSync()
		d.cancel()
		d.wg.Wait()

		if st := d.store.Status(); st.RemoteConfigured && st.Pending {
			ctx, cancel := context.WithTimeout(context.Background(), d.config.ShutdownTimeout)
			out := d.store.Save(ctx)
			cancel()
			d.logger.Info("final save", zap.Stringer("outcome", out))
		}

		if d.handler != nil {
			d.handler.Close()
		}
		if d.server != nil {
			if stopErr := d.server.Stop(); stopErr != nil {
				err = stopErr
			}
		}
		d.closePublisher()

		d.logger.Info("daemon stopped")
	})
	return err
}

func (d *Daemon) closePublisher() {
	if d.publisher != nil {
		d.publisher.Close()
	}
}
