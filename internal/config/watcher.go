package config

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Watcher serves the latest valid configuration and reloads it when the file changes.
// An invalid edit is logged and ignored; the previous configuration stays active.
type Watcher struct {
	v       *viper.Viper
	current atomic.Pointer[Config]
	log     logger.LoggerInterface

	mu        sync.Mutex
	listeners []func(*Config)
}

// NewWatcher loads configPath and starts watching it when a file was found.
func NewWatcher(configPath string, log logger.LoggerInterface) (*Watcher, error) {
	v := newViper(configPath)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	w := &Watcher{v: v, log: log}
	w.current.Store(cfg)

	if fileFound {
		v.OnConfigChange(w.onChange)
		v.WatchConfig()
	}

	return w, nil
}

// NewStaticWatcher serves a fixed configuration. Used by tests and embedders.
func NewStaticWatcher(cfg *Config) *Watcher {
	w := &Watcher{}
	w.current.Store(cfg)
	return w
}

// Current returns the active configuration. Callers must not mutate it.
func (w *Watcher) Current() *Config {
	return w.current.Load()
}

// OnReload registers fn to run after each successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

func (w *Watcher) onChange(e fsnotify.Event) {
	ctx := context.Background()

	cfg, err := decode(w.v)
	if err != nil {
		w.log.Warn(ctx, "config reload rejected, keeping previous", "file", e.Name, "error", err)
		return
	}

	prev := w.current.Swap(cfg)
	if prev != nil {
		cfg.App.TUIMode = prev.App.TUIMode
	}
	w.log.Info(ctx, "config reloaded", "file", e.Name, "executor_mode", cfg.Executor.Mode)

	w.mu.Lock()
	listeners := append([]func(*Config){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}
}
