package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/vebgen/accesskit/internal/config"
	"github.com/vebgen/accesskit/internal/endpoint"
	"github.com/vebgen/accesskit/internal/ws"
	"github.com/vebgen/accesskit/pkg/applog"
	"github.com/vebgen/accesskit/pkg/crud"
	"github.com/vebgen/accesskit/pkg/useapi"
)

// pushInterval is how often the hub re-sends the state to idle clients.
const pushInterval = 5 * time.Second

var (
	serveListen string
	serveArgs   []string
)

var serveCmd = &cobra.Command{
	Use:   "serve <endpoint>",
	Short: "Keep a list endpoint loaded and stream its CRUD state",
	Long: `Serve loads a list endpoint, reloads it every serve.reload_interval and
streams the CRUD state to WebSocket clients.

Routes:
  /ws/stream   WebSocket, {"event":"state","data":{...}} on every change
  /state       the current state as JSON
  /metrics     Prometheus text exposition

Changes to log.level in the config file apply without a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: serve.listen from the config file)")
	serveCmd.Flags().StringArrayVar(&serveArgs, "arg", nil, "path argument as name=value (repeatable)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := applog.FromContext(ctx)
	name := args[0]

	ctrl, caller, err := newListController(name, serveArgs, true)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	snapshot := func() any { return ctrl.State() }
	hub := ws.New("state", snapshot, pushInterval, log)
	go hub.Run(ctx)

	unsub := caller.Subscribe(func(s useapi.State[[]endpoint.Item]) {
		if s.Error != nil {
			log.Warn("apctl: list call failed", "endpoint", name, "code", s.Error.Code, "err", s.Error.Message)
		}
	})
	defer unsub()
	stop := ctrl.Subscribe(func(crud.State[endpoint.Item, string]) { hub.Publish() })
	defer stop()

	app.metrics.GaugeFunc("accesskit_ws_clients", "Connected WebSocket clients.", func() float64 {
		return float64(hub.Count())
	})
	app.metrics.GaugeFunc("accesskit_list_items", "Items in the served list.", func() float64 {
		return float64(len(ctrl.State().Data))
	})

	// The first Evaluate issues the initial call.
	caller.Evaluate(ctx)
	go reloadLoop(ctx, app.cfg.Serve.ReloadInterval, func() {
		if _, err := ctrl.ReloadList(ctx); err != nil && ctx.Err() == nil {
			log.Debug("apctl: reload failed", "endpoint", name, "err", err)
		}
	})

	go func() {
		if err := config.Watch(ctx, configFile, onConfigChange); err != nil {
			log.Error("apctl: config watch stopped", "err", err)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws/stream", hub)
	mux.Handle("/metrics", app.metrics)
	mux.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ctrl.State()) //nolint:errcheck
	})

	addr := serveListen
	if addr == "" {
		addr = app.cfg.Serve.Listen
	}
	srv := &http.Server{Addr: addr, Handler: mux}
	errc := make(chan error, 1)
	go func() {
		log.Info("apctl: serving", "addr", addr, "endpoint", name)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("apctl: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// reloadLoop calls fn every interval until ctx is cancelled. A non-positive
// interval disables reloading.
func reloadLoop(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}

// onConfigChange applies the parts of a reloaded config that can change at
// runtime. Endpoint changes need a restart.
func onConfigChange(cfg *config.Config) {
	if err := setLevel(app.level, cfg.Log.Level); err != nil {
		app.log.Warn("apctl: ignoring log level", "err", err)
		return
	}
	app.log.Info("apctl: config reloaded", "log_level", applog.LevelName(app.level.Level()))
}
