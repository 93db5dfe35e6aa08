package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Bookaj/footalk/engine"
	"github.com/Bookaj/footalk/profile"
	"github.com/Bookaj/footalk/settings"
	"github.com/Bookaj/footalk/sink"
	"github.com/Bookaj/footalk/transport"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine for one page",
		Long: "Read watcher envelopes (snapshot, batch, pointer) as JSON lines on stdin and write\n" +
			"text patches and overlay states to the configured sinks and to /ws page clients.\n" +
			"State updates arrive over HTTP, the page socket, Redis pub/sub and settings-file changes.",
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().Bool("exit-on-eof", false, "Stop when stdin is exhausted")
	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	exitOnEOF, _ := cmd.Flags().GetBool("exit-on-eof")

	a, err := setup()
	if err != nil {
		return err
	}
	log := a.logger
	cfg := a.cfg

	store, err := a.openSettings()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	host := cfg.PageHost()
	set, err := store.Load(ctx)
	if err != nil {
		log.Warn("footalk: settings unreadable, using defaults", "error", err)
		set = settings.Defaults()
	}
	initial := set.Resolve(host)

	var wg sync.WaitGroup
	var hub *transport.Hub
	var extra []sink.Sink
	if cfg.HTTP.Addr != "" {
		hub = transport.NewHub(log)
		extra = append(extra, hub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Run(ctx)
		}()
	}
	out := buildSinks(a, extra...)
	defer out.Close()

	eng := engine.New(engine.Config{
		Resolver: profile.NewResolver(a.reg),
		Sink:     out,
		Logger:   log,
		Initial:  initial,
		PageURL:  cfg.Page.URL,
		PageID:   cfg.Page.ID,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run(ctx)
	}()
	log.Info("footalk: engine started", "host", host, "language", initial.Language,
		"level", initial.Level, "enabled", initial.Enabled)

	watcher := settings.NewWatcher(store, settings.WatchOptions{
		Interval: cfg.Settings.WatchInterval,
		Debounce: cfg.Settings.WatchDebounce,
		Logger:   log,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Follow(ctx, host, initial, func(ctx context.Context, p engine.Partial) error {
			ack, err := transport.Dispatch(ctx, eng, transport.UpdateMessage(p))
			if err == nil {
				log.Debug("footalk: settings change applied", "status", ack.Status)
			}
			return err
		})
	}()

	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr: cfg.HTTP.Addr,
			Handler: transport.NewHandler(eng, a.reg,
				transport.WithLogger(log),
				transport.WithSocket(hub),
				transport.WithFilter(func(ctx context.Context) profile.Filter {
					s, err := store.Load(ctx)
					if err != nil {
						return profile.DefaultFilter()
					}
					return s.Filter
				})),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("footalk: http listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("footalk: http server", "error", err)
			}
		}()
	}

	if cfg.Redis.URL != "" {
		rdb, err := newRedis(cfg.Redis.URL)
		if err != nil {
			return a.fail("redis", err)
		}
		defer rdb.Close()
		bus := transport.NewRedisBus(rdb, host, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bus.Subscribe(ctx, eng); err != nil {
				log.Warn("footalk: redis transport down", "error", err)
			}
		}()
	}

	// Not in wg: a read blocked on stdin does not return on cancel.
	streamDone := make(chan struct{})
	go func() {
		defer close(streamDone)
		if err := transport.ReadStream(ctx, os.Stdin, eng, log); err != nil {
			log.Warn("footalk: stdin", "error", err)
		}
	}()
	select {
	case <-ctx.Done():
	case <-streamDone:
		if !exitOnEOF {
			log.Debug("footalk: stdin closed, serving until signal")
			<-ctx.Done()
		}
	}

	log.Info("footalk: shutting down")
	if srv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		srv.Shutdown(shutdownCtx)
		cancelShutdown()
	}
	cancel()
	wg.Wait()
	return nil
}

func buildSinks(a *app, extra ...sink.Sink) sink.Sink {
	sinks := extra
	for _, sc := range a.cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "webhook":
			sinks = append(sinks, sink.NewWebhook(sc.URL, sink.WithWebhookLogger(a.logger)))
		}
	}
	return sink.NewRouter(a.logger, sinks...)
}

func newRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

// notifier picks the transport a control command reaches the engine by.
func notifier(a *app, via string, host string) (transport.Notifier, func(), error) {
	switch via {
	case "http":
		return transport.NewClient("http://"+a.cfg.HTTP.Addr, nil), func() {}, nil
	case "redis":
		if a.cfg.Redis.URL == "" {
			return nil, nil, errors.New("redis.url is not configured")
		}
		rdb, err := newRedis(a.cfg.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		return transport.NewRedisBus(rdb, host, a.logger), func() { rdb.Close() }, nil
	case "none":
		return nil, func() {}, nil
	}
	return nil, nil, errors.New("notify must be http, redis or none")
}

