package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"HTMX-Todo/internal/api"
	"HTMX-Todo/internal/config"
	"HTMX-Todo/internal/event"
	"HTMX-Todo/internal/todo"
	"HTMX-Todo/internal/view"
	"HTMX-Todo/pkg/logger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Address string
	Reload  bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Start the HTTP server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			if opts.Address != "" {
				cfg.Server.Address = opts.Address
			}
			return runServe(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Address, "addr", "", "listen address, overrides server.address")
	cmd.Flags().BoolVar(&opts.Reload, "reload", false, "re-parse templates on every request")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts *ServeOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := logger.Init(loggerConfig(cfg.Log)); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func() {
		err = stdErrors.Join(err, logger.Sync())
	}()
	log := logger.Named("todod")

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("存储已就绪", slog.String("driver", cfg.Storage.Driver))

	queue, err := queueOpener(ctx, cfg.Events)
	if err != nil {
		return err
	}
	if queue != nil {
		defer queue.Close()
	}

	views, err := view.New(view.WithDir(cfg.Server.TemplatesDir), view.WithReload(opts.Reload))
	if err != nil {
		return err
	}

	svcOpts := []todo.ServiceOption{todo.WithLogger(logger.Named("todo"))}
	var wg sync.WaitGroup
	if queue != nil {
		svcOpts = append(svcOpts, todo.WithPublisher(queue))

		processor := event.NewProcessor(queue,
			event.WithWorkerCount(cfg.Events.Workers),
			event.WithProcessorLogger(logger.Named("events")),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := processor.Start(ctx); err != nil && !stdErrors.Is(err, context.Canceled) {
				log.Error("事件处理器退出", slog.Any("error", err))
			}
		}()
	}
	svc := todo.NewService(store, svcOpts...)

	server := api.NewServer(cfg.Server.Address, svc, views,
		api.WithAssetsDir(cfg.Server.AssetsDir),
		api.WithErrorPolicy(cfg.Server.ErrorPolicy),
		api.WithMetrics(!cfg.Server.DisableMetrics),
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout()),
		api.WithLogger(logger.Named("http")),
	)

	err = server.Start(ctx)
	cancel()
	wg.Wait()
	if stdErrors.Is(err, context.Canceled) {
		log.Info("服务已停止")
		return nil
	}
	return err
}

func loggerConfig(cfg config.LogConfig) logger.Config {
	return logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Audit.Enabled,
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
		},
	}
}
