package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"Kirana/api"
	"Kirana/assistant"
	"Kirana/bot"
	"Kirana/core"
	"Kirana/holder"
	"Kirana/lib/sl"
	"Kirana/metrics"
	"Kirana/storage"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "kirana",
		Short:        "Kirana store support chat",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// a missing .env is normal outside development
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "conf", "config.yml", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP API and the optional Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Upsert the sample Kirana catalogue into MongoDB",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return seed(cmd.Context(), configPath)
		},
	})
	return root
}

func serve(ctx context.Context, configPath string) error {
	conf, err := core.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(conf.Env)
	log.With(
		slog.String("config", configPath),
		slog.String("env", conf.Env),
		slog.String("listen", conf.HTTP.Listen),
		slog.String("store_id", conf.Catalog.StoreId),
	).Info("starting kirana chat")

	chat := buildAssistant(conf, log)
	defer func() {
		if err := chat.Close(); err != nil {
			log.Error("closing chat service", sl.Err(err))
		}
	}()

	var tgBot *bot.TgBot
	if conf.Telegram.Enabled {
		tgBot, err = bot.NewTgBot(conf, log)
		if err != nil {
			log.With(sl.Secret(conf.Telegram.ApiKey)).Error("creating telegram", sl.Err(err))
			return err
		}
		tgBot.SetChat(chat)
	}

	reg := metrics.NewRegistry()
	chat.SetObserver(metrics.NewChatMetrics(reg))

	srv := &http.Server{
		Addr: conf.HTTP.Listen,
		Handler: api.NewRouter(chat, api.RouterConfig{
			FrontendURL: conf.HTTP.FrontendURL,
			UserHeader:  conf.HTTP.UserHeader,
			AuthToken:   conf.HTTP.AuthToken,
			Metrics:     metrics.Handler(reg),
		}, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if tgBot != nil {
		g.Go(func() error {
			log.Info("telegram bot started")
			return tgBot.Start(gCtx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("stopped with error", sl.Err(err))
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// buildAssistant selects the storage once at startup; the assistant only
// ever sees the interfaces.
func buildAssistant(conf *core.Config, log *slog.Logger) *assistant.Assistant {
	var (
		sessions storage.SessionStore
		catalog  storage.Catalog
		orders   storage.OrderHistory
	)

	if conf.Mongo.Enabled {
		client, err := storage.Connect(conf.MongoURI())
		if err != nil {
			log.With(
				slog.String("db", conf.Mongo.Database),
				slog.String("user", conf.Mongo.User),
				slog.String("host", conf.Mongo.Host),
				sl.Secret(conf.Mongo.Password),
			).Error("falling back to memory", sl.Err(err))
		} else {
			sessions = storage.NewMongoStorage(client, conf.Mongo.Database, log)
			catalog = storage.NewMongoCatalog(client, conf.Mongo.Database, conf.Catalog.StoreId, log)
			orders = storage.NewMongoOrders(client, conf.Mongo.Database, log)
			log.Info("using MongoDB storage")
		}
	}
	if sessions == nil {
		memCatalog := storage.NewMemoryCatalog(conf.Catalog.StoreId)
		for _, p := range storage.SampleProducts() {
			p.StoreId = conf.Catalog.StoreId
			memCatalog.Upsert(p)
		}
		sessions = storage.NewMemoryStorage()
		catalog = memCatalog
		orders = storage.NewMemoryOrders()
		log.Info("using in-memory storage")
	}

	chat := assistant.NewAssistant(holder.NewSessionHolder(sessions), catalog, orders, log)
	chat.SetMaxTurns(conf.Chat.MaxTurns)
	return chat
}

func seed(ctx context.Context, configPath string) error {
	conf, err := core.Load(configPath)
	if err != nil {
		return err
	}
	log := setupLogger(conf.Env)

	client, err := storage.Connect(conf.MongoURI())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("disconnecting", sl.Err(err))
		}
	}()

	catalog := storage.NewMongoCatalog(client, conf.Mongo.Database, conf.Catalog.StoreId, log)
	n, err := catalog.UpsertProducts(ctx, storage.SampleProducts())
	if err != nil {
		return err
	}
	log.With(slog.Int64("count", n), slog.String("db", conf.Mongo.Database)).Info("catalogue seeded")
	return nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal, envDev:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
