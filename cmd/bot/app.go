package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/cmd/bot/config"
	"github.com/wardenbot/warden/cmd/bot/monitoring"
	"github.com/wardenbot/warden/pkg/bot"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/request"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for the health check.
	PathHealth = "/health"
)

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the monitoring server.
	r *mux.Router

	// svr is the monitoring server.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// b routes gateway events and dispatches commands.
	b *bot.Bot
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.RegisterDiscordHandlers()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Cancel the outstanding giveaway timers.
	a.b.Shutdown()

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsAll

	a.s = dg
	a.b = bot.New(a.Logger, dg, bot.Stores{
		Config:         dataaccess.NewConfigDal(),
		Tickets:        dataaccess.NewTicketDal(),
		ReactionRoles:  dataaccess.NewReactionRoleDal(),
		CustomCommands: dataaccess.NewCustomCommandDal(),
		Blacklist:      dataaccess.NewBlacklistDal(),
	})
	return nil
}

func (a *App) RegisterDiscordHandlers() {
	a.s.AddHandler(a.readyHandler)

	// Count every gateway event by type.
	a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != "" {
			monitoring.TotalDiscordEvents.WithLabelValues(e.Type).Inc()
		}
	})

	// Track the guild gauge.
	a.s.AddHandler(func(_ *discordgo.Session, _ *discordgo.GuildCreate) {
		monitoring.TotalDiscordGuilds.Inc()
	})
	a.s.AddHandler(func(_ *discordgo.Session, _ *discordgo.GuildDelete) {
		monitoring.TotalDiscordGuilds.Dec()
	})

	a.s.AddHandler(a.b.OnMessageCreate)
	a.s.AddHandler(a.b.OnReactionAdd)
	a.s.AddHandler(a.b.OnReactionRemove)
	a.s.AddHandler(a.b.OnMemberJoin)
	a.s.AddHandler(a.b.OnChannelDelete)
}

// readyHandler records the bot's own user and applies the configured presence.
func (a *App) readyHandler(_ *discordgo.Session, r *discordgo.Ready) {
	a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	a.b.SetBotUser(r.User.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := dataaccess.NewConfigDal().Get(ctx)
	if err != nil {
		a.Error("Error getting config for presence", slog.String(logging.KeyError, err.Error()))
		return
	}

	if err := a.b.ApplyPresence(cfg); err != nil {
		a.Error("Error applying presence", slog.String(logging.KeyError, err.Error()))
	}
}

func (a *App) runServer() {
	go func() {
		a.Info("Starting monitoring server", slog.String("port", config.MonitoringPort))
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a.Logger)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) Session() *discordgo.Session {
	return a.s
}
