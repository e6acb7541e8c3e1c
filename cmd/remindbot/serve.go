package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kerhoff/remindbot/internal/api"
	"github.com/Kerhoff/remindbot/internal/chat"
	"github.com/Kerhoff/remindbot/internal/config"
	"github.com/Kerhoff/remindbot/internal/conversation"
	"github.com/Kerhoff/remindbot/internal/handlers"
	"github.com/Kerhoff/remindbot/internal/metrics"
	"github.com/Kerhoff/remindbot/internal/repository/sqlrepo"
	"github.com/Kerhoff/remindbot/internal/scheduler"
	"github.com/Kerhoff/remindbot/internal/service"
	"github.com/Kerhoff/remindbot/internal/telegram"
	"github.com/Kerhoff/remindbot/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot, the scheduler and the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)
	l.Info("Starting RemindBot...")

	// Database
	db, err := config.NewDatabase(cfg.DatabaseURL, l)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	reminderRepo := sqlrepo.NewReminderRepository(db.DB, db.Driver)
	photoRepo := sqlrepo.NewPhotoRepository(db.DB, db.Driver)

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// Telegram bot
	bot, err := telegram.NewBot(cfg.TelegramToken, l)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	// Scheduler and service layer
	sched := scheduler.New(reminderRepo, bot, l,
		scheduler.WithDeliveryTimeout(cfg.DeliveryTimeout),
		scheduler.WithMetrics(m),
	)
	svc := service.New(l, reminderRepo, photoRepo, sched, service.WithPhotoLimit(cfg.PhotoListLimit))

	// Conversation and command handlers
	machine := conversation.NewMachine(svc, conversation.NewSessions(cfg.SessionTTL, nil), l)
	dispatcher := handlers.NewDispatcher(machine, m, l)
	registerHandlers(dispatcher, svc, machine, bot, l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched.Start()
	armed, err := sched.Reconcile(ctx)
	if err != nil {
		return shutdown(l, sched, nil, db, fmt.Errorf("failed to load reminders: %w", err))
	}
	l.Infof("Armed %d reminders", armed)

	// Start HTTP server
	apiServer := api.NewServer(svc, metrics.Handler(reg), l)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Infof("HTTP server listening on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("HTTP server error: %v", err)
		}
	}()

	// Start Telegram bot polling
	go func() {
		if err := bot.Start(ctx, dispatcher); err != nil {
			l.Errorf("Bot error: %v", err)
			stop()
		}
	}()

	l.Info("RemindBot started successfully")

	<-ctx.Done()
	l.Info("Received shutdown signal...")

	return shutdown(l, sched, httpServer, db, nil)
}

func registerHandlers(d *handlers.Dispatcher, svc *service.Service, machine *conversation.Machine, notifier chat.Notifier, l *logrus.Logger) {
	schedule := handlers.NewScheduleHandler(svc, l)

	d.RegisterCommand(chat.CommandStart, handlers.NewStartHandler(l))
	d.RegisterCommand(chat.CommandHelp, handlers.NewHelpHandler(l))

	// Reminder handlers
	d.RegisterCommand(chat.CommandAdd, handlers.NewAddHandler(svc, machine, l))
	d.RegisterCommand(chat.CommandList, handlers.NewListHandler(svc, l))
	d.RegisterCommand(chat.CommandEdit, handlers.NewEditHandler(machine, l))
	d.RegisterCommand(chat.CommandDelete, handlers.NewDeleteHandler(svc, l))

	// Schedule handlers
	d.RegisterCommand(chat.CommandSchedule, schedule)
	d.RegisterCommand(chat.CommandToday, schedule)
	d.RegisterCommand(chat.CommandTomorrow, schedule)
	d.RegisterCommand(chat.CommandWeek, schedule)
	d.RegisterCommand(chat.CommandMonth, schedule)
	d.RegisterSelection(handlers.ScheduleTagPrefix, schedule)

	// Photo handlers
	d.RegisterCommand(chat.CommandAddPhoto, handlers.NewAddPhotoHandler(machine))
	d.RegisterCommand(chat.CommandPhotos, handlers.NewPhotosHandler(svc, notifier, l))
}

type closer interface{ Close() error }

// shutdown stops the scheduler, the HTTP server and the database in that order
// and collects every failure along with cause.
func shutdown(l *logrus.Logger, sched *scheduler.Scheduler, httpServer *http.Server, db closer, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if cause != nil {
		result = multierror.Append(result, cause)
	}

	l.Info("Stopping scheduler...")
	if err := sched.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("stop scheduler: %w", err))
	}
	if httpServer != nil {
		l.Info("Shutting down HTTP server...")
		if err := httpServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown HTTP server: %w", err))
		}
	}
	if err := db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	l.Info("RemindBot stopped")
	return nil
}
