package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/controller"
	"github.com/Freeeeeet/studyroom_booking/internal/controller/handlers"
	"github.com/Freeeeeet/studyroom_booking/internal/controller/httpapi"
	"github.com/Freeeeeet/studyroom_booking/internal/notify"
	"github.com/Freeeeeet/studyroom_booking/internal/repository"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Services собранный слой сервисов, общий для сервера и CLI команд
type Services struct {
	Auth       *service.AuthService
	Bookings   *service.BookingService
	Rooms      *service.RoomService
	Ratings    *service.RatingService
	Reports    *service.ReportService
	Reputation *service.ReputationService
	Stats      *service.StatsService
	Sweep      *service.SweepService
}

// NewServices собирает репозитории и сервисы поверх пула
func NewServices(cfg *config.Config, pool *pgxpool.Pool, notifier service.Notifier, logger *zap.Logger) *Services {
	tx := base.NewTxManager(pool)
	users := repository.NewUserRepository(pool)
	rooms := repository.NewRoomRepository(pool)
	slots := repository.NewSlotRepository(pool)
	bookings := repository.NewBookingRepository(pool)
	ratings := repository.NewRatingRepository(pool)
	reports := repository.NewReportRepository(pool)

	reputation := service.NewReputationService(tx, users, bookings, reports, cfg.Location, logger)

	return &Services{
		Auth:       service.NewAuthService(users, notifier, cfg.JWTSecret, cfg.JWTTTL, cfg.Rules, logger),
		Bookings:   service.NewBookingService(tx, users, rooms, slots, bookings, reputation, cfg.Rules, cfg.Location, logger),
		Rooms:      service.NewRoomService(rooms, slots, logger),
		Ratings:    service.NewRatingService(ratings, bookings, logger),
		Reports:    service.NewReportService(reports, rooms, logger),
		Reputation: reputation,
		Stats:      service.NewStatsService(bookings),
		Sweep:      service.NewSweepService(tx, users, bookings, reputation, notifier, cfg.Rules, cfg.Location, logger),
	}
}

// NewNotifier собирает настроенные каналы уведомлений. Бот равен nil, если
// TELEGRAM_TOKEN пустой
func NewNotifier(cfg *config.Config, logger *zap.Logger) (service.Notifier, *bot.Bot, error) {
	var (
		channels []notify.Notifier
		tgBot    *bot.Bot
	)

	if cfg.TelegramToken != "" {
		b, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return nil, nil, fmt.Errorf("create telegram bot: %w", err)
		}
		tgBot = b
		channels = append(channels, notify.NewTelegram(b))
	}
	if cfg.SMTP.Enabled() {
		email, err := notify.NewEmail(cfg.SMTP)
		if err != nil {
			return nil, nil, fmt.Errorf("create email notifier: %w", err)
		}
		channels = append(channels, email)
	}

	if len(channels) == 0 {
		logger.Warn("No notification channels configured, reminders will be dropped")
		return notify.Nop{}, nil, nil
	}
	return notify.NewMulti(logger, channels...), tgBot, nil
}

// App долгоживущий процесс сервера с HTTP API, планировщиком и ботом
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	http      *http.Server
	scheduler *Scheduler
	bot       *controller.BotController
}

func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	notifier, tgBot, err := NewNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc := NewServices(cfg, pool, notifier, logger)

	api, err := httpapi.NewServer(httpapi.Deps{
		Auth:       svc.Auth,
		Bookings:   svc.Bookings,
		Rooms:      svc.Rooms,
		Ratings:    svc.Ratings,
		Reports:    svc.Reports,
		Reputation: svc.Reputation,
		Stats:      svc.Stats,
		Rules:      cfg.Rules,
		Location:   cfg.Location,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create http api: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		scheduler: NewScheduler(svc.Sweep, cfg.Rules, cfg.Location, logger),
	}

	if tgBot != nil {
		h := handlers.NewHandlers(svc.Auth, svc.Bookings, svc.Rooms, cfg.Location, logger)
		a.bot = controller.NewBotController(tgBot, h, logger)
		if err := a.bot.RegisterHandlers(ctx); err != nil {
			// меню команд не критично, бот работает и без него
			logger.Warn("Bot commands were not set", zap.Error(err))
		}
	}

	return a, nil
}

// Run блокируется до отмены ctx, затем останавливает всё по очереди
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	if a.bot != nil {
		go func() {
			if err := a.bot.Start(ctx); err != nil {
				a.logger.Error("Bot stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
