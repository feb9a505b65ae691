package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/studyroom_booking/internal/app"
	"github.com/Freeeeeet/studyroom_booking/internal/config"
	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/notify"
	"github.com/Freeeeeet/studyroom_booking/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "studyroom",
		Short:         "Library study room booking service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSweepCmd(), newUserCmd())
	return root
}

// runtime is what every subcommand needs: config, logger and a live pool.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pool   *pgxpool.Pool
}

func setup(ctx context.Context) (*runtime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)

	pool, err := app.NewPool(ctx, cfg.DBDSN, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = logger.Sync()
	}
	return &runtime{cfg: cfg, logger: logger, pool: pool}, cleanup, nil
}

func newServeCmd() *cobra.Command {
	var skipMigrations bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, background scheduler and Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			rt.logger.Info("Starting studyroom",
				zap.String("environment", rt.cfg.Environment),
				zap.String("timezone", rt.cfg.Location.String()),
				zap.Bool("telegram", rt.cfg.TelegramToken != ""),
				zap.Bool("email", rt.cfg.SMTP.Enabled()),
			)

			if !skipMigrations {
				if err := migrate(ctx, rt, "up"); err != nil {
					return err
				}
			}

			a, err := app.New(ctx, rt.cfg, rt.pool, rt.logger)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply pending migrations on start")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Manage the database schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			rt, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			return migrate(cmd.Context(), rt, action)
		},
	}
}

func migrate(ctx context.Context, rt *runtime, action string) error {
	m, err := app.NewMigrator(rt.pool, rt.logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch action {
	case "up":
		return m.Run(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		return m.Status(ctx)
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}
}

// newSweepCmd runs one expiration pass, for cron setups without the scheduler.
func newSweepCmd() *cobra.Command {
	var reminders bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire overdue bookings once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			notifier, _, err := app.NewNotifier(rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			svc := app.NewServices(rt.cfg, rt.pool, notifier, rt.logger)

			expired, err := svc.Sweep.ExpireOverdue(ctx)
			rt.logger.Info("Sweep finished", zap.Int("expired", expired))
			if err != nil {
				return err
			}

			if reminders {
				sent, err := svc.Sweep.SendReminders(ctx)
				rt.logger.Info("Reminders finished", zap.Int("sent", sent))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reminders, "reminders", false, "also send due reminders")
	return cmd
}

// newUserCmd bootstraps accounts, mainly the first admin.
func newUserCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var in service.RegisterInput
	var role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			in.Role = model.Role(role)
			svc := app.NewServices(rt.cfg, rt.pool, notify.Nop{}, rt.logger)
			u, err := svc.Auth.Register(ctx, in)
			if err != nil {
				return err
			}
			fmt.Printf("created user %d (%s, %s)\n", u.ID, u.Code, u.Role)
			return nil
		},
	}
	create.Flags().StringVar(&in.Code, "code", "", "student or employee number")
	create.Flags().StringVar(&in.Email, "email", "", "email address")
	create.Flags().StringVar(&in.FullName, "name", "", "full name")
	create.Flags().StringVar(&in.Password, "password", "", "initial password")
	create.Flags().StringVar(&role, "role", string(model.RoleStudent), "student, staff or admin")
	for _, f := range []string{"code", "email", "name", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	user.AddCommand(create)
	return user
}
