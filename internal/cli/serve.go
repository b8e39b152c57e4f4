package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/terraincognita07/mealplans/internal/api"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the maintenance loop",
		Long: `Run the HTTP API. Unless SWEEP_INTERVAL is 0, expired plans are swept
and due reminders delivered on every interval tick.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(options)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.cfg.ValidateSecretKey(); err != nil {
				return err
			}

			sigCtx, stopSignals := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stopSignals()

			engine, err := rt.engine(sigCtx)
			if err != nil {
				return err
			}
			handler, err := api.NewHandler(api.HandlerDependencies{
				Engine:          engine,
				Auth:            newAuthService(rt),
				Clients:         rt.repos.Clients,
				Location:        rt.cfg.Location,
				Logger:          rt.logger,
				CookieSecure:    rt.cfg.CookieSecure,
				DefaultLanguage: rt.cfg.DefaultLanguage,
			})
			if err != nil {
				return err
			}

			app := fiber.New(fiber.Config{
				AppName:               "mealplans",
				DisableStartupMessage: true,
			})
			app.Use(recover.New())
			app.Use(logger.New(logger.Config{Output: rt.logger.Writer()}))
			api.RegisterRoutes(app, handler)

			engine.StartMaintenance(sigCtx, rt.cfg.SweepInterval, time.Now)

			go func() {
				<-sigCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := app.ShutdownWithContext(shutdownCtx); err != nil {
					rt.logger.WithError(err).Error("cli: server shutdown failed")
				}
			}()

			rt.logger.WithFields(logrus.Fields{
				"port":           rt.cfg.Port,
				"db":             rt.cfg.DBPath,
				"tz":             rt.cfg.Location.String(),
				"sweep_interval": rt.cfg.SweepInterval.String(),
			}).Info("cli: mealplans listening")
			return app.Listen(":" + rt.cfg.Port)
		},
	}
}
