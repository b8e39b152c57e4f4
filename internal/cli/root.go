package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions are the flags shared by every command.
type rootOptions struct {
	dbPath     string
	jsonOutput bool
}

func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	options := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "mealplans",
		Version: version,
		Short:   "Meal plan lifecycle and scheduling engine",
		Long: `mealplans runs the meal plan API and its maintenance jobs.

Configuration comes from the environment or a .env file in the working
directory (PORT, DB_PATH, TZ, SECRET_KEY, REDIS_ADDRESS, TELEGRAM_BOT_TOKEN,
CASCADE_TIMEOUT, SWEEP_INTERVAL, LOG_LEVEL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&options.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&options.jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		newServeCmd(options),
		newSweepCmd(options),
		newNotifyCmd(options),
		newDeliverCmd(options),
		newResetPasswordCmd(options),
		newAddDietitianCmd(options),
	)
	return rootCmd
}

func outputJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
