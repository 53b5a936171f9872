// Package cmd provides the command-line interface of flowsim.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide defaults for flags that are not set.
const (
	envLogLevel = "FLOWSIM_LOG_LEVEL"
	envConfig   = "FLOWSIM_CONFIG"
	envDatabase = "FLOWSIM_DB"
	envDriver   = "FLOWSIM_DRIVER"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flowsim",
	Short: "flowsim runs replicated discrete event simulations of queues.",
	Long: `flowsim runs independent replications of a queueing model, ` +
		`reports every statistic with a confidence interval, and can ` +
		`record the results and the trace into a database.`,
	SilenceUsage:      true,
	PersistentPreRunE: setUp,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (trace, debug, info, warn, error, fatal, panic)")
}

// setUp loads the .env file of the working directory and configures the
// logger.
func setUp(cmd *cobra.Command, _ []string) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	level := stringSetting(cmd, "log-level", logLevel, envLogLevel)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logrus.SetLevel(parsed)

	return nil
}

// stringSetting returns the flag value if the flag is set, the environment
// variable if it is set, and the flag default otherwise.
func stringSetting(cmd *cobra.Command, flag, value, env string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}

	if v, ok := os.LookupEnv(env); ok {
		return v
	}

	return value
}
