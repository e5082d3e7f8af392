package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/event"
	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/logger"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig   string
	flagVerbose  bool
	flagLogLevel string
)

// now is the clock used by show; tests replace it
var now = time.Now

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colloq",
		Short: "Publish department colloquium schedules as iCalendar feeds",
		Long: `A CLI tool that scrapes a department's colloquium listings, normalizes
dates, speakers and locations, and publishes a subscribable calendar.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML or TOML file with additional sources")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging (same as --log-level debug)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Minimum log level: debug, info, warn or error")

	cmd.AddCommand(newRunCmd(), newSourcesCmd(), newShowCmd(), newWatchCmd())
	return cmd
}

// newLogger builds the command's logger on stderr and installs it as default
func newLogger(cmd *cobra.Command) (*logger.Logger, error) {
	level, err := logger.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, event.Wrap(event.ErrConfig, "parsing --log-level", err)
	}
	if flagVerbose {
		level = logger.LevelDebug
	}
	l := logger.New(level, cmd.ErrOrStderr())
	logger.SetDefault(l)
	return l, nil
}

// loadSource loads the registry and selects name
func loadSource(name string) (*config.Source, error) {
	reg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	return reg.Get(name)
}

// report prints err for the user. Structural and parse failures are logged
// as fatal errors; everything else, including configuration and fetch
// failures, gets a plain diagnostic line.
func report(w io.Writer, err error) {
	if event.IsDiagnostic(err) || event.KindName(err) == "other" {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	logger.Error("Run failed", logger.Fields{"kind": event.KindName(err)}, err)
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		report(os.Stderr, err)
		os.Exit(ExitError)
	}
}
