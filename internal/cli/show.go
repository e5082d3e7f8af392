package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/calendar"
)

func newShowCmd() *cobra.Command {
	var (
		flagDays     int
		flagFormat   string
		flagSort     string
		flagTimezone string
	)
	cmd := &cobra.Command{
		Use:   "show FILE",
		Short: "Print the upcoming colloquia of a calendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			order, err := parseSortOrder(flagSort)
			if err != nil {
				return err
			}
			if flagDays <= 0 {
				return fmt.Errorf("--days must be positive, got %d", flagDays)
			}
			loc := time.Local
			if flagTimezone != "" {
				if loc, err = time.LoadLocation(flagTimezone); err != nil {
					return fmt.Errorf("invalid timezone %q: %w", flagTimezone, err)
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening calendar: %w", err)
			}
			defer f.Close()

			from := now()
			to := from.AddDate(0, 0, flagDays)
			items, err := calendar.ReadAgenda(f, from, to)
			if err != nil {
				return err
			}
			sortItems(items, order)

			return writeAgenda(cmd.OutOrStdout(), &AgendaResult{
				File:  args[0],
				From:  from,
				To:    to,
				Items: items,
			}, format, loc)
		},
	}
	cmd.Flags().IntVar(&flagDays, "days", 30, "Number of days ahead to show")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order: date, title or location")
	cmd.Flags().StringVar(&flagTimezone, "timezone", "", "Display timezone (default: local)")
	return cmd
}
