package cli

import (
	"github.com/spf13/cobra"

	"github.com/Cornell-CIS-Slack/cucs-colloq/internal/config"
)

func newSourcesCmd() *cobra.Command {
	var flagFormat string
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the available source profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}
			reg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			infos := make([]SourceInfo, 0, len(reg))
			for _, name := range reg.Names() {
				infos = append(infos, sourceInfo(reg[name]))
			}
			return writeSources(cmd.OutOrStdout(), infos, format, flagVerbose)
		},
	}
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	return cmd
}
