package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"waleads/internal/logutil"
	"waleads/leads"
)

func newLeadsCmd() *cobra.Command {
	var (
		leadsPath    string
		statusFilter string
	)
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List captured leads from the leads file",
		PreRun: func(cmd *cobra.Command, args []string) {
			_ = viper.BindPFlag("leads.path", cmd.Flags().Lookup("leads"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			ls, err := leads.Open(viper.GetString("leads.path"), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, lead := range ls.All() {
				if statusFilter != "" && string(lead.Status) != statusFilter {
					continue
				}
				name := lead.Name
				if name == "" {
					name = "-"
				}
				updated := "-"
				if !lead.LastUpdated.IsZero() {
					updated = lead.LastUpdated.Format(time.RFC3339)
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
					lead.Phone, name, lead.Status, updated, lead.LastMessageExcerpt)
				shown++
			}
			fmt.Fprintf(out, "%d of %d leads\n", shown, ls.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&leadsPath, "leads", "", "leads CSV path (defaults to leads.path)")
	cmd.Flags().StringVar(&statusFilter, "status", "", "only show leads with this status (new|contacted|engaged|confirmed)")
	return cmd
}
