package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"waleads/campaign"
	wachat "waleads/chat/whatsmeow"
	"waleads/ingest"
	"waleads/internal/logutil"
	"waleads/leads"
)

func newSendCmd() *cobra.Command {
	var (
		template   string
		mediaPath  string
		reportPath string
	)

	cmd := &cobra.Command{
		Use:   "send <contacts.csv>",
		Short: "Send a templated message to every contact in the file",
		Long: `Send a templated message to every contact in the file, pacing sends
with randomized delays and a per-day cap. The template supports {name},
{phone}, and {custom_message} placeholders; with no template, each
contact's custom_message column is sent.`,
		Args: cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			// Bound here so the monitor command's identical flag does
			// not shadow this one.
			_ = viper.BindPFlag("leads.path", cmd.Flags().Lookup("leads"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			if template == "" {
				logger.Info("no_template_using_custom_messages")
			}

			contacts, rejected, err := ingest.LoadContacts(args[0], viper.GetString("country_code"))
			if err != nil {
				return err
			}
			for _, r := range rejected {
				logger.Warn("contact_rejected", "line", r.Line, "reason", r.Reason)
			}
			if len(contacts) == 0 {
				return fmt.Errorf("no valid contacts in %s", args[0])
			}

			ls, err := leads.Open(viper.GetString("leads.path"), logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := wachat.Connect(ctx, viper.GetString("whatsapp.db_path"), logger)
			if err != nil {
				return err
			}
			defer client.Close()

			report, runErr := campaign.NewSender(client, ls, logger).Run(ctx, contacts, campaign.Options{
				Template:   template,
				MediaPath:  mediaPath,
				DailyLimit: viper.GetInt("send.daily_limit"),
				MinDelay:   viper.GetDuration("send.min_delay"),
				MaxDelay:   viper.GetDuration("send.max_delay"),
				ReportPath: reportPath,
			})
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "sent: %d  failed: %d  skipped: %d\n",
					report.Sent, report.Failed, report.Skipped)
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&template, "message", "m", "", "Message template.")
	cmd.Flags().StringVar(&mediaPath, "media", "", "Media file to attach to every message.")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a JSON run report to this path.")

	cmd.Flags().Int("daily-limit", campaign.DefaultDailyLimit, "Maximum messages per calendar day.")
	cmd.Flags().Duration("min-delay", campaign.DefaultMinDelay, "Minimum pause between sends.")
	cmd.Flags().Duration("max-delay", campaign.DefaultMaxDelay, "Maximum pause between sends.")
	_ = viper.BindPFlag("send.daily_limit", cmd.Flags().Lookup("daily-limit"))
	_ = viper.BindPFlag("send.min_delay", cmd.Flags().Lookup("min-delay"))
	_ = viper.BindPFlag("send.max_delay", cmd.Flags().Lookup("max-delay"))

	cmd.Flags().String("leads", "", "Leads CSV path (defaults to leads.csv).")

	return cmd
}
