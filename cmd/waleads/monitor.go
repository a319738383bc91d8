package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	wachat "waleads/chat/whatsmeow"
	"waleads/conversation"
	"waleads/ingest"
	"waleads/internal/logutil"
	"waleads/leads"
	"waleads/monitor"
	"waleads/persona"
	"waleads/providers/openai"
	"waleads/respond"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor <contacts.csv>",
		Short: "Watch contacts for replies and answer them with the configured persona",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			// Bound here so the send command's identical flag does not
			// shadow this one.
			_ = viper.BindPFlag("leads.path", cmd.Flags().Lookup("leads"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
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

			p, err := loadPersona()
			if err != nil {
				return err
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

			gen := respond.New(openai.New(viper.GetString("llm.endpoint"), viper.GetString("llm.api_key")), p, logger)
			gen.SetTimeouts(viper.GetDuration("llm.timeout"), viper.GetDuration("llm.continuation_timeout"))

			sess := monitor.NewSession(client, conversation.NewStore(viper.GetInt("conversation.max_turns")), ls, gen, logger)
			sched := monitor.NewScheduler(sess, viper.GetDuration("monitor.interval"), viper.GetInt("monitor.workers"))

			keys := make([]string, 0, len(contacts))
			for _, c := range contacts {
				keys = append(keys, c.Phone.Key)
				// Empty status: new contacts enter as "new", leads
				// rehydrated from the CSV keep their progression.
				ls.Upsert(c.Phone.Key, c.Name, "", "")
			}
			if err := sched.Start(ctx, keys); err != nil {
				return err
			}
			logger.Info("monitoring_started",
				"contacts", len(keys),
				"interval", viper.GetDuration("monitor.interval"),
				"workers", viper.GetInt("monitor.workers"),
			)

			<-ctx.Done()
			sched.Stop()

			snap := sess.Stats.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "cycles: %d  received: %d  sent: %d  leads: %d  errors: %d\n",
				snap.Cycles, snap.Received, snap.Sent, snap.LeadsCaptured, snap.Errors)
			return nil
		},
	}

	cmd.Flags().Duration("interval", monitor.DefaultInterval, "Pause between polling cycles.")
	cmd.Flags().Int("workers", monitor.DefaultWorkers, "Concurrent per-contact checks.")
	_ = viper.BindPFlag("monitor.interval", cmd.Flags().Lookup("interval"))
	_ = viper.BindPFlag("monitor.workers", cmd.Flags().Lookup("workers"))

	cmd.Flags().String("leads", "", "Leads CSV path (defaults to leads.csv).")

	cmd.Flags().String("persona", "", "Persona YAML path (defaults to the built-in persona).")
	_ = viper.BindPFlag("persona.path", cmd.Flags().Lookup("persona"))

	return cmd
}

// loadPersona resolves the reply persona: the YAML file when
// configured, otherwise the built-in one with viper's model knobs.
func loadPersona() (persona.Persona, error) {
	if path := viper.GetString("persona.path"); path != "" {
		return persona.Load(path)
	}
	p := persona.Default()
	p.Model = viper.GetString("llm.model")
	p.MaxTokens = viper.GetInt("llm.max_tokens")
	p.Temperature = viper.GetFloat64("llm.temperature")
	return p, nil
}
