package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"waleads/ingest"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Inspect contact import files",
	}
	cmd.AddCommand(newContactsValidateCmd())
	return cmd
}

func newContactsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <contacts.csv>",
		Short: "Parse a contact file and report accepted and rejected rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contacts, rejected, err := ingest.LoadContacts(args[0], viper.GetString("country_code"))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range contacts {
				name := c.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(out, "ok\t%s\t%s\n", c.Phone.E164, name)
			}
			for _, r := range rejected {
				fmt.Fprintf(out, "rejected\tline %d\t%s\n", r.Line, r.Reason)
			}
			fmt.Fprintf(out, "%d accepted, %d rejected\n", len(contacts), len(rejected))
			return nil
		},
	}
}
