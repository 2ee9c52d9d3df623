package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/crossval"
)

func vendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Query the vendor knowledge base",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <domain>",
		Short: "Look a vendor domain up in the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kb := crossval.DefaultKnowledgeBase()
			info, ok := kb.Lookup(args[0], "")
			if !ok {
				cmd.Printf("%s: unknown vendor\n", args[0])
				return nil
			}
			cmd.Printf("%s: %s → %s", args[0], info.Name, info.Category)
			if info.StructurallyNoVAT {
				cmd.Printf(" (supplies carry no input VAT)")
			}
			cmd.Println()
			return nil
		},
	})

	return cmd
}
