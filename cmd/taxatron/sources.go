package main

import (
	"github.com/spf13/cobra"
)

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect the configured income sources",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List income sources and their validity windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}

			if len(cfg.IncomeSources) == 0 {
				cmd.Println("No income sources configured.")
				return nil
			}

			for _, src := range cfg.IncomeSources {
				end := "ongoing"
				if src.ValidTo != nil {
					end = src.ValidTo.Format("2006-01-02")
				}
				cmd.Printf("%-12s %-24s %-12s %s → %s\n", src.ID, src.Name,
					src.Kind, src.ValidFrom.Format("2006-01-02"), end)
			}
			return nil
		},
	})

	return cmd
}
