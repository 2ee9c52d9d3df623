package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/temporal"
)

func situationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "situations",
		Short: "Inspect the configured situation timeline",
	}
	cmd.AddCommand(situationsListCmd())
	cmd.AddCommand(situationsCheckCmd())
	return cmd
}

func situationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured situations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}

			if len(cfg.Situations) == 0 {
				cmd.Println("No situations configured.")
				return nil
			}

			for _, s := range cfg.Situations {
				end := "ongoing"
				if s.To != nil {
					end = s.To.Format("2006-01-02")
				}
				cmd.Printf("%-12s %s → %-10s  regime=%s", s.ID,
					s.From.Format("2006-01-02"), end, s.VATStatus)
				if s.OwnsVehicle {
					cmd.Printf("  vehicle=%s", s.VehicleClass)
				}
				if s.HomeOfficeMode != "" {
					cmd.Printf("  home_office=%s", s.HomeOfficeMode)
				}
				cmd.Println()
			}
			return nil
		},
	}
}

func situationsCheckCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the timeline for overlaps and gaps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}

			if errs := cfg.Validate(newRegistry()); len(errs) > 0 {
				cmd.Printf("%d configuration problem(s):\n", len(errs))
				for _, e := range errs {
					cmd.Printf("  %s\n", e.Error())
				}
				return nil
			}
			cmd.Println("Configuration is valid.")

			from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			to := from.AddDate(1, 0, 0)
			gaps := temporal.Gaps(cfg.Situations, from, to)
			if len(gaps) == 0 {
				cmd.Printf("No coverage gaps in %d.\n", year)
				return nil
			}
			cmd.Printf("%d coverage gap(s) in %d; invoices in these ranges will block:\n", len(gaps), year)
			for _, g := range gaps {
				cmd.Printf("  %s → %s\n", g.From.Format("2006-01-02"), g.To.Format("2006-01-02"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year to check for coverage gaps")
	return cmd
}
