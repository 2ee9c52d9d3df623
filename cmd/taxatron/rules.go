package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/allocation"
	"github.com/Veraticus/taxatron/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and test allocation rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesTestCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured allocation rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}

			if len(cfg.AllocationRules) == 0 {
				cmd.Println("No allocation rules configured.")
				return nil
			}

			for _, rule := range cfg.AllocationRules {
				state := "active"
				if !rule.IsActive {
					state = "disabled"
				}
				cmd.Printf("%-24s prio=%-3d %s\n", rule.Name, rule.Priority, state)
				switch {
				case rule.VendorDomain != "":
					cmd.Printf("  matches domain %s", rule.VendorDomain)
				case rule.VendorPattern != "":
					cmd.Printf("  matches pattern %q", rule.VendorPattern)
				case rule.Category != "":
					cmd.Printf("  matches category %s", rule.Category)
				}
				if rule.MinAmountCents > 0 {
					cmd.Printf(" (min %d cents)", rule.MinAmountCents)
				}
				cmd.Println()
				for _, alloc := range rule.Allocations {
					cmd.Printf("    → %s: %d%%\n", alloc.SourceID, alloc.Percent)
				}
			}
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	var domain, vendorName, category, date string
	var amountCents int64

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Show which allocation would fire for a hypothetical expense",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}
			rules, err := newRegistry().Get(cfg.Jurisdiction)
			if err != nil {
				return err
			}

			invoiceDate := time.Now().UTC()
			if date != "" {
				invoiceDate, err = time.Parse("2006-01-02", date)
				if err != nil {
					return err
				}
			}

			var active []model.IncomeSource
			for _, src := range cfg.IncomeSources {
				if src.Contains(invoiceDate) {
					active = append(active, src)
				}
			}

			eng := allocation.NewEngine(cfg.AllocationRules, cfg.CategoryDefaults, rules)
			assignment := eng.Assign(allocation.Input{
				Expense: model.Expense{
					VendorDomain: domain,
					VendorName:   vendorName,
					AmountCents:  amountCents,
					InvoiceDate:  invoiceDate,
				},
				Category:      model.ParseCategory(category),
				ActiveSources: active,
			})

			cmd.Printf("Tier: %s (confidence %.2f)\n", assignment.Tier, assignment.Confidence)
			cmd.Printf("Reason: %s\n", assignment.Reason)
			for _, alloc := range assignment.Allocations {
				cmd.Printf("  → %s: %d%%\n", alloc.SourceID, alloc.Percent)
			}
			if assignment.Status == model.AssignmentReviewNeeded {
				cmd.Println("Result: needs manual review")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "vendor domain")
	cmd.Flags().StringVar(&vendorName, "vendor", "", "vendor name")
	cmd.Flags().StringVar(&category, "category", "full", "deductibility category")
	cmd.Flags().StringVar(&date, "date", "", "invoice date (YYYY-MM-DD, default today)")
	cmd.Flags().Int64Var(&amountCents, "amount", 0, "amount in cents")
	return cmd
}
