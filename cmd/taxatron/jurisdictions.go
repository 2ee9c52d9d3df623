package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/model"
)

func jurisdictionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jurisdictions",
		Short: "List supported jurisdictions and their category tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := newRegistry()
			for _, code := range registry.Supported() {
				rules, err := registry.Get(code)
				if err != nil {
					return err
				}
				cmd.Printf("%s  (gift threshold: %d cents, allocation step: %d%%)\n",
					code, rules.GiftThresholdCents(), rules.AllocationGranularity())
				for _, cat := range model.AllCategories() {
					if pct, ok := rules.FixedPercent(cat); ok {
						cmd.Printf("  %-10s %-24s %3d%%\n", cat, rules.CategoryLabel(cat), pct)
					} else {
						cmd.Printf("  %-10s %-24s   n/a\n", cat, rules.CategoryLabel(cat))
					}
				}
			}
			return nil
		},
	}
}
