package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/taxatron/internal/engine"
	"github.com/Veraticus/taxatron/internal/model"
)

// inputRecord is the wire shape of one record in a process batch
// file: the expense facts plus the upstream suggestion, if one was
// already obtained.
type inputRecord struct {
	ID             string             `json:"id"`
	AccountID      string             `json:"account_id"`
	VendorName     string             `json:"vendor_name"`
	VendorDomain   string             `json:"vendor_domain"`
	InvoiceNumber  string             `json:"invoice_number"`
	InvoiceDate    string             `json:"invoice_date"`
	Currency       string             `json:"currency"`
	ContentHash    string             `json:"content_hash"`
	AmountCents    int64              `json:"amount_cents"`
	Suggestion     *model.Suggestion  `json:"suggestion"`
	ManualOverride []model.Allocation `json:"manual_override"`
}

func processCmd() *cobra.Command {
	var autoDedup, strict bool
	var fromDate string

	cmd := &cobra.Command{
		Use:   "process <records.json>",
		Short: "Run a batch of expense records through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(args[0])
			if err != nil {
				return err
			}
			if fromDate != "" {
				cutoff, err := time.Parse("2006-01-02", fromDate)
				if err != nil {
					return fmt.Errorf("invalid --from date %q: %w", fromDate, err)
				}
				kept := records[:0]
				for _, rec := range records {
					if !rec.Expense.InvoiceDate.Before(cutoff) {
						kept = append(kept, rec)
					}
				}
				records = kept
			}
			if len(records) == 0 {
				cmd.Println("No records to process.")
				return nil
			}

			cfg, err := loadTaxConfig()
			if err != nil {
				return err
			}
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			pipeline, err := engine.New(store, cfg, newRegistry(), nil)
			if err != nil {
				return err
			}
			if err := pipeline.Startup(ctx); err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(records)), "processing")
			stats, err := pipeline.ProcessBatch(ctx, records,
				engine.Options{AutoDedup: autoDedup, Strict: strict},
				func(engine.Outcome) { _ = bar.Add(1) })
			_ = bar.Finish()
			if err != nil {
				return err
			}

			cmd.Printf("\nProcessed: %d  Flagged for review: %d  Duplicates: %d  Blocked (no situation): %d\n",
				stats.Processed, stats.Flagged, stats.Duplicates, stats.Blocked)
			if stats.Blocked > 0 {
				cmd.Println("Blocked records need a situation covering their invoice date; see 'taxatron situations check'.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoDedup, "auto-dedup", false, "apply fuzzy duplicate matches automatically")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat fuzzy duplicate matches as high confidence")
	cmd.Flags().StringVar(&fromDate, "from", "", "skip records with an invoice date before YYYY-MM-DD")
	return cmd
}

func loadRecords(path string) ([]engine.Record, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied batch file
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var inputs []inputRecord
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	records := make([]engine.Record, 0, len(inputs))
	for i, in := range inputs {
		invoiceDate, err := time.Parse("2006-01-02", in.InvoiceDate)
		if err != nil {
			return nil, fmt.Errorf("record %d: invalid invoice_date %q", i, in.InvoiceDate)
		}
		if in.ID == "" {
			in.ID = uuid.NewString()
		}
		if in.Currency == "" {
			in.Currency = "EUR"
		}
		records = append(records, engine.Record{
			Expense: model.Expense{
				ID:            in.ID,
				AccountID:     in.AccountID,
				VendorName:    in.VendorName,
				VendorDomain:  in.VendorDomain,
				InvoiceNumber: in.InvoiceNumber,
				InvoiceDate:   invoiceDate.UTC(),
				AmountCents:   in.AmountCents,
				Currency:      in.Currency,
				ContentHash:   in.ContentHash,
			},
			Suggestion:     in.Suggestion,
			ManualOverride: in.ManualOverride,
		})
	}
	return records, nil
}
