// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/taxatron/internal/model"
)

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	Limit     int
	Offset    int
}

// Storage defines the contract for the persistence layer. All writes
// go through single-writer transactional updates; the design assumes
// no concurrent writers from two process instances.
type Storage interface {
	// Expense operations
	SaveExpense(ctx context.Context, exp *model.Expense) error
	GetExpenseByID(ctx context.Context, id string) (*model.Expense, error)
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	ExpenseExists(ctx context.Context, id string) (bool, error)
	FindByInvoiceNumber(ctx context.Context, accountID, invoiceNumber, vendorDomain, excludeID string) (*model.Expense, error)
	FindByContentHash(ctx context.Context, accountID, hash, excludeID string) (*model.Expense, error)
	FindFuzzyCandidates(ctx context.Context, accountID, vendorDomain string, amountCents int64, from, to time.Time, excludeID string) ([]model.Expense, error)

	// Vendor history for anomaly detection and the allocation
	// heuristic.
	GetVendorHistory(ctx context.Context, accountID, vendorDomain string, recentN int) (*model.VendorHistory, error)

	// Determination operations
	SaveDetermination(ctx context.Context, det *model.Determination) error
	GetDetermination(ctx context.Context, expenseID string) (*model.Determination, error)
	GetDeterminationsNeedingReview(ctx context.Context) ([]model.Determination, error)

	// Duplicate operations
	SaveDuplicate(ctx context.Context, dup *model.DuplicateRecord) error
	GetDuplicatesForExpense(ctx context.Context, expenseID string) ([]model.DuplicateRecord, error)

	// Processing run tracking
	StartRun(ctx context.Context, run *model.ProcessingRun) error
	FinishRun(ctx context.Context, run *model.ProcessingRun) error
	FlagInterruptedRuns(ctx context.Context) (int, error)
	GetRuns(ctx context.Context, limit int) ([]model.ProcessingRun, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction scopes the writes one pipeline record produces, so an
// expense, its determination, and any duplicate link persist
// atomically.
type Transaction interface {
	Commit() error
	Rollback() error
	SaveExpense(ctx context.Context, exp *model.Expense) error
	SaveDetermination(ctx context.Context, det *model.Determination) error
	SaveDuplicate(ctx context.Context, dup *model.DuplicateRecord) error
}

// RetryOptions configures retry behavior for transient failures.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
