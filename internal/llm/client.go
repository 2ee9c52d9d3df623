// Package llm is the boundary to the upstream AI classifier. The
// classifier is an external collaborator: this package ships it a
// minimal prompt context and hands its suggestion to the pipeline,
// which never trusts it unconditionally.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/taxatron/internal/common"
	"github.com/Veraticus/taxatron/internal/model"
	"github.com/Veraticus/taxatron/internal/service"
)

// Request is one classification request to the collaborator.
type Request struct {
	Context PromptContext
	Expense model.Expense
}

// Client is the transport to the upstream classifier. Implementations
// live outside the core pipeline; failures must be wrapped so
// common.IsRetryable can recognize them.
type Client interface {
	Classify(ctx context.Context, req Request) (model.Suggestion, error)
}

// Classifier wraps a Client with the retry policy the orchestrating
// layer configured. The core pipeline itself performs no retries.
type Classifier struct {
	client    Client
	retryOpts service.RetryOptions
}

// NewClassifier wraps a transport client.
func NewClassifier(client Client, retryOpts service.RetryOptions) *Classifier {
	return &Classifier{client: client, retryOpts: retryOpts}
}

// Classify requests a suggestion, retrying retryable transport
// failures. The returned suggestion is untrusted input.
func (c *Classifier) Classify(ctx context.Context, req Request) (model.Suggestion, error) {
	var suggestion model.Suggestion
	err := common.WithRetry(ctx, func() error {
		var callErr error
		suggestion, callErr = c.client.Classify(ctx, req)
		return callErr
	}, c.retryOpts)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("upstream classifier failed: %w", err)
	}

	slog.Debug("Received upstream suggestion",
		"expense_id", req.Expense.ID,
		"category", suggestion.Category,
		"confidence", suggestion.Confidence)
	return suggestion, nil
}
