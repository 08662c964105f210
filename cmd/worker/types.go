package main

import "context"

// Reconciler is implemented by payment.Reconciler.
type Reconciler interface {
	Reconcile(ctx context.Context, transactionID string) error
}
