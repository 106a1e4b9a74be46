// Package sheets defines the outbound port for the audit-sheet export.
package sheets

import (
	"context"

	"bendahara/internal/core"
)

// LedgerWriter appends committed transactions to an external audit ledger.
type LedgerWriter interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
