// Package sheets declares the outbound ports of the export pipeline.
package sheets

import (
	"context"

	"carbonledger/internal/core"
)

type (
	// RecordWriter appends one emission record to the export target.
	RecordWriter interface {
		AppendRecord(ctx context.Context, r core.EmissionRecord) (rowRef string, err error)
	}
)
