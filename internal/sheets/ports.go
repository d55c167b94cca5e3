package sheets

import "context"

// Mirror receives the full tabular export, header row first, and makes
// the remote sheet match it.
type Mirror interface {
	Replace(ctx context.Context, rows [][]string) error
}
