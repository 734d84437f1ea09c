package covid

import (
	"context"
	"encoding/json"
)

// Source abstracts the statistics API. Each call performs at most one
// HTTP request.
type Source interface {
	FetchDailyStates(ctx context.Context) ([]RawRow, error)
	FetchNationalDaily(ctx context.Context) ([]RawRow, error)
	FetchCurrentState(ctx context.Context, state string) (RawRow, error)
	FetchNationalCurrent(ctx context.Context) (RawRow, error)
	FetchStateInfo(ctx context.Context, state string) (json.RawMessage, error)
}

// ProjectionSource abstracts the projections feed.
type ProjectionSource interface {
	FetchProjectionArchive(ctx context.Context) ([]byte, error)
}

// TableSource hands out the current Table, refreshing it when stale.
type TableSource interface {
	Table(ctx context.Context) (*Table, error)
}
