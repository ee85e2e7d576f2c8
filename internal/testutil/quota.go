package testutil

import (
	"context"

	"tourcache/internal/offline"
)

// StubQuota returns fixed usage and quota values.
type StubQuota struct {
	Usage int64
	Quota int64
	Err   error
}

func (q *StubQuota) Estimate(ctx context.Context) (int64, int64, error) {
	if q.Err != nil {
		return 0, 0, q.Err
	}
	return q.Usage, q.Quota, nil
}

var _ offline.QuotaProbe = (*StubQuota)(nil)
