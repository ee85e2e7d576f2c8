// Package quota implements storage-capacity introspection for the local
// store directory. Capacity reporting is best-effort by contract: callers
// degrade to zero-valued stats when the probe errors.
package quota

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"tourcache/internal/offline"
)

// DiskProbe reports usage as the total size of files under the data
// directory, against a configured byte budget. The budget stands in for a
// platform quota API: the subsystem only needs used/total for percentage
// reporting and pressure decisions.
type DiskProbe struct {
	dataDir string
	budget  int64
}

// NewDiskProbe creates a DiskProbe over dataDir with the given byte budget.
func NewDiskProbe(dataDir string, budget int64) *DiskProbe {
	return &DiskProbe{dataDir: dataDir, budget: budget}
}

// Estimate walks the data directory and sums file sizes.
func (p *DiskProbe) Estimate(ctx context.Context) (usage, quota int64, err error) {
	walkErr := filepath.WalkDir(p.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		usage += info.Size()
		return nil
	})
	if walkErr != nil {
		return 0, 0, fmt.Errorf("measuring data directory: %w", walkErr)
	}

	return usage, p.budget, nil
}

// Compile-time check that DiskProbe implements offline.QuotaProbe
var _ offline.QuotaProbe = (*DiskProbe)(nil)
