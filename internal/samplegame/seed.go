package samplegame

import (
	"context"
	"fmt"

	"github.com/okian/scorecard/internal/adapters/kvstore"
	"github.com/okian/scorecard/internal/domain/model"
)

// SeedFlags writes the generated definitions into the flag table the
// server scans.
func SeedFlags(ctx context.Context, table kvstore.Table, flags []GeneratedFlag) error {
	for _, gen := range flags {
		if err := table.PutItem(ctx, kvstore.Item(gen.Def.ToItem())); err != nil {
			return fmt.Errorf("seed flag %s: %w", gen.Def.Flag, err)
		}
	}
	return nil
}

// OpenFlagTable opens the server's badger database and returns its flag
// table plus a closer for the underlying database.
func OpenFlagTable(path string) (*kvstore.BadgerTable, func() error, error) {
	db, err := kvstore.OpenBadger(path, nil)
	if err != nil {
		return nil, nil, err
	}
	table := kvstore.NewBadgerTable(db, "flags", []string{model.AttrFlag})
	return table, db.Close, nil
}
