package adapters

import (
	"context"
	"database/sql"
	"errors"
)

// execInTx runs statements inside tx and commits. The transaction is rolled back on the first failure.
func execInTx(ctx context.Context, tx *sql.Tx, statements []string) (int64, error) {
	var affected int64

	for _, statement := range statements {
		result, err := tx.ExecContext(ctx, statement)
		if err != nil {
			return 0, errors.Join(err, tx.Rollback())
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, errors.Join(err, tx.Rollback())
		}

		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return affected, nil
}
