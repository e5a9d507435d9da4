package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Conn resolves the handle a repo call should run on: the caller's
// transaction when one is supplied, otherwise the repo's base connection,
// with the request context attached either way.
func Conn(ctx context.Context, tx, db *gorm.DB) *gorm.DB {
	if tx == nil {
		tx = db
	}
	return tx.WithContext(ctx)
}
