package tr

import (
	"context"

	"github.com/DRSN-tech/similarity-backend/pkg/e"
	"github.com/jackc/pgx/v5"
)

// CtxKey — ключ контекста, под которым usecase-слой кладёт активную транзакцию.
const CtxKey = "tx"

// TxFromCtx извлекает объект транзакции (pgx.Tx) из контекста
func TxFromCtx(ctx context.Context) (pgx.Tx, error) {
	txAny := ctx.Value(CtxKey)
	tx, ok := txAny.(pgx.Tx)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}
	return tx, nil
}
