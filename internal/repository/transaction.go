package repository

import (
	"community-platform/config"
	"community-platform/internal/util"
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type TransactionManager struct {
	*config.Database
}

func NewTransactionManager(database *config.Database) *TransactionManager {
	return &TransactionManager{database}
}

// BeginTX открывает транзакцию.
// Возвращает исполнитель запросов, rollback (безопасен после commit) и commit.
func (m *TransactionManager) BeginTX(ctx context.Context) (sqlx.ExtContext, func() error, func() error, error) {
	tx, err := m.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, nil, util.LogError("[TxManager] не удалось начать транзакцию", err)
	}

	rollback := func() error {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			return util.LogError("[TxManager] ошибка отката транзакции", err)
		}
		return nil
	}

	return tx, rollback, tx.Commit, nil
}
