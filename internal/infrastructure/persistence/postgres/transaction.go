package postgres

import (
	"context"

	"gorm.io/gorm"

	"plc-agent-api/internal/domain/repository"
)

// TxManager 实现 repository.Transactor
type TxManager struct {
	client *Client
}

func NewTxManager(client *Client) *TxManager {
	return &TxManager{client: client}
}

// WithTransaction fn 返回错误或 panic 时回滚；ctx 已带事务时直接在外层事务里执行
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, inTx := txFrom(ctx); inTx {
		return fn(ctx)
	}
	return m.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, repository.TxKey{}, tx))
	})
}

func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(repository.TxKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// getDB 仓储统一入口，事务优先
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := txFrom(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
