package database

import (
	"database/sql"

	"github.com/wolfauto/marketer/internal/storage"
)

// Store bundles the Postgres repositories behind the storage.Store
// interface so the router, engine and reporter can be wired the same way
// regardless of backend.
type Store struct {
	*PlatformRepository
	*WorkflowRepository
	*TaskRepository
	*ActivityRepository
	*EarningRepository
	*WalletRepository
	*InferenceLogRepository
}

// NewStore creates repositories for every entity over the shared pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		PlatformRepository:     NewPlatformRepository(db),
		WorkflowRepository:     NewWorkflowRepository(db),
		TaskRepository:         NewTaskRepository(db),
		ActivityRepository:     NewActivityRepository(db),
		EarningRepository:      NewEarningRepository(db),
		WalletRepository:       NewWalletRepository(db),
		InferenceLogRepository: NewInferenceLogRepository(db),
	}
}

var _ storage.Store = (*Store)(nil)
