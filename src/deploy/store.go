package deploy

import (
	"context"
	"errors"

	"github.com/solignition/ignitor/src/utils/model"

	"gorm.io/gorm"
)

// Durable deployment state. Records are full-row overwrites keyed by
// loan id, callers read-modify-write.
type Store interface {
	// Returns nil without error when no record exists
	Get(ctx context.Context, loanID string) (*model.Deployment, error)
	Put(ctx context.Context, record *model.Deployment) error
	ListAll(ctx context.Context) ([]*model.Deployment, error)
	ListByStatus(ctx context.Context, statuses ...model.DeploymentStatus) ([]*model.Deployment, error)

	GetWatermark(ctx context.Context) (uint64, error)
	SetWatermark(ctx context.Context, slot uint64) error

	Close() error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (self *GormStore) Get(ctx context.Context, loanID string) (out *model.Deployment, err error) {
	var record model.Deployment
	err = self.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		First(&record).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (self *GormStore) Put(ctx context.Context, record *model.Deployment) error {
	return self.db.WithContext(ctx).Save(record).Error
}

func (self *GormStore) ListAll(ctx context.Context) (out []*model.Deployment, err error) {
	err = self.db.WithContext(ctx).
		Order("updated_at DESC").
		Find(&out).
		Error
	return
}

func (self *GormStore) ListByStatus(ctx context.Context, statuses ...model.DeploymentStatus) (out []*model.Deployment, err error) {
	err = self.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("updated_at DESC").
		Find(&out).
		Error
	return
}

func (self *GormStore) GetWatermark(ctx context.Context) (out uint64, err error) {
	var state model.State
	err = self.db.WithContext(ctx).First(&state, 1).Error
	if err != nil {
		return 0, err
	}
	return state.LastProcessedSlot, nil
}

func (self *GormStore) SetWatermark(ctx context.Context, slot uint64) error {
	return self.db.WithContext(ctx).
		Model(&model.State{}).
		Where("id = ?", 1).
		Update("last_processed_slot", slot).
		Error
}

func (self *GormStore) Close() error {
	sqlDB, err := self.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
