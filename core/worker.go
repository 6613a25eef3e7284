package core

import (
	"context"
	"errors"
	"strings"

	"carolinalumpers.com/clockin/clockin"
	"carolinalumpers.com/clockin/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkerDirectory looks workers up in the workers table.
type WorkerDirectory struct {
	dm *DatabaseManager
}

func NewWorkerDirectory(dm *DatabaseManager) *WorkerDirectory {
	return &WorkerDirectory{dm: dm}
}

func (d *WorkerDirectory) FindWorker(ctx context.Context, workerID string) (*model.Worker, error) {
	var worker model.Worker
	err := d.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Where("worker_id = ?", strings.TrimSpace(workerID)).First(&worker).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, clockin.ErrWorkerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

// SaveWorkers upserts workers by id.
func (d *WorkerDirectory) SaveWorkers(ctx context.Context, workers []model.Worker) error {
	if len(workers) == 0 {
		return nil
	}
	return d.dm.Exec(ctx, func(db *gorm.DB) error {
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "worker_id"}},
			UpdateAll: true,
		}).Create(&workers).Error
	})
}
