package provider

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) Update(ctx context.Context, rec *Record) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *Repo) List(ctx context.Context) ([]Record, error) {
	var recs []Record
	if err := r.db.WithContext(ctx).
		Order("priority ASC, name ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ListActive returns the dispatchable snapshot, priority-ordered.
func (r *Repo) ListActive(ctx context.Context) ([]Record, error) {
	var recs []Record
	if err := r.db.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("priority ASC, name ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
