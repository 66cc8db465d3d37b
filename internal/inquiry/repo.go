package inquiry

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

// WithTx returns a Repo bound to the given transaction handle.
func (r *Repo) WithTx(tx *gorm.DB) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) CreateInquiry(ctx context.Context, inq *Inquiry) error {
	return r.db.WithContext(ctx).Create(inq).Error
}

func (r *Repo) GetInquiryByID(ctx context.Context, id string) (*Inquiry, error) {
	var inq Inquiry
	if err := r.db.WithContext(ctx).First(&inq, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inq, nil
}

// MarkProcessing flips PENDING -> PROCESSING. The status guard keeps
// the pipeline from re-entering an inquiry that already ran.
func (r *Repo) MarkProcessing(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&Inquiry{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", StatusProcessing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) MarkCompleted(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Inquiry{}).
		Where("id = ?", id).
		Update("status", StatusCompleted).Error
}

// MarkFailed is terminal and unconditional on the PROCESSING state so
// the failure path can never itself get stuck.
func (r *Repo) MarkFailed(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Inquiry{}).
		Where("id = ? AND status IN ?", id, []Status{StatusPending, StatusProcessing}).
		Update("status", StatusFailed).Error
}

func (r *Repo) CreateReplies(ctx context.Context, replies []ProviderReply) error {
	if len(replies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&replies).Error
}

func (r *Repo) CreateConsolidated(ctx context.Context, ans *ConsolidatedAnswer) error {
	return r.db.WithContext(ctx).Create(ans).Error
}

func (r *Repo) CreateRatings(ctx context.Context, ratings []ProviderRating) error {
	if len(ratings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&ratings).Error
}

func (r *Repo) GetConsolidatedByInquiry(ctx context.Context, inquiryID string) (*ConsolidatedAnswer, error) {
	var ans ConsolidatedAnswer
	if err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		First(&ans).Error; err != nil {
		return nil, err
	}
	return &ans, nil
}

func (r *Repo) ListRepliesByInquiry(ctx context.Context, inquiryID string) ([]ProviderReply, error) {
	var replies []ProviderReply
	if err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		Order("id ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *Repo) ListRatingsByInquiry(ctx context.Context, inquiryID string) ([]ProviderRating, error) {
	var ratings []ProviderRating
	if err := r.db.WithContext(ctx).
		Where("inquiry_id = ?", inquiryID).
		Order("id ASC").
		Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}
