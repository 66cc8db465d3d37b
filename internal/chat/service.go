package chat

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateThread(ctx context.Context, userID uint64, title string) (*Thread, error) {
	tid, err := NewThreadID()
	if err != nil {
		return nil, err
	}

	thread := &Thread{
		ThreadID: tid,
		UserID:   userID,
		Title:    title,
	}

	if err := s.repo.CreateThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// ValidateThreadOwner loads a thread and checks ownership. A thread the
// user does not own is reported as not found.
func (s *Service) ValidateThreadOwner(ctx context.Context, userID uint64, threadID string) (*Thread, error) {
	thread, err := s.repo.GetThreadByThreadID(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	if thread.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return thread, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, threadID string, limit int, beforeID uint64) ([]Message, error) {
	if _, err := s.ValidateThreadOwner(ctx, userID, threadID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, userID, threadID, limit, beforeID)
}
