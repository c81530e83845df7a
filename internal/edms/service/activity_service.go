package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/repository"
)

// ActivityService 审计记录查询
type ActivityService struct {
	repo     *repository.ActivityRepository
	recorder *audit.Recorder
}

func NewActivityService(repo *repository.ActivityRepository, recorder *audit.Recorder) *ActivityService {
	return &ActivityService{repo: repo, recorder: recorder}
}

// ActivityItem 带摘要的审计记录
type ActivityItem struct {
	entity.Activity
	Summary string `json:"summary"`
}

// List 按时间倒序分页，每条带当前摘要
func (s *ActivityService) List(ctx context.Context, page, pageSize int) ([]ActivityItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	activities, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}
	items := make([]ActivityItem, 0, len(activities))
	for _, a := range activities {
		items = append(items, ActivityItem{Activity: a, Summary: s.recorder.Describe(ctx, a)})
	}
	return items, total, nil
}

// ForDocument 某个文档的审计记录
func (s *ActivityService) ForDocument(ctx context.Context, documentID string) ([]ActivityItem, error) {
	activities, err := s.repo.FindByTarget(ctx, string(audit.TagDocument), documentID)
	if err != nil {
		return nil, fmt.Errorf("list document activities: %w", err)
	}
	items := make([]ActivityItem, 0, len(activities))
	for _, a := range activities {
		items = append(items, ActivityItem{Activity: a, Summary: s.recorder.Describe(ctx, a)})
	}
	return items, nil
}
