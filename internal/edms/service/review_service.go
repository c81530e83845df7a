package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/repository"
)

// ReviewService 审阅流程与分发列表
type ReviewService struct {
	repos        *repository.Repositories
	recorder     *audit.Recorder
	durationDays int
}

func NewReviewService(repos *repository.Repositories, recorder *audit.Recorder, durationDays int) *ReviewService {
	if durationDays <= 0 {
		durationDays = 13
	}
	return &ReviewService{repos: repos, recorder: recorder, durationDays: durationDays}
}

func (s *ReviewService) revision(ctx context.Context, number string, revision int) (*entity.Document, *entity.DocumentRevision, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, nil, fmt.Errorf("find document: %w", err)
	}
	rev, err := s.repos.Document.FindRevision(ctx, doc.ID, revision)
	if err != nil {
		return nil, nil, fmt.Errorf("find revision: %w", err)
	}
	return doc, rev, nil
}

// StartReview 启动审阅：开始日期为今天，截止日期为今天+默认天数
func (s *ReviewService) StartReview(ctx context.Context, userID, number string, revision int) (*entity.DocumentRevision, error) {
	doc, rev, err := s.revision(ctx, number, revision)
	if err != nil {
		return nil, err
	}
	if !rev.CanBeReviewed() {
		return nil, ErrNotReviewable
	}

	start := today()
	due := start.AddDate(0, 0, s.durationDays)
	underReview := true
	overdue := false
	rev.ReviewStartDate = &start
	rev.ReviewDueDate = &due
	rev.UnderReview = &underReview
	rev.Overdue = &overdue

	if err := s.repos.Document.UpdateRevision(ctx, rev); err != nil {
		return nil, fmt.Errorf("start review: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbUpdated,
		audit.WithActionObject(revisionRef(doc, rev)),
		audit.WithTarget(documentRef(doc)),
	)
	return rev, nil
}

// ApplyDistributionList 把分发列表的负责人、批准人、审阅人设置到版本上
func (s *ReviewService) ApplyDistributionList(ctx context.Context, userID, number string, revision int, listID string) (*entity.DocumentRevision, error) {
	doc, rev, err := s.revision(ctx, number, revision)
	if err != nil {
		return nil, err
	}
	list, err := s.repos.DistributionList.FindByID(ctx, listID)
	if err != nil {
		return nil, fmt.Errorf("find distribution list: %w", err)
	}
	if doc.CategoryID != "" && list.CategoryID != doc.CategoryID {
		return nil, invalid("distribution list %s does not belong to the document category", list.Name)
	}
	if rev.ReviewStartDate != nil {
		return nil, ErrNotReviewable
	}

	leader := list.LeaderID
	rev.LeaderID = &leader
	rev.ApproverID = list.ApproverID
	if err := s.repos.Document.UpdateRevision(ctx, rev); err != nil {
		return nil, fmt.Errorf("update revision: %w", err)
	}
	if err := s.repos.Document.ReplaceReviewers(ctx, rev, list.Reviewers); err != nil {
		return nil, fmt.Errorf("replace reviewers: %w", err)
	}
	rev.Reviewers = list.Reviewers
	rev.Leader = list.Leader
	rev.Approver = list.Approver

	s.recorder.Try(ctx, actor(userID), entity.VerbUpdated,
		audit.WithActionObject(revisionRef(doc, rev)),
		audit.WithTarget(documentRef(doc)),
	)
	return rev, nil
}

// ListDistributionLists 分类下的分发列表
func (s *ReviewService) ListDistributionLists(ctx context.Context, categoryID string) ([]entity.DistributionList, error) {
	if _, err := s.repos.Category.FindByID(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}
	lists, err := s.repos.DistributionList.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list distribution lists: %w", err)
	}
	return lists, nil
}

// DistributionListRequest 创建分发列表
type DistributionListRequest struct {
	Name        string   `json:"name" binding:"required"`
	LeaderID    string   `json:"leader_id" binding:"required"`
	ApproverID  string   `json:"approver_id"`
	ReviewerIDs []string `json:"reviewer_ids"`
}

// CreateDistributionList 创建分发列表，审阅人至少一个
func (s *ReviewService) CreateDistributionList(ctx context.Context, userID, categoryID string, req *DistributionListRequest) (*entity.DistributionList, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > 250 {
		return nil, invalid("name must be 1 to 250 characters")
	}
	if len(req.ReviewerIDs) == 0 {
		return nil, invalid("at least one reviewer is required")
	}
	if _, err := s.repos.Category.FindByID(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("find category: %w", err)
	}

	ids := append([]string{req.LeaderID}, req.ReviewerIDs...)
	if req.ApproverID != "" {
		ids = append(ids, req.ApproverID)
	}
	users, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	byID := make(map[string]entity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, invalid("unknown user %s", id)
		}
	}

	list := &entity.DistributionList{
		ID:         newID(),
		Name:       req.Name,
		CategoryID: categoryID,
		LeaderID:   req.LeaderID,
	}
	if req.ApproverID != "" {
		approver := req.ApproverID
		list.ApproverID = &approver
	}
	for _, id := range req.ReviewerIDs {
		list.Reviewers = append(list.Reviewers, byID[id])
	}
	if err := s.repos.DistributionList.Create(ctx, list); err != nil {
		return nil, fmt.Errorf("create distribution list: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(audit.Entity(audit.TagDistList, list.ID, list.Name)),
		audit.WithTarget(audit.Entity(audit.TagCategory, categoryID, "")),
	)
	return list, nil
}

// MarkOverdue 标记逾期审阅，返回更新条数
func (s *ReviewService) MarkOverdue(ctx context.Context) (int64, error) {
	n, err := s.repos.Document.UpdateOverdue(ctx, today())
	if err != nil {
		return 0, fmt.Errorf("mark overdue reviews: %w", err)
	}
	return n, nil
}
