package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/repository"
)

// 书签字段长度
const (
	BookmarkNameMax = 50
	BookmarkURLMax  = 200
)

// BookmarkService 用户书签
type BookmarkService struct {
	repo     *repository.BookmarkRepository
	recorder *audit.Recorder
}

func NewBookmarkService(repo *repository.BookmarkRepository, recorder *audit.Recorder) *BookmarkService {
	return &BookmarkService{repo: repo, recorder: recorder}
}

// BookmarkRequest 创建书签
type BookmarkRequest struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required"`
}

// Validate 校验长度
func (r *BookmarkRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.URL = strings.TrimSpace(r.URL)
	if r.Name == "" || utf8.RuneCountInString(r.Name) > BookmarkNameMax {
		return invalid("name must be 1 to %d characters", BookmarkNameMax)
	}
	if r.URL == "" || utf8.RuneCountInString(r.URL) > BookmarkURLMax {
		return invalid("url must be 1 to %d characters", BookmarkURLMax)
	}
	return nil
}

// List 当前用户的书签
func (s *BookmarkService) List(ctx context.Context, userID string) ([]entity.Bookmark, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return items, nil
}

// Create 创建书签
func (s *BookmarkService) Create(ctx context.Context, userID string, req *BookmarkRequest) (*entity.Bookmark, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b := &entity.Bookmark{
		ID:        newID(),
		UserID:    userID,
		Name:      req.Name,
		URL:       req.URL,
		CreatedOn: today(),
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create bookmark: %w", err)
	}
	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(audit.Entity(audit.TagBookmark, b.ID, b.Name)))
	return b, nil
}

// Delete 删除书签，只有所有者可以删除
func (s *BookmarkService) Delete(ctx context.Context, userID, id string) error {
	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find bookmark: %w", err)
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	s.recorder.Registry().Forget(audit.TagBookmark, id)
	s.recorder.Try(ctx, actor(userID), entity.VerbDeleted,
		audit.WithActionObject(audit.Entity(audit.TagBookmark, b.ID, b.Name)))
	return nil
}
