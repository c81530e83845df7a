package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/grid"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/edms/sse"
	"github.com/bitfantasy/phase/internal/edms/tabular"
	"github.com/bitfantasy/phase/internal/shared/queue"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportService 文档列表导出
type ExportService struct {
	repos     *repository.Repositories
	store     storage.FileStore
	queue     queue.Queue
	recorder  *audit.Recorder
	notifier  Notifier
	directory string
	grid      grid.Config
	logger    *zap.Logger
}

func NewExportService(repos *repository.Repositories, store storage.FileStore, q queue.Queue, recorder *audit.Recorder, notifier Notifier, directory string, logger *zap.Logger) *ExportService {
	if directory == "" {
		directory = "exports"
	}
	return &ExportService{
		repos:     repos,
		store:     store,
		queue:     q,
		recorder:  recorder,
		notifier:  notifier,
		directory: directory,
		grid:      grid.DocumentConfig(),
		logger:    logger.With(zap.String("service", "export")),
	}
}

// ExportRequest 创建导出：querystring 与表格查询参数相同
type ExportRequest struct {
	CategoryID  string `json:"category_id"`
	Querystring string `json:"querystring"`
	Format      string `json:"format"`
}

// ExportUpdate SSE 推送的导出进度
type ExportUpdate struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Create 创建导出任务并入队
func (s *ExportService) Create(ctx context.Context, userID string, req *ExportRequest) (*entity.Export, error) {
	if req.Format == "" {
		req.Format = entity.ExportFormatCSV
	}
	if req.Format != entity.ExportFormatCSV && req.Format != entity.ExportFormatXLSX {
		return nil, invalid("unknown export format %q", req.Format)
	}
	if _, err := url.ParseQuery(req.Querystring); err != nil {
		return nil, invalid("malformed querystring")
	}
	if req.CategoryID != "" {
		if _, err := s.repos.Category.FindByID(ctx, req.CategoryID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("unknown category %s", req.CategoryID)
			}
			return nil, fmt.Errorf("find category: %w", err)
		}
	}

	export := &entity.Export{
		ID:          uuid.New().String(),
		OwnerID:     userID,
		CategoryID:  req.CategoryID,
		Querystring: req.Querystring,
		Format:      req.Format,
		Status:      entity.ExportStatusNew,
		CreatedOn:   time.Now(),
	}
	if err := s.repos.Export.Create(ctx, export); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}
	if err := s.queue.Enqueue(ctx, queue.Task{Kind: queue.KindExport, ID: export.ID}); err != nil {
		s.finish(ctx, export, errors.New("export could not be queued"))
		return nil, fmt.Errorf("enqueue export: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(audit.Entity(audit.TagExport, export.ID, export.GetFilename())))
	return export, nil
}

// Get 导出任务，只有所有者可见
func (s *ExportService) Get(ctx context.Context, userID, id string) (*entity.Export, error) {
	export, err := s.repos.Export.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find export: %w", err)
	}
	if export.OwnerID != userID {
		return nil, ErrForbidden
	}
	return export, nil
}

// List 用户的导出任务
func (s *ExportService) List(ctx context.Context, userID string) ([]entity.Export, error) {
	items, err := s.repos.Export.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	return items, nil
}

// Open 打开已完成的导出文件，返回内容、文件名、Content-Type
func (s *ExportService) Open(ctx context.Context, userID, id string) (io.ReadCloser, string, string, error) {
	export, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, "", "", err
	}
	if export.Status != entity.ExportStatusDone || export.FilePath == "" {
		return nil, "", "", ErrNotReady
	}
	rc, err := s.store.Open(ctx, export.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", "", fmt.Errorf("open export file: %w", ErrNotFound)
		}
		return nil, "", "", fmt.Errorf("open export file: %w", err)
	}
	return rc, export.GetFilename(), tabular.ContentType(export.Format), nil
}

// Process 后台执行导出：按保存的查询参数取全部结果写成文件
func (s *ExportService) Process(ctx context.Context, id string) error {
	export, err := s.repos.Export.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("find export: %w", err)
	}
	if export.Status != entity.ExportStatusNew {
		s.logger.Info("export already processed", zap.String("id", id), zap.String("status", export.Status))
		return nil
	}

	export.Status = entity.ExportStatusProcessing
	if err := s.repos.Export.UpdateStatus(ctx, export); err != nil {
		return fmt.Errorf("start export: %w", err)
	}
	s.notify(export)

	err = s.write(ctx, export)
	if err != nil {
		s.logger.Error("export failed", zap.String("id", id), zap.Error(err))
	}
	return s.finish(ctx, export, err)
}

// finish 写入最终状态，cause 为空时 done，否则 error。调用方的 ctx 已取消时仍然写入
func (s *ExportService) finish(ctx context.Context, export *entity.Export, cause error) error {
	if cause != nil {
		export.Status = entity.ExportStatusError
		export.Message = cause.Error()
	} else {
		export.Status = entity.ExportStatusDone
	}
	now := time.Now()
	export.FinishedOn = &now

	if err := s.repos.Export.UpdateStatus(context.WithoutCancel(ctx), export); err != nil {
		s.logger.Error("cannot save export status", zap.String("id", export.ID), zap.Error(err))
		return fmt.Errorf("finish export: %w", err)
	}
	s.notify(export)
	return nil
}

func (s *ExportService) write(ctx context.Context, export *entity.Export) error {
	values, err := url.ParseQuery(export.Querystring)
	if err != nil {
		return fmt.Errorf("parse querystring: %w", err)
	}
	q := s.grid.Translate(grid.ParseParams(values))

	docs, err := s.repos.Document.FilterAll(ctx, export.CategoryID, q)
	if err != nil {
		return fmt.Errorf("filter documents: %w", err)
	}

	header, rows := s.table(docs)
	var buf bytes.Buffer
	if err := tabular.Write(export.Format, &buf, header, rows); err != nil {
		return err
	}

	key := path.Join(s.directory, export.GetFilename())
	if err := s.store.Put(ctx, key, &buf, int64(buf.Len()), tabular.ContentType(export.Format)); err != nil {
		return fmt.Errorf("store export: %w", err)
	}
	export.FilePath = key
	s.logger.Info("export written", zap.String("id", export.ID), zap.Int("documents", len(docs)))
	return nil
}

func (s *ExportService) table(docs []entity.Document) ([]string, [][]string) {
	header := make([]string, 0, len(s.grid.Fields))
	for _, f := range s.grid.Fields {
		header = append(header, f.Label)
	}
	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		cells := s.grid.Row(grid.DocumentValues(doc))
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = fmt.Sprint(c)
		}
		rows = append(rows, row)
	}
	return header, rows
}

func (s *ExportService) notify(export *entity.Export) {
	s.notifier.Notify(export.OwnerID, sse.EventExportUpdate, ExportUpdate{
		ID:      export.ID,
		Status:  export.Status,
		Message: export.Message,
	})
}
