package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/edms/sse"
	"github.com/bitfantasy/phase/internal/edms/tabular"
	"github.com/bitfantasy/phase/internal/shared/queue"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ImportFields 导入文件的列（模板表头）
var ImportFields = []string{
	"document_number",
	"title",
	"status",
	"current_revision",
	"current_revision_date",
	"unit",
	"discipline",
	"document_type",
	"klass",
}

var requiredImportFields = []string{"document_number", "title"}

// ImportService 文件导入
type ImportService struct {
	repos    *repository.Repositories
	store    storage.FileStore
	queue    queue.Queue
	docs     *DocumentService
	recorder *audit.Recorder
	notifier Notifier
	logger   *zap.Logger
}

func NewImportService(repos *repository.Repositories, store storage.FileStore, q queue.Queue, docs *DocumentService, recorder *audit.Recorder, notifier Notifier, logger *zap.Logger) *ImportService {
	return &ImportService{
		repos:    repos,
		store:    store,
		queue:    q,
		docs:     docs,
		recorder: recorder,
		notifier: notifier,
		logger:   logger.With(zap.String("service", "import")),
	}
}

// ImportUpdate SSE 推送的批次进度
type ImportUpdate struct {
	UID       string `json:"uid"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Message   string `json:"message,omitempty"`
}

// Create 保存上传文件，创建批次并入队
func (s *ImportService) Create(ctx context.Context, userID, categoryID string, upload *Upload) (*entity.ImportBatch, error) {
	if upload == nil {
		return nil, invalid("file is required")
	}
	if _, err := tabular.FormatOf(upload.Filename); err != nil {
		return nil, invalid("%v", err)
	}
	if categoryID == "" {
		return nil, invalid("category_id is required")
	}
	if err := s.docs.checkCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	batch := &entity.ImportBatch{
		UID:        uuid.New().String(),
		FileName:   filepath.Base(upload.Filename),
		CategoryID: categoryID,
		OwnerID:    userID,
		Status:     entity.ImportStatusNew,
		CreatedOn:  time.Now(),
	}
	batch.FilePath = fmt.Sprintf("imports/%s/%s", batch.UID, batch.FileName)

	if err := s.store.Put(ctx, batch.FilePath, upload.Reader, upload.Size, upload.ContentType); err != nil {
		return nil, fmt.Errorf("store import file: %w", err)
	}
	if err := s.repos.Import.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create import batch: %w", err)
	}
	if err := s.queue.Enqueue(ctx, queue.Task{Kind: queue.KindImport, ID: batch.UID}); err != nil {
		s.fail(ctx, batch, "import could not be queued")
		return nil, fmt.Errorf("enqueue import: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(audit.Entity(audit.TagImport, batch.UID, batch.FileName)),
		audit.WithTarget(audit.Entity(audit.TagCategory, categoryID, "")),
	)
	return batch, nil
}

// Get 批次状态及明细，只有所有者可见
func (s *ImportService) Get(ctx context.Context, userID, uid string) (*entity.ImportBatch, error) {
	batch, err := s.repos.Import.FindByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("find import batch: %w", err)
	}
	if batch.OwnerID != userID {
		return nil, ErrForbidden
	}
	return batch, nil
}

// List 用户的导入批次
func (s *ImportService) List(ctx context.Context, userID string) ([]entity.ImportBatch, error) {
	items, err := s.repos.Import.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return items, nil
}

// Template 导入模板：只有表头
func (s *ImportService) Template(format string) ([]byte, error) {
	if format == "" {
		format = tabular.FormatCSV
	}
	var buf bytes.Buffer
	if err := tabular.Write(format, &buf, ImportFields, nil); err != nil {
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			return nil, invalid("%v", err)
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

// Process 后台处理批次：逐行创建或编辑文档，每行记录结果
func (s *ImportService) Process(ctx context.Context, uid string) error {
	batch, err := s.repos.Import.FindByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("find import batch: %w", err)
	}
	if batch.Status != entity.ImportStatusNew {
		s.logger.Info("import batch already processed", zap.String("uid", uid), zap.String("status", batch.Status))
		return nil
	}

	batch.Status = entity.ImportStatusStarted
	if err := s.repos.Import.UpdateStatus(ctx, batch); err != nil {
		return fmt.Errorf("start import batch: %w", err)
	}
	s.notify(batch)

	table, err := s.readTable(ctx, batch)
	if err != nil {
		s.logger.Warn("import file unreadable", zap.String("uid", uid), zap.Error(err))
		return s.finish(ctx, batch, err.Error())
	}

	batch.Total = len(table.Rows)
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, batch, "import interrupted")
			return fmt.Errorf("process import batch: %w", err)
		}
		line := &entity.ImportLine{
			ID:         newID(),
			BatchUID:   batch.UID,
			LineNumber: row.Line,
			Data:       rowData(row.Values),
		}

		doc, err := s.docs.ImportRow(ctx, batch.OwnerID, batch.CategoryID, row.Values)
		if err != nil {
			line.Status = entity.ImportStatusError
			line.Errors = err.Error()
			batch.Failed++
			s.logger.Warn("import line failed",
				zap.String("uid", uid),
				zap.Int("line", row.Line),
				zap.Error(err),
			)
		} else {
			line.Status = entity.ImportStatusSuccess
			line.DocumentID = doc.ID
			batch.Succeeded++
		}

		if err := s.repos.Import.CreateLine(ctx, line); err != nil {
			s.fail(ctx, batch, "cannot save import line")
			return fmt.Errorf("create import line: %w", err)
		}
	}

	return s.finish(ctx, batch, "")
}

func (s *ImportService) readTable(ctx context.Context, batch *entity.ImportBatch) (*tabular.Table, error) {
	format, err := tabular.FormatOf(batch.FileName)
	if err != nil {
		return nil, err
	}
	rc, err := s.store.Open(ctx, batch.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer rc.Close()

	table, err := tabular.Read(format, rc)
	if err != nil {
		return nil, err
	}
	if err := checkHeader(table.Header); err != nil {
		return nil, err
	}
	return table, nil
}

func checkHeader(header []string) error {
	for _, required := range requiredImportFields {
		if !oneOf(required, header) {
			return fmt.Errorf("missing column %q", required)
		}
	}
	return nil
}

// finish 按行结果确定最终状态
func (s *ImportService) finish(ctx context.Context, batch *entity.ImportBatch, message string) error {
	now := time.Now()
	batch.FinishedOn = &now
	batch.Message = message
	batch.Status = FinalImportStatus(batch.Succeeded, batch.Failed, message != "")

	if err := s.repos.Import.UpdateStatus(context.WithoutCancel(ctx), batch); err != nil {
		s.fail(ctx, batch, "cannot save import result")
		return fmt.Errorf("finish import batch: %w", err)
	}
	s.notify(batch)
	s.logger.Info("import batch finished",
		zap.String("uid", batch.UID),
		zap.String("status", batch.Status),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
	)
	return nil
}

// fail 批次异常结束，写入 error 状态。调用方的 ctx 已取消时仍然写入
func (s *ImportService) fail(ctx context.Context, batch *entity.ImportBatch, message string) {
	now := time.Now()
	batch.FinishedOn = &now
	batch.Message = message
	batch.Status = entity.ImportStatusError

	if err := s.repos.Import.UpdateStatus(context.WithoutCancel(ctx), batch); err != nil {
		s.logger.Error("cannot mark import batch failed", zap.String("uid", batch.UID), zap.Error(err))
		return
	}
	s.notify(batch)
}

// FinalImportStatus 全部成功 success，全部失败或文件错误 error，其余 partial_success
func FinalImportStatus(succeeded, failed int, fileError bool) string {
	switch {
	case fileError:
		return entity.ImportStatusError
	case failed == 0:
		return entity.ImportStatusSuccess
	case succeeded == 0:
		return entity.ImportStatusError
	}
	return entity.ImportStatusPartialSuccess
}

func (s *ImportService) notify(batch *entity.ImportBatch) {
	s.notifier.Notify(batch.OwnerID, sse.EventImportUpdate, ImportUpdate{
		UID:       batch.UID,
		Status:    batch.Status,
		Total:     batch.Total,
		Succeeded: batch.Succeeded,
		Failed:    batch.Failed,
		Message:   batch.Message,
	})
}

func rowData(values map[string]string) datatypes.JSONMap {
	data := make(datatypes.JSONMap, len(values))
	for k, v := range values {
		data[k] = v
	}
	return data
}
