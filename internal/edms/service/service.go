package service

import (
	"context"
	"errors"
	"time"

	"github.com/bitfantasy/phase/internal/config"
	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/packager"
	"github.com/bitfantasy/phase/internal/edms/report"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/shared/queue"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 错误定义
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = repository.ErrNotFound
	ErrForbidden       = errors.New("forbidden")
	ErrNotReviewable   = errors.New("revision cannot be reviewed")
	ErrInvalidDownload = errors.New("invalid download request")
	ErrNotReady        = errors.New("export is not ready")
)

// Notifier 推送用户事件（SSE）
type Notifier interface {
	Notify(userID, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

// Services 服务集合
type Services struct {
	Document    *DocumentService
	Review      *ReviewService
	Transmittal *TransmittalService
	Activity    *ActivityService
	Bookmark    *BookmarkService
	Import      *ImportService
	Export      *ExportService

	Recorder *audit.Recorder
}

// Deps 服务依赖
type Deps struct {
	Repos    *repository.Repositories
	Store    storage.FileStore
	Queue    queue.Queue
	Notifier Notifier
	Config   *config.Config
	Logger   *zap.Logger
}

// NewServices 创建服务集合
func NewServices(d Deps) *Services {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	registry := audit.NewRegistry(5 * time.Minute)
	registerLookups(registry, d.Repos)
	recorder := audit.NewRecorder(d.Repos.Activity, registry, logger.With(zap.String("service", "audit")))

	pack := packager.New(d.Store, d.Config.Export.Compress, logger.With(zap.String("service", "packager")))
	renderer := report.NewRenderer(report.DefaultLayout(), d.Config.Export.PDFCompress)

	docSvc := NewDocumentService(d.Repos, d.Store, pack, recorder, logger)

	return &Services{
		Document:    docSvc,
		Review:      NewReviewService(d.Repos, recorder, d.Config.Review.DefaultDurationDays),
		Transmittal: NewTransmittalService(d.Repos, renderer, recorder),
		Activity:    NewActivityService(d.Repos.Activity, recorder),
		Bookmark:    NewBookmarkService(d.Repos.Bookmark, recorder),
		Import:      NewImportService(d.Repos, d.Store, d.Queue, docSvc, recorder, notifier, logger),
		Export:      NewExportService(d.Repos, d.Store, d.Queue, recorder, notifier, d.Config.Export.Directory, logger),
		Recorder:    recorder,
	}
}

// registerLookups 审计引用按类型解析显示名
func registerLookups(registry *audit.Registry, repos *repository.Repositories) {
	registry.Register(audit.TagUser, func(ctx context.Context, id string) (string, bool, error) {
		u, err := repos.User.FindByID(ctx, id)
		return lookupResult(u, err)
	})
	registry.Register(audit.TagDocument, func(ctx context.Context, id string) (string, bool, error) {
		doc, err := repos.Document.FindByID(ctx, id)
		return lookupResult(doc, err)
	})
	registry.Register(audit.TagRevision, func(ctx context.Context, id string) (string, bool, error) {
		rev, err := repos.Document.FindRevisionByID(ctx, id)
		return lookupResult(rev, err)
	})
	registry.Register(audit.TagCategory, func(ctx context.Context, id string) (string, bool, error) {
		c, err := repos.Category.FindByID(ctx, id)
		return lookupResult(c, err)
	})
	registry.Register(audit.TagImport, func(ctx context.Context, id string) (string, bool, error) {
		b, err := repos.Import.FindByUID(ctx, id)
		return lookupResult(b, err)
	})
	registry.Register(audit.TagBookmark, func(ctx context.Context, id string) (string, bool, error) {
		b, err := repos.Bookmark.FindByID(ctx, id)
		return lookupResult(b, err)
	})
}

type stringer interface {
	String() string
}

func lookupResult[T stringer](v T, err error) (string, bool, error) {
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.String(), true, nil
}

func newID() string {
	return uuid.New().String()[:32]
}

// actor 当前用户作为审计操作者
func actor(userID string) audit.Ref {
	if userID == "" {
		return audit.Literal(entity.SystemActor)
	}
	return audit.Entity(audit.TagUser, userID, "")
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}
