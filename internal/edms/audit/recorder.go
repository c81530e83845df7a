// Package audit 只追加的操作审计记录
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bitfantasy/phase/internal/edms/entity"
)

// ErrInvalidVerb 不在动词枚举内
var ErrInvalidVerb = errors.New("invalid activity verb")

// ErrInvalidActor 操作者为空
var ErrInvalidActor = errors.New("activity actor is required")

// Store 审计记录存储
type Store interface {
	CreateActivity(ctx context.Context, activity *entity.Activity) error
}

// Option 记录选项
type Option func(*entry)

type entry struct {
	actionObject Ref
	target       Ref
	occurredAt   time.Time
}

// WithActionObject 操作对象
func WithActionObject(ref Ref) Option {
	return func(e *entry) { e.actionObject = ref }
}

// WithTarget 操作目标
func WithTarget(ref Ref) Option {
	return func(e *entry) { e.target = ref }
}

// At 指定发生时间，默认当前时间
func At(t time.Time) Option {
	return func(e *entry) { e.occurredAt = t }
}

// Recorder 审计记录器
type Recorder struct {
	store    Store
	registry *Registry
	logger   *zap.Logger
	now      func() time.Time
}

// NewRecorder 创建记录器
func NewRecorder(store Store, registry *Registry, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry(5 * time.Minute)
	}
	return &Recorder{store: store, registry: registry, logger: logger, now: time.Now}
}

// Registry 引用解析表
func (r *Recorder) Registry() *Registry {
	return r.registry
}

// ValidVerb 动词是否合法
func ValidVerb(verb string) bool {
	_, ok := entity.VerbLabels[verb]
	return ok
}

// Record 写入一条审计记录，同时保存每个引用的显示名快照
func (r *Recorder) Record(ctx context.Context, actor Ref, verb string, opts ...Option) (*entity.Activity, error) {
	if !ValidVerb(verb) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVerb, verb)
	}
	if actor.IsZero() {
		return nil, ErrInvalidActor
	}

	e := entry{occurredAt: r.now()}
	for _, opt := range opts {
		opt(&e)
	}

	activity := &entity.Activity{
		Verb:      verb,
		CreatedOn: e.occurredAt,
	}
	activity.ActorType, activity.ActorID, activity.ActorStr = r.snapshot(ctx, actor)
	if !e.actionObject.IsZero() {
		activity.ActionObjectType, activity.ActionObjectID, activity.ActionObjectStr = r.snapshot(ctx, e.actionObject)
	}
	if !e.target.IsZero() {
		activity.TargetType, activity.TargetID, activity.TargetStr = r.snapshot(ctx, e.target)
	}

	if err := r.store.CreateActivity(ctx, activity); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return activity, nil
}

// Try 记录失败只打日志，用于业务操作的附带记录
func (r *Recorder) Try(ctx context.Context, actor Ref, verb string, opts ...Option) {
	if _, err := r.Record(ctx, actor, verb, opts...); err != nil {
		r.logger.Warn("record activity failed", zap.String("verb", verb), zap.Error(err))
	}
}

func (r *Recorder) snapshot(ctx context.Context, ref Ref) (*string, *string, string) {
	if !ref.IsEntity() {
		return nil, nil, ref.Label
	}
	tag := string(ref.Type)
	id := ref.ID

	label := ref.Label
	if label == "" {
		if name, ok := r.registry.Resolve(ctx, ref.Type, ref.ID); ok {
			label = name
		}
	}
	if label == "" {
		label = tag + " " + id
	}
	return &tag, &id, label
}

// Describe 当前显示文本：引用的实体还在时用实时名称，否则用快照
func (r *Recorder) Describe(ctx context.Context, a entity.Activity) string {
	return Summarize(a,
		r.name(ctx, a.ActorType, a.ActorID, a.ActorStr),
		r.name(ctx, a.ActionObjectType, a.ActionObjectID, a.ActionObjectStr),
		r.name(ctx, a.TargetType, a.TargetID, a.TargetStr),
	)
}

func (r *Recorder) name(ctx context.Context, tag, id *string, snapshot string) string {
	if tag == nil || id == nil {
		return snapshot
	}
	if name, ok := r.registry.Resolve(ctx, Tag(*tag), *id); ok {
		return name
	}
	return snapshot
}

// TimeLayout 摘要中的时间格式
const TimeLayout = "2006-01-02 15:04:05"

// Summarize 按是否有操作对象、目标选择模板
//
// 模板只看引用是否被记录过，引用的实体之后被删除不影响选择。
func Summarize(a entity.Activity, actor, actionObject, target string) string {
	verb := a.VerbLabel()
	at := a.CreatedOn.Format(TimeLayout)
	hasObject := a.ActionObjectID != nil || a.ActionObjectStr != ""
	hasTarget := a.TargetID != nil || a.TargetStr != ""

	switch {
	case hasObject && hasTarget:
		return fmt.Sprintf("%s %s %s on %s at %s", actor, verb, actionObject, target, at)
	case hasObject:
		return fmt.Sprintf("%s %s %s at %s", actor, verb, actionObject, at)
	case hasTarget:
		return fmt.Sprintf("%s %s %s at %s", actor, verb, target, at)
	}
	return fmt.Sprintf("%s %s at %s", actor, verb, at)
}

// String 只用快照生成摘要
func String(a entity.Activity) string {
	return Summarize(a, a.ActorStr, a.ActionObjectStr, a.TargetStr)
}
