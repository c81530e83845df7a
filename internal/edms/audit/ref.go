package audit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Tag 实体类型标识
type Tag string

// 已注册的实体类型
const (
	TagUser        Tag = "user"
	TagDocument    Tag = "document"
	TagRevision    Tag = "document_revision"
	TagCategory    Tag = "category"
	TagTransmittal Tag = "transmittal"
	TagImport      Tag = "import_batch"
	TagExport      Tag = "export"
	TagBookmark    Tag = "bookmark"
	TagDistList    Tag = "distribution_list"
)

// Ref 多态引用：实体类型+ID，或者（仅限操作者）一个字面标签
type Ref struct {
	Type  Tag
	ID    string
	Label string
}

// Entity 引用一个实体，label 为空时记录时通过 Registry 解析
func Entity(tag Tag, id string, label string) Ref {
	return Ref{Type: tag, ID: id, Label: label}
}

// Literal 非实体操作者
func Literal(label string) Ref {
	return Ref{Label: label}
}

// IsZero 未设置
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == "" && r.Label == ""
}

// IsEntity 是否指向实体
func (r Ref) IsEntity() bool {
	return r.Type != "" && r.ID != ""
}

// Lookup 按ID查找实体显示名，实体不存在时 found=false
type Lookup func(ctx context.Context, id string) (name string, found bool, err error)

// Registry Tag → Lookup，解析结果缓存
type Registry struct {
	mu      sync.RWMutex
	lookups map[Tag]Lookup
	names   *cache.Cache
}

// NewRegistry ttl 为显示名缓存时间
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		lookups: make(map[Tag]Lookup),
		names:   cache.New(ttl, 2*ttl),
	}
}

// Register 注册实体类型
func (r *Registry) Register(tag Tag, lookup Lookup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[tag] = lookup
}

// Resolve 解析显示名。未注册、查不到或出错都返回 found=false，不报错
func (r *Registry) Resolve(ctx context.Context, tag Tag, id string) (string, bool) {
	if tag == "" || id == "" {
		return "", false
	}
	key := cacheKey(tag, id)
	if name, ok := r.names.Get(key); ok {
		return name.(string), true
	}

	r.mu.RLock()
	lookup, ok := r.lookups[tag]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}

	name, found, err := lookup(ctx, id)
	if err != nil || !found {
		return "", false
	}
	r.names.Set(key, name, cache.DefaultExpiration)
	return name, true
}

// Forget 实体变更或删除后清掉缓存
func (r *Registry) Forget(tag Tag, id string) {
	r.names.Delete(cacheKey(tag, id))
}

func cacheKey(tag Tag, id string) string {
	return string(tag) + ":" + id
}
