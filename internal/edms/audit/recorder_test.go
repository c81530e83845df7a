package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitfantasy/phase/internal/edms/entity"
)

type memoryStore struct {
	mu         sync.Mutex
	activities []entity.Activity
	fail       error
}

func (m *memoryStore) CreateActivity(ctx context.Context, a *entity.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	a.ID = uint(len(m.activities) + 1)
	m.activities = append(m.activities, *a)
	return nil
}

type directory struct {
	mu    sync.Mutex
	names map[string]string
	calls int
}

func (d *directory) lookup(ctx context.Context, id string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	name, ok := d.names[id]
	return name, ok, nil
}

func (d *directory) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.names, id)
}

var fixedTime = time.Date(2014, 5, 6, 10, 30, 0, 0, time.UTC)

func setup() (*Recorder, *memoryStore, *directory, *directory) {
	store := &memoryStore{}
	users := &directory{names: map[string]string{"u1": "Jean-Luc"}}
	docs := &directory{names: map[string]string{"d1": "FAC09001-FWF-000-HSE-REP-0004"}}

	registry := NewRegistry(time.Minute)
	registry.Register(TagUser, users.lookup)
	registry.Register(TagDocument, docs.lookup)

	r := NewRecorder(store, registry, nil)
	r.now = func() time.Time { return fixedTime }
	return r, store, users, docs
}

func TestRecordTargetOnly(t *testing.T) {
	r, store, _, _ := setup()
	ctx := context.Background()

	a, err := r.Record(ctx, Entity(TagUser, "u1", ""), entity.VerbUpdated, WithTarget(Entity(TagDocument, "d1", "")))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(store.activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(store.activities))
	}
	if a.ActorStr != "Jean-Luc" || a.TargetStr != "FAC09001-FWF-000-HSE-REP-0004" {
		t.Errorf("snapshots not captured: %+v", a)
	}
	if a.ActionObjectType != nil || a.ActionObjectStr != "" {
		t.Errorf("expected no action object: %+v", a)
	}

	want := "Jean-Luc updated FAC09001-FWF-000-HSE-REP-0004 at 2014-05-06 10:30:00"
	if got := r.Describe(ctx, *a); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestRecordInvalidVerb(t *testing.T) {
	r, store, _, _ := setup()

	_, err := r.Record(context.Background(), Entity(TagUser, "u1", ""), "archived")
	if !errors.Is(err, ErrInvalidVerb) {
		t.Fatalf("expected ErrInvalidVerb, got %v", err)
	}
	if len(store.activities) != 0 {
		t.Errorf("no activity must be stored, got %d", len(store.activities))
	}
}

func TestRecordRequiresActor(t *testing.T) {
	r, _, _, _ := setup()
	if _, err := r.Record(context.Background(), Ref{}, entity.VerbCreated); !errors.Is(err, ErrInvalidActor) {
		t.Errorf("expected ErrInvalidActor, got %v", err)
	}
}

func TestSummaryTemplates(t *testing.T) {
	r, _, _, _ := setup()
	ctx := context.Background()
	user := Entity(TagUser, "u1", "")
	doc := Entity(TagDocument, "d1", "")
	rev := Entity(TagRevision, "r1", "FAC09001-FWF-000-HSE-REP-0004 rev. 01")

	cases := []struct {
		name string
		opts []Option
		want string
	}{
		{"both", []Option{WithActionObject(rev), WithTarget(doc)}, "Jean-Luc created FAC09001-FWF-000-HSE-REP-0004 rev. 01 on FAC09001-FWF-000-HSE-REP-0004 at 2014-05-06 10:30:00"},
		{"action object", []Option{WithActionObject(rev)}, "Jean-Luc created FAC09001-FWF-000-HSE-REP-0004 rev. 01 at 2014-05-06 10:30:00"},
		{"target", []Option{WithTarget(doc)}, "Jean-Luc created FAC09001-FWF-000-HSE-REP-0004 at 2014-05-06 10:30:00"},
		{"neither", nil, "Jean-Luc created at 2014-05-06 10:30:00"},
	}
	for _, tc := range cases {
		a, err := r.Record(ctx, user, entity.VerbCreated, tc.opts...)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := r.Describe(ctx, *a); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		if got := String(*a); got != tc.want {
			t.Errorf("%s: snapshot summary %q", tc.name, got)
		}
	}
}

func TestSystemActorAndJoinedLabel(t *testing.T) {
	r, _, _, _ := setup()
	ctx := context.Background()

	a, err := r.Record(ctx, Literal(entity.SystemActor), entity.VerbJoined)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.ActorType != nil || a.ActorID != nil {
		t.Errorf("literal actor must not carry a reference: %+v", a)
	}
	if got := r.Describe(ctx, *a); got != "System joined Phase at 2014-05-06 10:30:00" {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestDeletedTargetKeepsSummary(t *testing.T) {
	r, _, _, docs := setup()
	ctx := context.Background()

	a, err := r.Record(ctx, Entity(TagUser, "u1", ""), entity.VerbDeleted, WithTarget(Entity(TagDocument, "d1", "")))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	before := r.Describe(ctx, *a)

	docs.remove("d1")
	r.Registry().Forget(TagDocument, "d1")

	after := r.Describe(ctx, *a)
	if before != after {
		t.Errorf("summary changed after delete: %q -> %q", before, after)
	}
}

func TestUnresolvableReferenceGetsFallbackSnapshot(t *testing.T) {
	r, _, _, _ := setup()
	a, err := r.Record(context.Background(), Entity(TagUser, "ghost", ""), entity.VerbCreated, WithTarget(Entity(Tag("widget"), "w9", "")))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.ActorStr != "user ghost" || a.TargetStr != "widget w9" {
		t.Errorf("expected type/id fallback snapshots, got %q / %q", a.ActorStr, a.TargetStr)
	}
}

func TestRegistryCachesNames(t *testing.T) {
	r, _, users, _ := setup()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, ok := r.Registry().Resolve(ctx, TagUser, "u1"); !ok {
			t.Fatal("expected user to resolve")
		}
	}
	if users.calls != 1 {
		t.Errorf("expected one lookup, got %d", users.calls)
	}
}

func TestRecordStoreError(t *testing.T) {
	r, store, _, _ := setup()
	store.fail = errors.New("db down")
	_, err := r.Record(context.Background(), Literal(entity.SystemActor), entity.VerbCreated)
	if err == nil || !strings.Contains(err.Error(), "db down") {
		t.Errorf("expected wrapped store error, got %v", err)
	}
}
