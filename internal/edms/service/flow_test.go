package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/bitfantasy/phase/internal/config"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/edms/testutil"
	"github.com/bitfantasy/phase/internal/shared/queue"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"go.uber.org/zap"
)

type recordedEvent struct {
	userID, eventType string
}

type recordingNotifier struct {
	events []recordedEvent
	// onNotify 每次推送后调用
	onNotify func()
}

func (n *recordingNotifier) Notify(userID, eventType string, _ interface{}) {
	n.events = append(n.events, recordedEvent{userID, eventType})
	if n.onNotify != nil {
		n.onNotify()
	}
}

type fixture struct {
	svc      *Services
	repos    *repository.Repositories
	queue    *queue.MemoryQueue
	notifier *recordingNotifier
	user     *entity.User
	category *entity.Category
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	q := queue.NewMemoryQueue(16)
	t.Cleanup(func() { q.Close() })

	cfg := &config.Config{
		Review: config.ReviewConfig{DefaultDurationDays: 13},
		Export: config.ExportConfig{Compress: true, Directory: "exports"},
	}
	notifier := &recordingNotifier{}
	repos := repository.NewRepositories(db)
	svc := NewServices(Deps{
		Repos:    repos,
		Store:    store,
		Queue:    q,
		Notifier: notifier,
		Config:   cfg,
		Logger:   zap.NewNop(),
	})

	return &fixture{
		svc:      svc,
		repos:    repos,
		queue:    q,
		notifier: notifier,
		user:     testutil.SeedTestUser(t, db, "u1", "Jean-Luc", "jl@test.com"),
		category: testutil.SeedTestCategory(t, db, "cat1", "FAC09001", "Technip"),
	}
}

func upload(name, content string) *Upload {
	return &Upload{Filename: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func TestDocumentLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := validRequest()
	req.CategoryID = f.category.ID
	doc, err := f.svc.Document.Create(ctx, f.user.ID, req, RevisionFiles{Native: upload("report.docx", "v0")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(doc.Revisions) != 1 || doc.Revisions[0].NativeFile == "" {
		t.Fatalf("expected one revision with a native file, got %+v", doc.Revisions)
	}

	if _, err := f.svc.Document.Create(ctx, f.user.ID, validRequest(), RevisionFiles{}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("duplicate number should be rejected, got %v", err)
	}

	update := validRequest()
	update.CurrentRevision = 1
	update.Title = "HSE report rev 1"
	doc, err = f.svc.Document.Update(ctx, f.user.ID, doc.DocumentNumber, update, RevisionFiles{Native: upload("report.docx", "v1")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(doc.Revisions) != 2 || doc.CurrentRevision != 1 {
		t.Fatalf("expected a new revision, got %d revisions, current %d", len(doc.Revisions), doc.CurrentRevision)
	}

	// 同一版本再次编辑不新建版本
	update.Title = "HSE report final"
	doc, err = f.svc.Document.Update(ctx, f.user.ID, doc.DocumentNumber, update, RevisionFiles{})
	if err != nil {
		t.Fatalf("update same revision: %v", err)
	}
	if len(doc.Revisions) != 2 {
		t.Errorf("expected 2 revisions, got %d", len(doc.Revisions))
	}

	rc, name, err := f.svc.Document.OpenFile(ctx, doc.DocumentNumber, 1, FileNative)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	content, _ := io.ReadAll(rc)
	rc.Close()
	if string(content) != "v1" || !strings.HasSuffix(name, "_01.docx") {
		t.Errorf("unexpected file %q %q", name, content)
	}

	archive, err := f.svc.Document.Download(ctx, DownloadRequest{
		DocumentNumbers: []string{doc.DocumentNumber},
		Format:          "native",
		Revisions:       "all",
	})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if len(archive.Files) != 2 {
		t.Errorf("expected 2 files in archive, got %v", archive.Files)
	}

	if _, err := f.svc.Document.Download(ctx, DownloadRequest{DocumentNumbers: []string{doc.DocumentNumber}, Format: "odt"}); !errors.Is(err, ErrInvalidDownload) {
		t.Errorf("expected ErrInvalidDownload, got %v", err)
	}

	if err := f.svc.Document.Delete(ctx, f.user.ID, doc.DocumentNumber); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Document.Get(ctx, doc.DocumentNumber); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted document should not be found, got %v", err)
	}

	items, total, err := f.svc.Activity.List(ctx, 1, 20)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4 activities, got %d", total)
	}
	if !strings.HasPrefix(items[0].Summary, "Jean-Luc deleted FAC09001-FWF-000-HSE-REP-0004 at ") {
		t.Errorf("unexpected summary %q", items[0].Summary)
	}
	last := items[len(items)-1].Summary
	if !strings.HasPrefix(last, "Jean-Luc created FAC09001-FWF-000-HSE-REP-0004 rev. 00 on FAC09001-FWF-000-HSE-REP-0004 at ") {
		t.Errorf("unexpected summary %q", last)
	}
}

func TestFilter(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, n := range []string{"FAC-0002", "FAC-0001", "FAC-0003"} {
		req := validRequest()
		req.DocumentNumber = n
		req.Title = "Pump " + n
		if _, err := f.svc.Document.Create(ctx, f.user.ID, req, RevisionFiles{}); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}

	resp, err := f.svc.Document.Filter(ctx, map[string][]string{
		"sEcho":          {"3"},
		"sSearch":        {"pump"},
		"iDisplayLength": {"2"},
	})
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if resp.Echo != 3 || resp.TotalRecords != 3 || resp.TotalDisplayRecords != 3 {
		t.Errorf("unexpected counts %+v", resp)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(resp.Data))
	}
	if first := resp.Data[0].([]interface{}); first[0] != "FAC-0001" {
		t.Errorf("expected default order by number, got %v", first[0])
	}
}

func TestReviewFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	db := f.repos.DB()
	testutil.SeedTestUser(t, db, "u2", "Approver", "ap@test.com")
	testutil.SeedTestUser(t, db, "u3", "Reviewer", "rv@test.com")

	req := validRequest()
	req.CategoryID = f.category.ID
	doc, err := f.svc.Document.Create(ctx, f.user.ID, req, RevisionFiles{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Review.StartReview(ctx, f.user.ID, doc.DocumentNumber, 0); !errors.Is(err, ErrNotReviewable) {
		t.Errorf("expected ErrNotReviewable without reviewers, got %v", err)
	}

	list, err := f.svc.Review.CreateDistributionList(ctx, f.user.ID, f.category.ID, &DistributionListRequest{
		Name:        "HSE",
		LeaderID:    "u1",
		ApproverID:  "u2",
		ReviewerIDs: []string{"u3"},
	})
	if err != nil {
		t.Fatalf("create distribution list: %v", err)
	}
	if _, err := f.svc.Review.ApplyDistributionList(ctx, f.user.ID, doc.DocumentNumber, 0, list.ID); err != nil {
		t.Fatalf("apply distribution list: %v", err)
	}

	rev, err := f.svc.Review.StartReview(ctx, f.user.ID, doc.DocumentNumber, 0)
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if !rev.IsUnderReview() || !rev.ReviewStartDate.AddDate(0, 0, 13).Equal(*rev.ReviewDueDate) {
		t.Errorf("unexpected review dates %v %v", rev.ReviewStartDate, rev.ReviewDueDate)
	}
	if _, err := f.svc.Review.StartReview(ctx, f.user.ID, doc.DocumentNumber, 0); !errors.Is(err, ErrNotReviewable) {
		t.Errorf("review cannot start twice, got %v", err)
	}
}

func TestImportProcess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	csv := "document_number,title,status\nFAC-0001,Pump,IFC\nFAC-0002,,IFC\nFAC-0003,Valve,NOPE\nFAC-0004,Tank,IFA\n"
	batch, err := f.svc.Import.Create(ctx, f.user.ID, f.category.ID, upload("docs.csv", csv))
	if err != nil {
		t.Fatalf("create import: %v", err)
	}

	task, err := f.queue.Dequeue(ctx)
	if err != nil || task.Kind != queue.KindImport || task.ID != batch.UID {
		t.Fatalf("expected import task, got %+v %v", task, err)
	}
	if err := f.svc.Import.Process(ctx, task.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := f.svc.Import.Get(ctx, f.user.ID, batch.UID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.ImportStatusPartialSuccess || got.Succeeded != 2 || got.Failed != 2 {
		t.Errorf("unexpected batch %s %d/%d", got.Status, got.Succeeded, got.Failed)
	}
	if len(got.Lines) != 4 || got.Lines[1].Status != entity.ImportStatusError || got.Lines[1].LineNumber != 3 {
		t.Errorf("unexpected lines %+v", got.Lines)
	}
	if _, err := f.svc.Import.Get(ctx, "someone-else", batch.UID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	var updates int
	for _, e := range f.notifier.events {
		if e.userID == f.user.ID && e.eventType == "import_update" {
			updates++
		}
	}
	if updates != 2 {
		t.Errorf("expected started and finished notifications, got %d", updates)
	}

	// 重复处理无效
	if err := f.svc.Import.Process(ctx, batch.UID); err != nil {
		t.Errorf("reprocess: %v", err)
	}
}

func TestExportProcess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := validRequest()
	req.CategoryID = f.category.ID
	if _, err := f.svc.Document.Create(ctx, f.user.ID, req, RevisionFiles{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	export, err := f.svc.Export.Create(ctx, f.user.ID, &ExportRequest{
		CategoryID:  f.category.ID,
		Querystring: "sSearch=hse",
	})
	if err != nil {
		t.Fatalf("create export: %v", err)
	}
	if _, _, _, err := f.svc.Export.Open(ctx, f.user.ID, export.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady before processing, got %v", err)
	}

	if err := f.svc.Export.Process(ctx, export.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	rc, name, contentType, err := f.svc.Export.Open(ctx, f.user.ID, export.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)

	if !strings.HasPrefix(name, "export_") || !strings.HasSuffix(name, ".csv") || !strings.HasPrefix(contentType, "text/csv") {
		t.Errorf("unexpected file %q %q", name, contentType)
	}
	if !strings.Contains(string(data), "FAC09001-FWF-000-HSE-REP-0004") {
		t.Errorf("export misses the document: %q", data)
	}
}

// 处理开始后 ctx 被取消，批次仍然以 error 结束
func TestImportCancelledRunFinishes(t *testing.T) {
	f := setup(t)
	csv := "document_number,title,status\nFAC-0001,Pump,IFC\n"
	batch, err := f.svc.Import.Create(context.Background(), f.user.ID, f.category.ID, upload("docs.csv", csv))
	if err != nil {
		t.Fatalf("create import: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.notifier.onNotify = cancel
	if err := f.svc.Import.Process(ctx, batch.UID); err == nil {
		t.Error("expected an error from the interrupted run")
	}

	got, err := f.svc.Import.Get(context.Background(), f.user.ID, batch.UID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.ImportStatusError || got.FinishedOn == nil {
		t.Errorf("interrupted batch should end in error, got %s finished=%v", got.Status, got.FinishedOn)
	}
}

func TestExportCancelledRunFinishes(t *testing.T) {
	f := setup(t)
	export, err := f.svc.Export.Create(context.Background(), f.user.ID, &ExportRequest{Querystring: "sSearch=hse"})
	if err != nil {
		t.Fatalf("create export: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.notifier.onNotify = cancel
	if err := f.svc.Export.Process(ctx, export.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := f.svc.Export.Get(context.Background(), f.user.ID, export.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != entity.ExportStatusError || got.FinishedOn == nil || got.Message == "" {
		t.Errorf("interrupted export should end in error, got %+v", got)
	}
}

func TestEnqueueFailureMarksError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.queue.Close()

	if _, err := f.svc.Import.Create(ctx, f.user.ID, f.category.ID, upload("docs.csv", "document_number,title\n")); err == nil {
		t.Fatal("expected enqueue error")
	}
	batches, err := f.svc.Import.List(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list imports: %v", err)
	}
	if len(batches) != 1 || batches[0].Status != entity.ImportStatusError {
		t.Errorf("unqueued batch should be marked error, got %+v", batches)
	}

	if _, err := f.svc.Export.Create(ctx, f.user.ID, &ExportRequest{}); err == nil {
		t.Fatal("expected enqueue error")
	}
	exports, err := f.svc.Export.List(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(exports) != 1 || exports[0].Status != entity.ExportStatusError {
		t.Errorf("unqueued export should be marked error, got %+v", exports)
	}
}

func TestTransmittalPDF(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	req := validRequest()
	req.CategoryID = f.category.ID
	if _, err := f.svc.Document.Create(ctx, f.user.ID, req, RevisionFiles{}); err != nil {
		t.Fatalf("create: %v", err)
	}

	trs, err := f.svc.Transmittal.Create(ctx, f.user.ID, &TransmittalRequest{
		DocumentNumber: "FAC09001-CTR-CLT-TRS-00001",
		Title:          "First batch",
		CategoryID:     f.category.ID,
		ContractNumber: "FAC09001",
		Sender:         "CTR",
		Addressee:      "CLT",
		Revisions: []ExportedRevisionRequest{
			{DocumentNumber: "FAC09001-FWF-000-HSE-REP-0004", Revision: 0, ReturnCode: entity.ReturnCodeApproved},
		},
	})
	if err != nil {
		t.Fatalf("create transmittal: %v", err)
	}
	if len(trs.ExportedRevisions) != 1 || trs.ExportedRevisions[0].Title != "HSE report" {
		t.Errorf("unexpected exported revisions %+v", trs.ExportedRevisions)
	}

	pdf, name, err := f.svc.Transmittal.PDF(ctx, "FAC09001-CTR-CLT-TRS-00001", 0)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF-") || name != "FAC09001-CTR-CLT-TRS-00001_00.pdf" {
		t.Errorf("unexpected pdf %q", name)
	}

	if _, _, err := f.svc.Transmittal.PDF(ctx, "FAC09001-FWF-000-HSE-REP-0004", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("regular document has no transmittal pdf, got %v", err)
	}
}

func TestBookmarks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	b, err := f.svc.Bookmark.Create(ctx, f.user.ID, &BookmarkRequest{Name: "Pumps", URL: "/documents/?sSearch=pump"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.Bookmark.Delete(ctx, "u-other", b.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := f.svc.Bookmark.Delete(ctx, f.user.ID, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	items, _ := f.svc.Bookmark.List(ctx, f.user.ID)
	if len(items) != 0 {
		t.Errorf("expected no bookmarks, got %d", len(items))
	}
}
