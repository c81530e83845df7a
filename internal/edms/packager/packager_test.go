package packager

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/bitfantasy/phase/internal/edms/entity"
)

type memorySource map[string][]byte

func (m memorySource) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func revision(doc string, rev int) entity.DocumentRevision {
	label := entity.FormatRevision(rev)
	return entity.DocumentRevision{
		Revision:     rev,
		RevisionDate: time.Date(2013, 1, rev+1, 0, 0, 0, 0, time.UTC),
		NativeFile:   "documents/" + doc + "/" + doc + "_" + label + ".docx",
		PDFFile:      "documents/" + doc + "/" + doc + "_" + label + ".pdf",
	}
}

func document(number string, revs int) entity.Document {
	doc := entity.Document{DocumentNumber: number}
	for i := 0; i < revs; i++ {
		doc.Revisions = append(doc.Revisions, revision(number, i))
	}
	return doc
}

func sourceFor(docs ...entity.Document) memorySource {
	src := memorySource{}
	for _, d := range docs {
		for _, r := range d.Revisions {
			src[r.NativeFile] = []byte("native " + r.NativeFile)
			src[r.PDFFile] = []byte("%PDF " + r.PDFFile)
		}
	}
	return src
}

func readArchive(t *testing.T, a *Archive) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(a, a.Size)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	return zr
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"":         FormatBoth,
		"both":     FormatBoth,
		"native":   FormatNative,
		"pdf":      FormatRendered,
		"rendered": FormatRendered,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
	if _, err := ParseRevisions("some"); !errors.Is(err, ErrInvalidRevisions) {
		t.Errorf("expected ErrInvalidRevisions, got %v", err)
	}
}

func TestPackageLatestBoth(t *testing.T) {
	doc := document("FAC-0001", 3)
	p := New(sourceFor(doc), true, nil)

	a, err := p.Package(context.Background(), []entity.Document{doc}, Options{Format: FormatBoth, Revisions: RevisionsLatest})
	if err != nil {
		t.Fatalf("package: %v", err)
	}

	zr := readArchive(t, a)
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 files, got %d", len(zr.File))
	}
	want := map[string]bool{"FAC-0001_02.docx": true, "FAC-0001_02.pdf": true}
	for _, f := range zr.File {
		if !want[f.Name] {
			t.Errorf("unexpected entry %s", f.Name)
		}
		if f.Method != zip.Deflate {
			t.Errorf("expected deflate for %s", f.Name)
		}
	}
}

func TestPackageAllNative(t *testing.T) {
	docs := []entity.Document{
		document("FAC-0001", 3),
		document("FAC-0002", 2),
		document("FAC-0003", 0),
	}
	p := New(sourceFor(docs...), false, nil)

	a, err := p.Package(context.Background(), docs, Options{Format: FormatNative, Revisions: RevisionsAll})
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	zr := readArchive(t, a)
	if len(zr.File) != 5 {
		t.Fatalf("expected 5 files, got %d", len(zr.File))
	}
	for _, f := range zr.File {
		if f.Method != zip.Store {
			t.Errorf("expected stored entry for %s", f.Name)
		}
	}
}

func TestPackageNoRevisions(t *testing.T) {
	docs := []entity.Document{document("FAC-0001", 0), document("FAC-0002", 0)}
	p := New(memorySource{}, true, nil)

	for _, revs := range []Revisions{RevisionsLatest, RevisionsAll} {
		a, err := p.Package(context.Background(), docs, Options{Format: FormatBoth, Revisions: revs})
		if err != nil {
			t.Fatalf("package: %v", err)
		}
		if n := len(readArchive(t, a).File); n != 0 {
			t.Errorf("%s: expected empty archive, got %d files", revs, n)
		}
		if len(a.Failures) != 0 {
			t.Errorf("%s: missing revisions are not failures: %v", revs, a.Failures)
		}
	}
}

func TestPackageSizeMatchesContent(t *testing.T) {
	doc := document("FAC-0001", 2)
	p := New(sourceFor(doc), true, nil)

	a, err := p.Package(context.Background(), []entity.Document{doc}, Options{Format: FormatBoth, Revisions: RevisionsAll})
	if err != nil {
		t.Fatalf("package: %v", err)
	}

	data, err := io.ReadAll(a)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if int64(len(data)) != a.Size {
		t.Errorf("size %d, read %d", a.Size, len(data))
	}

	if _, err := a.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}
	again, _ := io.ReadAll(a)
	if !bytes.Equal(data, again) {
		t.Error("expected identical content after rewind")
	}
}

func TestPackageSkipsUnreadableFiles(t *testing.T) {
	docs := []entity.Document{document("FAC-0001", 1), document("FAC-0002", 1)}
	src := sourceFor(docs...)
	delete(src, docs[0].Revisions[0].PDFFile)
	p := New(src, true, nil)

	a, err := p.Package(context.Background(), docs, Options{Format: FormatBoth, Revisions: RevisionsLatest})
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if len(a.Failures) != 1 || a.Failures[0].Path != docs[0].Revisions[0].PDFFile {
		t.Fatalf("expected one failure, got %+v", a.Failures)
	}
	if n := len(readArchive(t, a).File); n != 3 {
		t.Errorf("expected 3 files, got %d", n)
	}
}

func TestPackageDuplicateNamesNotDeduplicated(t *testing.T) {
	first := entity.Document{
		DocumentNumber: "FAC-0001",
		Revisions: []entity.DocumentRevision{
			{Revision: 0, NativeFile: "a/report.docx"},
		},
	}
	second := entity.Document{
		DocumentNumber: "FAC-0002",
		Revisions: []entity.DocumentRevision{
			{Revision: 0, NativeFile: "b/report.docx"},
		},
	}
	src := memorySource{"a/report.docx": []byte("first"), "b/report.docx": []byte("second")}
	p := New(src, true, nil)

	a, err := p.Package(context.Background(), []entity.Document{first, second}, Options{Format: FormatNative, Revisions: RevisionsLatest})
	if err != nil {
		t.Fatalf("package: %v", err)
	}

	zr := readArchive(t, a)
	if len(zr.File) != 2 {
		t.Fatalf("expected both entries, got %d", len(zr.File))
	}
	for _, f := range zr.File {
		if f.Name != "report.docx" {
			t.Errorf("unexpected name %s", f.Name)
		}
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	content, _ := io.ReadAll(rc)
	if string(content) != "second" {
		t.Errorf("expected last written content, got %q", content)
	}
}
