package service

import (
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/grid"
)

func validRequest() *DocumentRequest {
	return &DocumentRequest{
		DocumentNumber: " FAC09001-FWF-000-HSE-REP-0004 ",
		Title:          "HSE report",
		Status:         "IFC",
		Unit:           "000",
		Discipline:     "SAF",
		DocumentType:   "REP",
	}
}

func TestDocumentRequestValidate(t *testing.T) {
	req := validRequest()
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.DocumentNumber != "FAC09001-FWF-000-HSE-REP-0004" {
		t.Errorf("document number not trimmed: %q", req.DocumentNumber)
	}
	if req.Klass != 1 {
		t.Errorf("expected default class 1, got %d", req.Klass)
	}
}

func TestDocumentRequestValidateRejects(t *testing.T) {
	cases := map[string]func(r *DocumentRequest){
		"missing number": func(r *DocumentRequest) { r.DocumentNumber = "  " },
		"missing title":  func(r *DocumentRequest) { r.Title = "" },
		"bad status":     func(r *DocumentRequest) { r.Status = "XXX" },
		"bad unit":       func(r *DocumentRequest) { r.Unit = "999" },
		"bad class":      func(r *DocumentRequest) { r.Klass = 7 },
		"bad revision":   func(r *DocumentRequest) { r.CurrentRevision = entity.MaxRevision + 1 },
		"bad date":       func(r *DocumentRequest) { r.CurrentRevisionDate = "06/05/2014" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(req)
			if err := req.Validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestRevisionDate(t *testing.T) {
	req := validRequest()
	req.CurrentRevisionDate = "2014-05-06"
	d, err := req.revisionDate()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Format(DateLayout) != "2014-05-06" {
		t.Errorf("unexpected date %v", d)
	}

	req.CurrentRevisionDate = ""
	d, _ = req.revisionDate()
	if !d.Equal(today()) {
		t.Errorf("empty date should default to today, got %v", d)
	}
}

func TestFileKey(t *testing.T) {
	doc := &entity.Document{DocumentNumber: "FAC-0001"}
	rev := &entity.DocumentRevision{Revision: 3}
	cases := []struct {
		kind, filename, want string
	}{
		{FileNative, "Drawing.DOCX", "documents/FAC-0001/03/native/FAC-0001_03.docx"},
		{FilePDF, "Drawing.PDF", "documents/FAC-0001/03/pdf/FAC-0001_03.pdf"},
		{FileNative, "scan.pdf", "documents/FAC-0001/03/native/FAC-0001_03_native.pdf"},
	}
	for _, tc := range cases {
		if got := fileKey(doc, rev, tc.kind, tc.filename); got != tc.want {
			t.Errorf("fileKey(%s, %s) = %q, want %q", tc.kind, tc.filename, got, tc.want)
		}
	}
}

func TestFileKeyPDFNativeKeepsBothFiles(t *testing.T) {
	doc := &entity.Document{DocumentNumber: "FAC09001-FWF-000-HSE-REP-0004"}
	rev := &entity.DocumentRevision{Revision: 1}
	native := fileKey(doc, rev, FileNative, "scan.pdf")
	pdf := fileKey(doc, rev, FilePDF, "rendered.pdf")
	if native == pdf {
		t.Fatalf("native and pdf files share key %q", native)
	}
	if path.Base(native) == path.Base(pdf) {
		t.Errorf("native and pdf files share archive name %q", path.Base(native))
	}
}

func TestFindRevision(t *testing.T) {
	revs := []entity.DocumentRevision{{ID: "a", Revision: 0}, {ID: "b", Revision: 1}}
	if r := findRevision(revs, 1); r == nil || r.ID != "b" {
		t.Errorf("expected revision b, got %+v", r)
	}
	if r := findRevision(revs, 2); r != nil {
		t.Errorf("expected nil, got %+v", r)
	}
}

func TestFinalImportStatus(t *testing.T) {
	cases := []struct {
		succeeded, failed int
		fileError         bool
		want              string
	}{
		{3, 0, false, entity.ImportStatusSuccess},
		{0, 0, false, entity.ImportStatusSuccess},
		{2, 1, false, entity.ImportStatusPartialSuccess},
		{0, 4, false, entity.ImportStatusError},
		{0, 0, true, entity.ImportStatusError},
	}
	for _, tc := range cases {
		if got := FinalImportStatus(tc.succeeded, tc.failed, tc.fileError); got != tc.want {
			t.Errorf("FinalImportStatus(%d, %d, %v) = %q, want %q", tc.succeeded, tc.failed, tc.fileError, got, tc.want)
		}
	}
}

func TestCheckHeader(t *testing.T) {
	if err := checkHeader([]string{"document_number", "title", "status"}); err != nil {
		t.Errorf("expected header to pass, got %v", err)
	}
	if err := checkHeader([]string{"document_number"}); err == nil {
		t.Error("expected missing title to fail")
	}
}

func TestImportTemplate(t *testing.T) {
	s := &ImportService{}
	data, err := s.Template("")
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != strings.Join(ImportFields, ",") {
		t.Errorf("unexpected template %q", got)
	}
	if _, err := s.Template("ods"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBookmarkRequestValidate(t *testing.T) {
	ok := &BookmarkRequest{Name: strings.Repeat("é", BookmarkNameMax), URL: "/documents/?sSearch=pump"}
	if err := ok.Validate(); err != nil {
		t.Errorf("50 characters should pass, got %v", err)
	}
	long := &BookmarkRequest{Name: strings.Repeat("a", BookmarkNameMax+1), URL: "/"}
	if err := long.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	longURL := &BookmarkRequest{Name: "x", URL: strings.Repeat("a", BookmarkURLMax+1)}
	if err := longURL.Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTransmittalSheet(t *testing.T) {
	created := time.Date(2014, 5, 6, 9, 0, 0, 0, time.UTC)
	doc := &entity.Document{
		DocumentNumber: "FAC10005-CTR-CLT-TRS-00001",
		CreatedAt:      created,
		Category:       &entity.Category{Organisation: &entity.Organisation{Name: "Transmissions Inc."}},
	}
	trs := &entity.Transmittal{
		ContractNumber:    "FAC10005",
		Sender:            "CTR",
		Addressee:         "CLT",
		WayOfTransmission: entity.TransmissionEmail,
		ExportedRevisions: []entity.ExportedRevision{
			{Revision: 2, Title: "Pump", Status: "IFC", ReturnCode: "1", Document: &entity.Document{DocumentNumber: "FAC-0001"}},
		},
	}

	sheet := Sheet(doc, trs)
	if sheet.OrganisationName != "Transmissions Inc." || sheet.TransmittalNumber != doc.DocumentNumber {
		t.Errorf("unexpected sheet header %+v", sheet)
	}
	if !sheet.IssueDate.Equal(created) {
		t.Errorf("issue date should be the document creation date, got %v", sheet.IssueDate)
	}
	if len(sheet.Lines) != 1 || sheet.Lines[0].Revision != "02" || sheet.Lines[0].DocumentNumber != "FAC-0001" {
		t.Errorf("unexpected lines %+v", sheet.Lines)
	}
}

func TestTransmittalRequestValidate(t *testing.T) {
	req := &TransmittalRequest{DocumentNumber: "TRS-1", Title: "Batch", ContractNumber: "C1"}
	if err := req.validate(); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
	if req.WayOfTransmission != entity.TransmissionEDMS {
		t.Errorf("expected default way edms, got %q", req.WayOfTransmission)
	}

	req.WayOfTransmission = "pigeon"
	if err := req.validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestExportTable(t *testing.T) {
	s := &ExportService{grid: grid.DocumentConfig()}
	date := time.Date(2014, 5, 6, 0, 0, 0, 0, time.UTC)
	header, rows := s.table([]entity.Document{{
		DocumentNumber:      "FAC-0001",
		Title:               "Pump",
		CurrentRevision:     1,
		CurrentRevisionDate: &date,
		Klass:               2,
	}})
	if header[0] != "Document Number" || len(header) != 9 {
		t.Errorf("unexpected header %v", header)
	}
	if rows[0][3] != "01" || rows[0][4] != "2014-05-06" || rows[0][8] != "2" {
		t.Errorf("unexpected row %v", rows[0])
	}
}

func TestActor(t *testing.T) {
	if a := actor(""); a.IsEntity() || a.Label != entity.SystemActor {
		t.Errorf("empty user should be the system actor, got %+v", a)
	}
	if a := actor("u1"); !a.IsEntity() || a.ID != "u1" {
		t.Errorf("unexpected actor %+v", a)
	}
}
