// Package report 生成传送单PDF
package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// ErrRendererClosed 传送单只能取一次
var ErrRendererClosed = errors.New("transmittal sheet already extracted")

// Line 传送单中的一个文档版本
type Line struct {
	DocumentNumber string
	Title          string
	Revision       string
	Status         string
	ReturnCode     string
}

// Transmittal 渲染所需的传送单数据
type Transmittal struct {
	OrganisationName  string
	ContractNumber    string
	TransmittalNumber string
	IssueDate         time.Time
	Sender            string
	Addressee         string
	WayOfTransmission string
	Lines             []Line
}

// Renderer 按固定版式渲染传送单
type Renderer struct {
	layout   Layout
	compress bool
}

// NewRenderer 创建渲染器
func NewRenderer(layout Layout, compress bool) *Renderer {
	return &Renderer{layout: layout, compress: compress}
}

// Render 渲染并取出PDF
func (r *Renderer) Render(t Transmittal) ([]byte, error) {
	sheet, err := r.Sheet(t)
	if err != nil {
		return nil, err
	}
	return sheet.Bytes()
}

// Sheet 排版一张传送单
func (r *Renderer) Sheet(t Transmittal) (*Sheet, error) {
	s := &Sheet{layout: r.layout, data: t}
	if err := s.build(r.compress); err != nil {
		return nil, err
	}
	return s, nil
}

// Sheet 排好版的传送单，Bytes 只能调用一次
type Sheet struct {
	layout Layout
	data   Transmittal
	pdf    *fpdf.Fpdf
	tr     func(string) string
	pages  int
}

// Pages 页数
func (s *Sheet) Pages() int {
	return s.pages
}

// Bytes 输出PDF并关闭内部缓冲
func (s *Sheet) Bytes() ([]byte, error) {
	if s.pdf == nil {
		return nil, ErrRendererClosed
	}
	pdf := s.pdf
	s.pdf = nil

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("output pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Sheet) build(compress bool) error {
	l := s.layout
	pdf := fpdf.New("P", "mm", l.PageSize, "")
	pdf.SetCompression(compress)
	pdf.SetMargins(l.MarginLeft, l.MarginTop, l.MarginRight)
	pdf.SetAutoPageBreak(false, l.MarginBottom)
	pdf.SetTitle("Transmittal "+s.data.TransmittalNumber, true)
	pdf.SetCreator("Phase", true)
	s.pdf = pdf
	s.tr = pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFuncMode(func() {
		if pdf.PageNo() == 1 {
			s.drawHeader()
		}
	}, false)

	pdf.AddPage()
	pdf.SetXY(l.MarginLeft, l.MarginTop+l.StorySpacer)

	s.drawSubtitle()
	pdf.Ln(l.SectionSpacer)
	s.drawMeta()
	pdf.Ln(l.SectionSpacer)
	s.drawSenderAddressee()
	pdf.Ln(l.SectionSpacer)
	s.drawWayOfTransmission()
	pdf.Ln(l.SectionSpacer)
	s.drawRevisions()

	s.pages = pdf.PageNo()
	if err := pdf.Error(); err != nil {
		s.pdf = nil
		return fmt.Errorf("layout transmittal: %w", err)
	}
	return nil
}

func (s *Sheet) setFont(f Font) {
	s.pdf.SetFont(f.Family, f.Style, f.Size)
}

func (s *Sheet) contentWidth() float64 {
	w, _ := s.pdf.GetPageSize()
	return w - s.layout.MarginLeft - s.layout.MarginRight
}

func (s *Sheet) drawHeader() {
	l := s.layout
	pdf := s.pdf

	s.setFont(l.TitleFont)
	titleLine := l.TitleFont.Size * 0.45
	title := s.tr(s.data.OrganisationName)
	lines := len(pdf.SplitLines([]byte(title), l.TitleWidth))
	if lines == 0 {
		lines = 1
	}
	pdf.SetXY(l.TitleX, l.TitleBottom-float64(lines)*titleLine)
	pdf.MultiCell(l.TitleWidth, titleLine, title, "", "C", false)

	s.setFont(l.TableFont)
	y := l.ContractBottom - 2*l.RowHeight
	rows := [][2]string{
		{"Contract NB", s.data.ContractNumber},
		{"Phase", ""},
	}
	for i, row := range rows {
		pdf.SetXY(l.ContractX, y+float64(i)*l.RowHeight)
		pdf.CellFormat(l.ContractCols[0], l.RowHeight, s.tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.CellFormat(l.ContractCols[1], l.RowHeight, s.tr(row[1]), "1", 0, "L", false, 0, "")
	}
}

func (s *Sheet) drawSubtitle() {
	l := s.layout
	s.setFont(l.SubtitleFont)
	s.pdf.CellFormat(s.contentWidth(), l.RowHeight+4, s.tr(strings.ToUpper(l.Subtitle)), "1", 1, "C", false, 0, "")
}

func (s *Sheet) drawMeta() {
	l := s.layout
	widths := []float64{l.MetaLabelWidth, s.contentWidth() - l.MetaLabelWidth}
	issued := ""
	if !s.data.IssueDate.IsZero() {
		issued = s.data.IssueDate.Format("2006-01-02")
	}
	s.row(widths, []string{"Transmittal Number", s.data.TransmittalNumber}, l.TableFont, nil)
	s.row(widths, []string{"Issue Date", issued}, l.TableFont, nil)
}

func (s *Sheet) drawSenderAddressee() {
	l := s.layout
	s.setFont(l.BodyFont)
	text := fmt.Sprintf("Sender: %s\nAddressee: %s", s.data.Sender, s.data.Addressee)
	s.pdf.MultiCell(s.contentWidth(), l.LineHeight+1, s.tr(text), "", "L", false)
}

func (s *Sheet) drawWayOfTransmission() {
	l := s.layout
	pdf := s.pdf

	s.setFont(l.HeaderFont)
	pdf.CellFormat(l.WayColumns[0]+l.WayColumns[1], l.RowHeight, s.tr(l.WayHeader), "1", 1, "C", false, 0, "")

	marked := s.markedWay()
	s.setFont(l.TableFont)
	for _, way := range l.WayRows {
		mark := ""
		if way.Key == marked {
			mark = "X"
		}
		pdf.CellFormat(l.WayColumns[0], l.RowHeight, s.tr(way.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(l.WayColumns[1], l.RowHeight, mark, "1", 1, "C", false, 0, "")
	}
}

// markedWay 未知的传送方式按第一行处理，保证恰好一个勾选
func (s *Sheet) markedWay() string {
	for _, way := range s.layout.WayRows {
		if way.Key == s.data.WayOfTransmission {
			return way.Key
		}
	}
	if len(s.layout.WayRows) > 0 {
		return s.layout.WayRows[0].Key
	}
	return ""
}

func (s *Sheet) drawRevisions() {
	l := s.layout
	widths := l.RevisionColumns[:]
	header := l.RevisionHeader[:]

	drawHeader := func() {
		s.row(widths, header, l.HeaderFont, nil)
	}
	drawHeader()

	for _, line := range s.data.Lines {
		s.row(widths, []string{
			line.DocumentNumber,
			line.Title,
			line.Revision,
			line.Status,
			line.ReturnCode,
		}, l.TableFont, drawHeader)
	}
}

// row 画一行带边框的表格，单元格内自动换行。放不下时换页，并调用 onBreak 重画表头
func (s *Sheet) row(widths []float64, cells []string, font Font, onBreak func()) {
	l := s.layout
	pdf := s.pdf
	s.setFont(font)

	pad := l.CellPadding
	split := make([][][]byte, len(cells))
	maxLines := 1
	for i, cell := range cells {
		split[i] = pdf.SplitLines([]byte(s.tr(cell)), widths[i]-2*pad)
		if len(split[i]) > maxLines {
			maxLines = len(split[i])
		}
	}
	height := float64(maxLines)*l.LineHeight + 2*pad
	if height < l.RowHeight {
		height = l.RowHeight
	}

	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+height > pageHeight-l.MarginBottom {
		pdf.AddPage()
		if onBreak != nil {
			onBreak()
			s.setFont(font)
		}
	}

	x0, y0 := pdf.GetXY()
	x := x0
	for i := range cells {
		pdf.Rect(x, y0, widths[i], height, "D")
		for j, text := range split[i] {
			pdf.SetXY(x+pad, y0+pad+float64(j)*l.LineHeight)
			pdf.CellFormat(widths[i]-2*pad, l.LineHeight, string(text), "", 0, "L", false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(x0, y0+height)
}
