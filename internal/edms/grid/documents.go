package grid

import (
	"strconv"

	"github.com/bitfantasy/phase/internal/edms/entity"
)

// DocumentConfig 文档列表的显示列与可搜索列
func DocumentConfig() Config {
	classes := make([]string, 0, len(entity.DocumentClasses))
	for _, c := range entity.DocumentClasses {
		classes = append(classes, strconv.Itoa(c))
	}

	return Config{
		Fields: []Field{
			{Label: "Document Number", Attribute: "document_number"},
			{Label: "Title", Attribute: "title"},
			{Label: "Status", Attribute: "status", Choices: entity.DocumentStatuses},
			{Label: "Revision", Attribute: "current_revision", Kind: KindInt, Choices: entity.DocumentRevisions()},
			{Label: "Revision Date", Attribute: "current_revision_date", Kind: KindDate},
			{Label: "Unit", Attribute: "unit", Choices: entity.DocumentUnits},
			{Label: "Discipline", Attribute: "discipline", Choices: entity.DocumentDisciplines},
			{Label: "Document Type", Attribute: "document_type", Choices: entity.DocumentTypes},
			{Label: "Class", Attribute: "klass", Kind: KindInt, Choices: classes},
		},
		Searchable: []string{
			"document_number",
			"title",
			"status",
			"unit",
			"discipline",
			"document_type",
		},
	}
}

// Row 按显示列顺序取值
func (c Config) Row(values map[string]interface{}) []interface{} {
	row := make([]interface{}, 0, len(c.Fields))
	for _, f := range c.Fields {
		row = append(row, values[f.Attribute])
	}
	return row
}

// DocumentValues 文档的列值，数字和日期按表格显示格式输出
func DocumentValues(doc entity.Document) map[string]interface{} {
	date := ""
	if doc.CurrentRevisionDate != nil {
		date = doc.CurrentRevisionDate.Format(DateLayout)
	}
	return map[string]interface{}{
		"document_number":       doc.DocumentNumber,
		"title":                 doc.Title,
		"status":                doc.Status,
		"current_revision":      entity.FormatRevision(doc.CurrentRevision),
		"current_revision_date": date,
		"unit":                  doc.Unit,
		"discipline":            doc.Discipline,
		"document_type":         doc.DocumentType,
		"klass":                 doc.Klass,
	}
}
