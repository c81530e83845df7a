// Package grid 把表格组件（DataTables）的分页、排序、搜索参数翻译成文档查询
package grid

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// DefaultSortColumn 第0列以及缺省时的排序字段
const DefaultSortColumn = "document_number"

// DefaultPageLength 默认每页条数
const DefaultPageLength = 10

// 列的取值类型，决定单列搜索词如何解析
const (
	KindText = ""
	KindInt  = "int"
	KindDate = "date"
)

// DateLayout 日期列搜索词格式
const DateLayout = "2006-01-02"

// Field 一个显示列
type Field struct {
	Label     string   `json:"label"`
	Attribute string   `json:"attribute"`
	Kind      string   `json:"kind,omitempty"`
	Choices   []string `json:"choices,omitempty"`
}

// parse 按列类型解析搜索词，解析失败返回 false
func (f Field) parse(term string) (interface{}, bool) {
	switch f.Kind {
	case KindInt:
		v, err := strconv.Atoi(strings.TrimSpace(term))
		if err != nil {
			return nil, false
		}
		return v, true
	case KindDate:
		v, err := time.Parse(DateLayout, strings.TrimSpace(term))
		if err != nil {
			return nil, false
		}
		return v, true
	}
	return term, true
}

// Config 静态列配置，启动时构建
type Config struct {
	Fields     []Field  `json:"fields"`
	Searchable []string `json:"searchable"`
}

// Params 表格请求参数，缺少的键视为未请求
type Params struct {
	Echo          int
	HasSort       bool
	SortColumn    int
	SortDirection string
	Search        string
	ColumnSearch  map[int]string
	Start         int
	Length        int
}

// ParseParams 解析 iSortCol_0 / sSortDir_0 / sSearch / sSearch_n / sEcho / iDisplayStart / iDisplayLength
func ParseParams(values url.Values) Params {
	p := Params{
		ColumnSearch: map[int]string{},
		Length:       DefaultPageLength,
	}

	p.Echo, _ = strconv.Atoi(values.Get("sEcho"))

	if raw, ok := values["iSortCol_0"]; ok && len(raw) > 0 {
		if col, err := strconv.Atoi(raw[0]); err == nil {
			p.HasSort = true
			p.SortColumn = col
			p.SortDirection = values.Get("sSortDir_0")
		}
	}

	p.Search = values.Get("sSearch")

	for key, vals := range values {
		if !strings.HasPrefix(key, "sSearch_") || len(vals) == 0 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(key, "sSearch_"))
		if err != nil {
			continue
		}
		if vals[0] != "" {
			p.ColumnSearch[idx] = vals[0]
		}
	}

	if v, err := strconv.Atoi(values.Get("iDisplayStart")); err == nil && v >= 0 {
		p.Start = v
	}
	// -1 表示显示全部
	if v, err := strconv.Atoi(values.Get("iDisplayLength")); err == nil && (v > 0 || v == -1) {
		p.Length = v
	}
	return p
}

// ColumnFilter 单列精确匹配
type ColumnFilter struct {
	Attribute string
	Value     interface{}
}

// Query 翻译结果
type Query struct {
	Order   string
	Global  string
	Columns []ColumnFilter
	Offset  int
	Limit   int

	searchable []string
}

// Translate 根据列配置翻译参数
//
// sSearch_{i-1} 作用于第 i 个显示列：第一列没有过滤框。
// 数字和日期列的搜索词解析失败时忽略该过滤。
func (c Config) Translate(p Params) Query {
	q := Query{
		Global:     strings.TrimSpace(p.Search),
		Offset:     p.Start,
		Limit:      p.Length,
		searchable: c.Searchable,
	}
	if q.Limit < 0 {
		q.Limit = 0
	}

	if p.HasSort {
		column := ""
		if p.SortColumn == 0 {
			column = DefaultSortColumn
		} else if p.SortColumn > 0 && p.SortColumn < len(c.Fields) {
			column = c.Fields[p.SortColumn].Attribute
		}
		if column != "" {
			if p.SortDirection == "desc" {
				q.Order = column + " DESC"
			} else {
				q.Order = column + " ASC"
			}
		}
	}

	for i, field := range c.Fields {
		term, ok := p.ColumnSearch[i-1]
		if !ok || term == "" {
			continue
		}
		if value, ok := field.parse(term); ok {
			q.Columns = append(q.Columns, ColumnFilter{Attribute: field.Attribute, Value: value})
		}
	}
	return q
}

// Filter 应用过滤和排序（不分页）
func (q Query) Filter(db *gorm.DB) *gorm.DB {
	if q.Global != "" && len(q.searchable) > 0 {
		pattern := "%" + escapeLike(q.Global) + "%"
		clauses := make([]string, 0, len(q.searchable))
		args := make([]interface{}, 0, len(q.searchable))
		for _, attr := range q.searchable {
			clauses = append(clauses, attr+" ILIKE ?")
			args = append(args, pattern)
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	for _, f := range q.Columns {
		db = db.Where(f.Attribute+" = ?", f.Value)
	}
	if q.Order != "" {
		db = db.Order(q.Order)
	}
	return db
}

// Page 应用分页窗口
func (q Query) Page(db *gorm.DB) *gorm.DB {
	db = db.Offset(q.Offset)
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	return db
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Response 表格接口返回结构
type Response struct {
	Echo                int           `json:"sEcho"`
	TotalRecords        int64         `json:"iTotalRecords"`
	TotalDisplayRecords int64         `json:"iTotalDisplayRecords"`
	Data                []interface{} `json:"aaData"`
}
