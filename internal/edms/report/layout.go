package report

// Font 字体
type Font struct {
	Family string
	Style  string
	Size   float64
}

// WayRow 传送方式表中的一行
type WayRow struct {
	Key   string
	Label string
}

// Layout 传送单版式参数（mm）
type Layout struct {
	PageSize     string
	MarginLeft   float64
	MarginTop    float64
	MarginRight  float64
	MarginBottom float64

	// 页眉，只画在第一页。Bottom 为距页面顶端的距离
	TitleX         float64
	TitleBottom    float64
	TitleWidth     float64
	ContractX      float64
	ContractBottom float64
	ContractCols   [2]float64

	StorySpacer   float64
	SectionSpacer float64
	RowHeight     float64
	LineHeight    float64
	CellPadding   float64

	MetaLabelWidth  float64
	WayColumns      [2]float64
	RevisionColumns [5]float64
	RevisionHeader  [5]string
	WayHeader       string
	WayRows         []WayRow
	Subtitle        string

	TitleFont    Font
	SubtitleFont Font
	BodyFont     Font
	HeaderFont   Font
	TableFont    Font
}

// DefaultLayout A4 传送单版式。每次调用返回新值，各部分之间不共享可变状态
func DefaultLayout() Layout {
	return Layout{
		PageSize:     "A4",
		MarginLeft:   13,
		MarginTop:    13,
		MarginRight:  13,
		MarginBottom: 18,

		TitleX:         13,
		TitleBottom:    50,
		TitleWidth:     120,
		ContractX:      145,
		ContractBottom: 50,
		ContractCols:   [2]float64{25, 25},

		StorySpacer:   45,
		SectionSpacer: 6,
		RowHeight:     6,
		LineHeight:    4.5,
		CellPadding:   1,

		MetaLabelWidth:  45,
		WayColumns:      [2]float64{45, 20},
		RevisionColumns: [5]float64{45, 90, 15, 15, 15},
		RevisionHeader:  [5]string{"Document Number", "Title", "Rev.", "Status", "RC"},
		WayHeader:       "Way of transmission",
		WayRows: []WayRow{
			{Key: "edms", Label: "EDMS"},
			{Key: "email", Label: "Email"},
			{Key: "usb", Label: "USB Key"},
			{Key: "post", Label: "Post"},
			{Key: "other", Label: "Other"},
		},
		Subtitle: "Transmittal sheet",

		TitleFont:    Font{Family: "Helvetica", Style: "B", Size: 18},
		SubtitleFont: Font{Family: "Helvetica", Style: "B", Size: 14},
		BodyFont:     Font{Family: "Helvetica", Size: 10},
		HeaderFont:   Font{Family: "Helvetica", Style: "B", Size: 9},
		TableFont:    Font{Family: "Helvetica", Size: 9},
	}
}
