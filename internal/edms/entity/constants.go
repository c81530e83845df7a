package entity

import "fmt"

// 文档状态
var DocumentStatuses = []string{"STD", "IDC", "IFR", "IFA", "IFD", "IFC", "IFI", "ASB", "CLD", "SPE", "FIN"}

// 单元
var DocumentUnits = []string{"000", "001", "002", "003", "004", "005", "006", "007", "008", "009", "010", "011", "012", "013", "014", "015", "016", "017"}

// 专业
var DocumentDisciplines = []string{"ARC", "CHE", "CIV", "COM", "DRI", "ECO", "ELE", "GEN", "GEO", "HVA", "INS", "MEC", "PIP", "QUA", "SAF", "STR", "TEL"}

// 文档类型
var DocumentTypes = []string{"PID", "ANA", "BAS", "FAB", "CAL", "CLD", "COR", "DRW", "DSH", "ITP", "LIS", "MAN", "MTO", "PRC", "REP", "SPE", "STD"}

// 文档等级
var DocumentClasses = []int{1, 2, 3, 4}

// 版本号取值范围 00..25
const MaxRevision = 25

// DocumentRevisions 版本号可选值
func DocumentRevisions() []string {
	revs := make([]string, 0, MaxRevision+1)
	for i := 0; i <= MaxRevision; i++ {
		revs = append(revs, FormatRevision(i))
	}
	return revs
}

// FormatRevision 版本号格式化为两位
func FormatRevision(rev int) string {
	return fmt.Sprintf("%02d", rev)
}

// 返回码
const (
	ReturnCodeApproved         = "1"
	ReturnCodeApprovedComments = "2"
	ReturnCodeRejected         = "3"
	ReturnCodeInformationOnly  = "4"
)

// Models 需要迁移的全部表
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Organisation{},
		&Category{},
		&Document{},
		&DocumentRevision{},
		&DistributionList{},
		&Transmittal{},
		&ExportedRevision{},
		&Activity{},
		&Bookmark{},
		&ImportBatch{},
		&ImportLine{},
		&Export{},
	}
}
