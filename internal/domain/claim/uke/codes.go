package uke

// receiptCode is a regulator procedure code and its treatment-category
// (診療識別) code.
type receiptCode struct {
	Code    string
	Shinryo string
}

// staticCodes covers every fee code the bundled reference seed bills.
var staticCodes = map[string]receiptCode{
	// 初診・再診・医学管理
	"A000-1":   {"301000110", "11"},
	"A002-1":   {"301001410", "12"},
	"B000-4":   {"302000410", "13"},
	"B000-4-N": {"302000510", "13"},
	// 投薬
	"F000": {"306000110", "21"},
	"F100": {"306100110", "25"},
	// 画像診断
	"E000-D": {"305000110", "70"},
	"E100-P": {"305010010", "70"},
	// 処置
	"I001-1": {"309001110", "40"},
	"I001-2": {"309001210", "40"},
	"I005-1": {"309005110", "40"},
	"I005-2": {"309005210", "40"},
	"I005-3": {"309005310", "40"},
	"I008-1": {"309008110", "40"},
	"I008-2": {"309008210", "40"},
	"I008-3": {"309008310", "40"},
	"I011":   {"309011010", "40"},
	// 手術・麻酔
	"J000-1": {"310000110", "50"},
	"J000-2": {"310000210", "50"},
	"J000-3": {"310000310", "50"},
	"J000-4": {"310000410", "50"},
	"J000-5": {"310000510", "50"},
	"J004-1": {"310004110", "50"},
	"J004-2": {"310004210", "50"},
	"K001":   {"311000110", "54"},
	"K001-2": {"311000210", "54"},
	// 歯冠修復及び欠損補綴
	"M000":     {"313000010", "80"},
	"M001-1":   {"313001110", "80"},
	"M001-3-S": {"313001310", "80"},
	"M002":     {"313002010", "80"},
	"M003-1":   {"313003110", "80"},
	"M003-2":   {"313003210", "80"},
	"M003-3":   {"313003310", "80"},
	"M005-1":   {"313005110", "80"},
	"M005-2":   {"313005210", "80"},
	"M006-1":   {"313006110", "80"},
	"M006-2":   {"313006210", "80"},
	"M009-1":   {"313009110", "80"},
	"M009-2":   {"313009210", "80"},
	"M010-1":   {"313010110", "80"},
	"M010-2":   {"313010210", "80"},
	"M010-3":   {"313010310", "80"},
	"M010-4":   {"313010410", "80"},
	"M011":     {"313011010", "80"},
	"M015-2":   {"313015210", "80"},
	"M018-1":   {"313018110", "80"},
	"M018-2":   {"313018210", "80"},
}

// Treatment categories for drug and material lines.
const (
	shinryoOralDrug = "21"
	shinryoDefault  = "80"
)
