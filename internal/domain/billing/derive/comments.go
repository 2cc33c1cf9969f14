package derive

import "fmt"

// Comment codes attached to specific procedures.
var procedureComments = []struct {
	code    string
	comment ReceiptComment
}{
	{"J000-4", ReceiptComment{Code: "820100115", Text: "難抜歯：歯根肥大、骨の癒着歯等の抜歯"}},
	{"J000-5", ReceiptComment{Code: "820100116", Text: "埋伏歯：骨性埋伏歯の抜歯"}},
}

// PreviousVisitCommentCode marks a new visit billed because of the gap since
// the last completed appointment.
const PreviousVisitCommentCode = "850100064"

func (b *builder) applyComments(v Visit) {
	for _, pc := range procedureComments {
		if b.has(pc.code) {
			b.comment(pc.comment)
		}
	}
	if v.IsNew && v.Reason == VisitGap && v.PreviousVisit != nil {
		p := *v.PreviousVisit
		b.comment(ReceiptComment{
			Code: PreviousVisitCommentCode,
			Text: fmt.Sprintf("前回受診日：%d年%d月%d日", p.Year(), int(p.Month()), p.Day()),
		})
	}
}
