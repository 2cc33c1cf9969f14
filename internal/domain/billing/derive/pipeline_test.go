package derive

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentclaim/dentclaim/internal/domain/reference"
	"github.com/dentclaim/dentclaim/internal/platform/notes"
)

func TestClassifyVisit(t *testing.T) {
	prev := date(2024, time.January, 1)
	tests := []struct {
		name     string
		flagged  bool
		visit    time.Time
		previous *time.Time
		wantNew  bool
		reason   VisitReason
	}{
		{"flagged new", true, date(2024, time.January, 5), &prev, true, VisitFlagged},
		{"no prior appointment", false, date(2024, time.January, 5), nil, true, VisitFirst},
		{"gap of exactly 90 days", false, date(2024, time.March, 31), &prev, true, VisitGap},
		{"gap of 89 days", false, date(2024, time.March, 30), &prev, false, VisitFollowUp},
		{"same week", false, date(2024, time.January, 8), &prev, false, VisitFollowUp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ClassifyVisit(tt.flagged, tt.visit, tt.previous, 90)
			assert.Equal(t, tt.wantNew, v.IsNew)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestClassifyVisit_CalendarDays(t *testing.T) {
	prev := time.Date(2024, time.January, 1, 23, 0, 0, 0, time.UTC)
	v := ClassifyVisit(false, time.Date(2024, time.January, 2, 1, 0, 0, 0, time.UTC), &prev, 90)
	assert.Equal(t, 1, v.GapDays)
}

// -- addItem --

func TestAddItem_Idempotent(t *testing.T) {
	b := newBuilder(testFees())
	assert.True(t, b.addItem("K001", 1, nil))
	assert.False(t, b.addItem("K001", 1, nil))
	assert.Len(t, b.items, 1)

	// The abstract code and its resolved code are the same line.
	assert.True(t, b.addItem("A000", 1, nil))
	assert.False(t, b.addItem("A000-1", 1, nil))
	assert.False(t, b.addItem("A000", 1, nil))
	assert.Equal(t, []string{"K001", "A000-1"}, codes(b.items))
}

func TestAddItem_FallbackNotConsultedWhenCodeExists(t *testing.T) {
	fees := testFees()
	fees["F-SHOHO"] = fee("F-SHOHO", 68, "medication")
	b := newBuilder(fees)

	require.True(t, b.addItem("F-SHOHO", 1, nil))
	assert.Equal(t, "F-SHOHO", b.items[0].Code)
	assert.Equal(t, 68, b.items[0].Points)
	assert.False(t, b.has("F100"))
}

func TestAddItem_FallbackResolves(t *testing.T) {
	b := newBuilder(testFees())
	require.True(t, b.addItem("M-TEK", 1, []string{"46"}))
	assert.Equal(t, "M003-2", b.items[0].Code)
	assert.Equal(t, []string{"46"}, b.items[0].ToothNumbers)
	assert.True(t, b.has("M-TEK"))
	assert.True(t, b.has("M003-2"))
}

func TestAddItem_DropsUnknownCodes(t *testing.T) {
	fees := testFees()
	delete(fees, "M000")
	b := newBuilder(fees)

	assert.False(t, b.addItem("Z999", 1, nil))
	assert.False(t, b.addItem("M-HOSHIN", 1, nil))
	assert.Empty(t, b.items)
	assert.Equal(t, []string{"Z999", "M-HOSHIN"}, b.dropped)
}

func TestAddItem_CountAtLeastOne(t *testing.T) {
	b := newBuilder(testFees())
	b.addItem("I011", 0, nil)
	assert.Equal(t, 1, b.items[0].Count)
}

// -- End to end --

func TestDerive_ScenarioA_SimpleRestorationOnFirstVisit(t *testing.T) {
	visit := ClassifyVisit(false, date(2024, time.May, 1), nil, 90)
	require.True(t, visit.IsNew)

	r := run(t, testSnapshot(), visit, "CR充填 単純")

	assert.True(t, r.IsNew)
	assert.Contains(t, codes(r.Items), "A000-1")
	assert.Contains(t, codes(r.Items), "M009-1")
	assert.NotContains(t, codes(r.Items), "M009-2")
	assert.NotContains(t, codes(r.Items), "A002-1")
}

func TestDerive_ScenarioB_LoxoninPrescription(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "ロキソニン 処方")

	lox, ok := item(r.Items, "DRUG-620098801")
	require.True(t, ok, "loxonin line missing: %v", codes(r.Items))
	assert.Equal(t, 3, lox.Points)
	assert.Equal(t, "1", lox.Quantity.String())

	muc, ok := item(r.Items, "DRUG-620002901")
	require.True(t, ok, "gastric protectant was not attached: %v", codes(r.Items))
	assert.Equal(t, 3, muc.Points)

	count := map[string]int{}
	for _, it := range r.Items {
		count[it.Code]++
	}
	assert.Equal(t, 1, count["F100"])
	assert.Equal(t, 1, count["F000"])
}

func TestDerive_NoGastricDuplicateWhenAlreadyPrescribed(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "ロキソニン ムコスタ 処方")
	n := 0
	for _, it := range r.Items {
		if strings.HasPrefix(it.Code, DrugPrefix) {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestDerive_PrescriptionWithoutKnownDrugWarns(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "Rp 鎮痛剤 処方")
	assert.NotContains(t, codes(r.Items), "F100")
	require.NotEmpty(t, r.Warnings)
	assert.Contains(t, r.Warnings[0], "処方")
}

func TestDerive_DrugMissingFromMaster(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "クラリス 処方")
	assert.NotContains(t, codes(r.Items), "F100")
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "クラリス")
}

func TestDerive_Idempotent(t *testing.T) {
	snap := testSnapshot()
	snap.Bonuses = testBonuses()
	snap.Registered = map[string]bool{"gaikan1": true, "kansen1": true, "kansen2": true}
	in := Input{
		Note:        notes.Sections{Subjective: "右下6 しみる", Plan: "46 fmc 形成 テック ロキソニン 処方"},
		Visit:       newVisit,
		Allergies:   []string{"ペニシリン"},
		BurdenRatio: 0.3,
		Snapshot:    snap,
	}
	e := NewEngine(zerolog.Nop())
	first := e.Derive(in)
	second := e.Derive(in)
	assert.Equal(t, first, second)
	assertUniqueCodes(t, first.Items)
}

func TestDerive_TotalsMatchLines(t *testing.T) {
	r := run(t, testSnapshot(), newVisit, "46 fmc ロキソニン 処方 スケーリング 16 26")
	sum := 0
	for _, it := range r.Items {
		sum += it.Points * it.Count
	}
	assert.Equal(t, sum, r.Summary.TotalPoints)
	assert.Equal(t, sum*10-r.Summary.PatientBurden, r.Summary.InsuranceClaim)
}

// -- Pattern matcher --

func TestDerive_ExclusiveCategoryFirstPriorityWins(t *testing.T) {
	snap := testSnapshot()
	snap.Patterns = []reference.BillingPattern{
		pattern("low", "anesthesia", 10, []string{"麻酔"}, []string{"K001"}, ""),
		pattern("high", "anesthesia", 20, []string{"麻酔"}, []string{"K001-2"}, ""),
	}
	r := run(t, snap, followUpVisit, "麻酔")
	assert.Contains(t, codes(r.Items), "K001-2")
	assert.NotContains(t, codes(r.Items), "K001")
}

func TestDerive_NonExclusiveCategoryAllowsSeveral(t *testing.T) {
	snap := testSnapshot()
	snap.Patterns = []reference.BillingPattern{
		pattern("a", "imaging", 10, []string{"撮影"}, []string{"E000-D"}, ""),
		pattern("b", "imaging", 20, []string{"撮影"}, []string{"E100-P"}, ""),
	}
	r := run(t, snap, followUpVisit, "撮影")
	assert.Contains(t, codes(r.Items), "E000-D")
	assert.Contains(t, codes(r.Items), "E100-P")
}

func TestDerive_BasicPatternsSkipped(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "初診")
	assert.Equal(t, []string{"A002-1"}, codes(r.Items))
}

func TestDerive_ExcludeAndAndKeywords(t *testing.T) {
	snap := testSnapshot()
	p := pattern("gated", "imaging", 10, []string{"撮影"}, []string{"E000-D"}, "")
	p.SOAPExcludeKeywords = []string{"中止"}
	p.Condition.AndKeywords = []string{"デンタル", "10枚法"}
	snap.Patterns = []reference.BillingPattern{p}

	assert.NotContains(t, codes(run(t, snap, followUpVisit, "撮影").Items), "E000-D")
	assert.Contains(t, codes(run(t, snap, followUpVisit, "デンタル撮影").Items), "E000-D")
	assert.NotContains(t, codes(run(t, snap, followUpVisit, "デンタル撮影 中止").Items), "E000-D")
}

func TestDerive_ManagementVariantForNewVisit(t *testing.T) {
	assert.Contains(t, codes(run(t, testSnapshot(), newVisit, "指導").Items), "B000-4-N")
	assert.Contains(t, codes(run(t, testSnapshot(), followUpVisit, "指導").Items), "B000-4")
}

func TestDerive_ScalingCountsSextants(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "スケーリング 16 11 26 36")
	sc, ok := item(r.Items, "I011")
	require.True(t, ok)
	assert.Equal(t, 4, sc.Count)
	assert.Equal(t, []string{"16", "11", "26", "36"}, sc.ToothNumbers)
}

func TestDerive_Anesthesia(t *testing.T) {
	block := run(t, testSnapshot(), followUpVisit, "伝達麻酔 下顎孔")
	assert.Contains(t, codes(block.Items), "K001-2")
	assert.NotContains(t, codes(block.Items), "K001")

	inf := run(t, testSnapshot(), followUpVisit, "浸麻")
	assert.Contains(t, codes(inf.Items), "K001")
	assert.NotContains(t, codes(inf.Items), "K001-2")
}

func TestDerive_RestorationComplexFromStructuredSurfaces(t *testing.T) {
	r := NewEngine(zerolog.Nop()).Derive(Input{
		Note:          notes.Sections{Plan: "16 CR充填"},
		ToothSurfaces: map[string][]string{"16": {"M", "O", "D"}},
		Visit:         followUpVisit,
		BurdenRatio:   0.3,
		Snapshot:      testSnapshot(),
	})
	assert.Contains(t, codes(r.Items), "M009-2")
	assert.NotContains(t, codes(r.Items), "M009-1")
}

func TestDerive_RestorationComplexFromKeyword(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "25 MO CR充填")
	assert.Contains(t, codes(r.Items), "M009-2")
}

func TestDerive_EndoCanalCount(t *testing.T) {
	tests := []struct {
		plan string
		want string
	}{
		{"47 抜髄", "I005-3"},
		{"14 抜髄", "I005-2"},
		{"11 抜髄", "I005-1"},
		{"47 抜髄 単根", "I005-1"},
		{"抜髄", "I005-1"},
		{"47抜髄", "I005-3"},
		{"#14番 抜髄", "I005-2"},
	}
	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			r := run(t, testSnapshot(), followUpVisit, tt.plan)
			n := 0
			for _, it := range r.Items {
				if it.Category == "endo" {
					n++
					assert.Equal(t, tt.want, it.Code)
				}
			}
			assert.Equal(t, 1, n)
		})
	}
}

func TestDerive_ExtractionVariants(t *testing.T) {
	tests := []struct {
		plan string
		want string
	}{
		{"38 埋伏 抜歯", "J000-5"},
		{"46 難抜 抜歯", "J000-4"},
		{"84 抜歯", "J000-1"},
		{"36 抜歯", "J000-3"},
		{"11 抜歯", "J000-2"},
		{"38埋伏抜歯", "J000-5"},
		{"36番抜歯", "J000-3"},
	}
	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			r := run(t, testSnapshot(), followUpVisit, tt.plan)
			var got []string
			for _, it := range r.Items {
				if it.Category == "extraction" {
					got = append(got, it.Code)
				}
			}
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestDerive_ExtractionComments(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "38 埋伏 抜歯")
	require.Len(t, r.Comments, 1)
	assert.Equal(t, "820100116", r.Comments[0].Code)
}

// -- Prosthetics and materials --

func TestDerive_CrownFollowOn(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "46 fmc")
	for _, code := range []string{"M010-3", "M003-1", "M006-1", "M005-1", "M000"} {
		it, ok := item(r.Items, code)
		require.True(t, ok, "missing %s in %v", code, codes(r.Items))
		assert.Equal(t, []string{"46"}, it.ToothNumbers, code)
	}
	// Alloy priced at zero is entered by hand; the impression material is billed.
	for _, it := range r.Items {
		assert.NotEqual(t, "金パラ", it.Name)
	}
	_, ok := item(r.Items, "MAT-710020001")
	assert.True(t, ok)
}

func TestDerive_ToothNumbersWrittenAgainstText(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "46番fmc")
	crown, ok := item(r.Items, "M010-3")
	require.True(t, ok, "missing molar crown in %v", codes(r.Items))
	assert.Equal(t, []string{"46"}, crown.ToothNumbers)

	sc, ok := item(run(t, testSnapshot(), followUpVisit, "スケーリング16番11番26番").Items, "I011")
	require.True(t, ok)
	assert.Equal(t, 3, sc.Count)
}

func TestDerive_CrownPremolarAndCadCam(t *testing.T) {
	assert.Contains(t, codes(run(t, testSnapshot(), followUpVisit, "24 fmc").Items), "M010-4")
	assert.Contains(t, codes(run(t, testSnapshot(), followUpVisit, "46 CAD/CAM クラウン").Items), "M015-2")
}

func TestDerive_DentureMaintenanceSkipsCrownFollowOn(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "義歯修理 46 fmc")
	assert.Contains(t, codes(r.Items), "M029")
	assert.Contains(t, codes(r.Items), "M010-3")
	assert.NotContains(t, codes(r.Items), "M003-1")
	assert.NotContains(t, codes(r.Items), "M018-2")
}

func TestDerive_NewDentureFollowOn(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "上顎 総義歯 新製")
	assert.Contains(t, codes(r.Items), "M018-1")
	assert.NotContains(t, codes(r.Items), "M018-2")
	for _, code := range []string{"M003-3", "M006-2", "M005-2", "M000"} {
		it, ok := item(r.Items, code)
		require.True(t, ok, "missing %s in %v", code, codes(r.Items))
		assert.Empty(t, it.ToothNumbers)
	}

	// Two impression materials relate to M003-3; only one is billed.
	n := 0
	for _, it := range r.Items {
		if strings.HasPrefix(it.Code, MaterialPrefix) {
			n++
			assert.Equal(t, "MAT-710020001", it.Code)
			assert.Equal(t, 2, it.Points) // 1.1 × 16 = 17.6 yen
		}
	}
	assert.Equal(t, 1, n)
}

func TestDerive_DentureAdjustment(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "デンチャー調整")
	assert.Contains(t, codes(r.Items), "H001-2")
	assert.NotContains(t, codes(r.Items), "M018-2")
}

func TestDerive_TemporaryCrown(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "46 形成 テック")
	tek, ok := item(r.Items, "M003-2")
	require.True(t, ok, "%v", codes(r.Items))
	assert.Equal(t, []string{"46"}, tek.ToothNumbers)

	noTek := run(t, testSnapshot(), followUpVisit, "46 形成")
	assert.NotContains(t, codes(noTek.Items), "M003-2")
}

func TestDerive_PostAndCore(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "46 コア")
	assert.Contains(t, codes(r.Items), "M002")
	assert.Contains(t, codes(r.Items), "M001-3-S")
	core, ok := item(r.Items, "MAT-710040001")
	require.True(t, ok)
	assert.Equal(t, 2, core.Points) // 70 × 0.3 = 21 yen
}

func TestDerive_MaterialRelatedThroughFallbackCode(t *testing.T) {
	snap := testSnapshot()
	snap.Materials = append(snap.Materials, reference.Material{
		ID: "tray-resin", Name: "トレーレジン", MaterialCategory: "tray", RelatedFeeCodes: []string{"M-INSHO"},
		UnitPrice: decimal.RequireFromString("50"), Unit: "g", DefaultQuantity: decimal.RequireFromString("1"),
		ReceiptCode: "710030001", IsActive: true,
	})

	r := run(t, snap, followUpVisit, "46 fmc")
	tray, ok := item(r.Items, "MAT-710030001")
	require.True(t, ok, "missing tray material in %v", codes(r.Items))
	assert.Equal(t, "M003-1", tray.Note)
	assert.Equal(t, []string{"46"}, tray.ToothNumbers)
	assert.Equal(t, 5, tray.Points)
}

func TestDerive_MaterialOnePointFloor(t *testing.T) {
	r := run(t, testSnapshot(), followUpVisit, "CR充填")
	resin, ok := item(r.Items, "MAT-710010001")
	require.True(t, ok)
	assert.Equal(t, 1, resin.Points) // 9 yen
}

// -- Bonuses --

func TestDerive_FacilityBonusBestOfGroup(t *testing.T) {
	snap := testSnapshot()
	snap.Bonuses = testBonuses()
	snap.Registered = map[string]bool{"gaikan1": true, "kansen1": true, "kansen2": true}

	r := run(t, snap, newVisit, "")
	var bonuses []SelectedItem
	for _, it := range r.Items {
		if strings.HasPrefix(it.Code, BonusPrefix) {
			bonuses = append(bonuses, it)
		}
	}
	require.Len(t, bonuses, 2)
	assert.Equal(t, "BONUS-gaikan1-A000", bonuses[0].Code)
	assert.Equal(t, 12, bonuses[0].Points)
	assert.Equal(t, "BONUS-kansen2-A000", bonuses[1].Code)
	assert.Equal(t, 14, bonuses[1].Points)

	follow := run(t, snap, followUpVisit, "")
	assert.Equal(t, []string{"A002-1", "BONUS-kansen2-A002"}, codes(follow.Items))
}

func TestDerive_BonusRequiresRegistration(t *testing.T) {
	snap := testSnapshot()
	snap.Bonuses = testBonuses()
	r := run(t, snap, newVisit, "")
	assert.Equal(t, []string{"A000-1"}, codes(r.Items))
}

func TestFacilityGroup(t *testing.T) {
	assert.Equal(t, "kansen", FacilityGroup("kansen2"))
	assert.Equal(t, "gaikan", FacilityGroup("gaikan"))
}

// -- Degraded mode --

func TestDerive_KeywordFallbackWhenPatternsUnavailable(t *testing.T) {
	snap := testSnapshot()
	snap.Patterns = nil
	snap.PatternsUnavailable = true

	r := run(t, snap, followUpVisit, "パノラマ撮影 浸麻 CR充填")
	assert.True(t, r.Degraded)
	assert.Equal(t, []string{"A002-1", "E100-P", "K001"}, codes(r.Items))
	require.NotEmpty(t, r.Warnings)
}

// -- Allergy check --

func TestDerive_AllergyCritical(t *testing.T) {
	r := NewEngine(zerolog.Nop()).Derive(Input{
		Note:      notes.Sections{Plan: "サワシリン 処方"},
		Visit:     followUpVisit,
		Allergies: []string{"ペニシリン"},
		Snapshot:  testSnapshot(),
	})
	require.Len(t, r.Warnings, 2)
	assert.True(t, strings.HasPrefix(r.Warnings[0], "critical:"), r.Warnings[0])
	assert.True(t, strings.HasPrefix(r.Warnings[1], "info:"), r.Warnings[1])
	// Warnings never block billing.
	assert.Contains(t, codes(r.Items), "DRUG-620007601")
}

func TestDerive_AllergyCrossReactivity(t *testing.T) {
	r := NewEngine(zerolog.Nop()).Derive(Input{
		Note:      notes.Sections{Plan: "フロモックス 処方"},
		Visit:     followUpVisit,
		Allergies: []string{"ペニシリン"},
		Snapshot:  testSnapshot(),
	})
	require.NotEmpty(t, r.Warnings)
	assert.True(t, strings.HasPrefix(r.Warnings[0], "warning:"), r.Warnings[0])
}

func TestDerive_AllergySentinelsAndAdvisories(t *testing.T) {
	none := NewEngine(zerolog.Nop()).Derive(Input{Visit: followUpVisit, Allergies: []string{"なし"}, Snapshot: testSnapshot()})
	assert.Empty(t, none.Warnings)

	nkda := NewEngine(zerolog.Nop()).Derive(Input{Visit: followUpVisit, Allergies: []string{"NKDA", " "}, Snapshot: testSnapshot()})
	assert.Empty(t, nkda.Warnings)

	latex := NewEngine(zerolog.Nop()).Derive(Input{Visit: followUpVisit, Allergies: []string{"ラテックス"}, Snapshot: testSnapshot()})
	require.Len(t, latex.Warnings, 2)
	assert.Contains(t, latex.Warnings[0], "ラテックス")
	assert.True(t, strings.HasPrefix(latex.Warnings[1], "info:"))
}

// -- Comments --

func TestDerive_PreviousVisitComment(t *testing.T) {
	prev := date(2024, time.March, 1)
	visit := ClassifyVisit(false, date(2024, time.June, 10), &prev, 90)
	require.Equal(t, VisitGap, visit.Reason)

	r := run(t, testSnapshot(), visit, "")
	require.Len(t, r.Comments, 1)
	assert.Equal(t, PreviousVisitCommentCode, r.Comments[0].Code)
	assert.Equal(t, "前回受診日：2024年3月1日", r.Comments[0].Text)
}
