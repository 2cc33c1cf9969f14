package uke

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentclaim/dentclaim/internal/domain/billing/derive"
	"github.com/dentclaim/dentclaim/internal/domain/reference"
)

type stubCodes struct {
	byPrefix map[string]*reference.ReceiptCodeMapping
	byCode   map[string]*reference.ReceiptCodeMapping
	err      error
	calls    []string
}

func (s *stubCodes) FindReceiptCode(_ context.Context, prefix, suffix string) (*reference.ReceiptCodeMapping, error) {
	s.calls = append(s.calls, prefix+"|"+suffix)
	if s.err != nil {
		return nil, s.err
	}
	if m, ok := s.byPrefix[prefix+"|"+suffix]; ok {
		return m, nil
	}
	return nil, reference.ErrNotFound
}

func (s *stubCodes) FindReceiptCodeByCode(_ context.Context, code string) (*reference.ReceiptCodeMapping, error) {
	s.calls = append(s.calls, "code:"+code)
	if m, ok := s.byCode[code]; ok {
		return m, nil
	}
	return nil, reference.ErrNotFound
}

type stubDiagnoses struct {
	byCode map[string]*reference.Diagnosis
	byName map[string]*reference.Diagnosis
}

func (s *stubDiagnoses) FindDiagnosisByCode(_ context.Context, code string) (*reference.Diagnosis, error) {
	if d, ok := s.byCode[code]; ok {
		return d, nil
	}
	return nil, reference.ErrNotFound
}

func (s *stubDiagnoses) FindDiagnosisByName(_ context.Context, name string) (*reference.Diagnosis, error) {
	if d, ok := s.byName[name]; ok {
		return d, nil
	}
	return nil, reference.ErrNotFound
}

func TestToothCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"16", "110600", true},
		{"48", "140800", true},
		{"55", "210500", true},
		{"85", "240500", true},
		{"右上6", "110600", true},
		{"左下E", "230500", true},
		{"A", "200100", true},
		{"e", "200500", true},
		{"7", "000007", true},
		{"123456", "123456", true},
		{"X9", "X9", false},
		{"1234567", "1234567", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ToothCode(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestToothCodeTotal(t *testing.T) {
	for n := 0; n <= 99; n++ {
		code, ok := ToothCode(fmt.Sprint(n))
		require.True(t, ok, n)
		assert.Len(t, code, 6, n)
	}
	for _, l := range "ABCDE" {
		code, ok := ToothCode(string(l))
		require.True(t, ok)
		assert.Len(t, code, 6)
	}
}

func TestTranslatorStaticTable(t *testing.T) {
	codes := &stubCodes{}
	res, err := NewTranslator(codes).Resolve(context.Background(), "A000-1")
	require.NoError(t, err)
	assert.Equal(t, Resolution{ReceiptCode: "301000110", Shinryo: "11", Source: SourceStatic}, res)
	assert.Empty(t, codes.calls)
}

func TestTranslatorDatabase(t *testing.T) {
	codes := &stubCodes{
		byPrefix: map[string]*reference.ReceiptCodeMapping{
			"H001|2": {Prefix: "H001", Suffix: "2", ReceiptCode: "313100210", ShinryoCode: "80"},
		},
		byCode: map[string]*reference.ReceiptCodeMapping{
			"313029010": {Prefix: "M029", ReceiptCode: "313029010", ShinryoCode: "80"},
		},
	}
	tr := NewTranslator(codes)

	res, err := tr.Resolve(context.Background(), "H001-2")
	require.NoError(t, err)
	assert.Equal(t, "313100210", res.ReceiptCode)
	assert.Equal(t, SourceDatabase, res.Source)

	res, err = tr.Resolve(context.Background(), "313029010")
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, res.Source)
	assert.Equal(t, []string{"H001|2", "code:313029010"}, codes.calls)
}

func TestTranslatorHeuristic(t *testing.T) {
	res, err := NewTranslator(&stubCodes{}).Resolve(context.Background(), "D001")
	require.NoError(t, err)
	assert.Equal(t, "360999999", res.ReceiptCode)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Len(t, res.ReceiptCode, 9)
}

func TestTranslatorLookupError(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewTranslator(&stubCodes{err: boom}).Resolve(context.Background(), "Z999")
	assert.ErrorIs(t, err, boom)
}

func TestHeuristicShinryo(t *testing.T) {
	cases := map[string]string{
		"A000-9": "11", "A001": "11", "A003": "12", "B001": "13", "D002": "60",
		"E200": "70", "F500": "25", "G001": "33", "I099": "40", "J099": "50",
		"K002": "54", "N001": "80", "": "80",
	}
	for code, want := range cases {
		assert.Equal(t, want, HeuristicShinryo(code), code)
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, LineDrug, KindOf("DRUG-620098801"))
	assert.Equal(t, LineMaterial, KindOf("MAT-710010000"))
	assert.Equal(t, LineOmitted, KindOf("BONUS-gaikan-A000"))
	assert.Equal(t, LineProcedure, KindOf("I011"))
}

func TestLineReplacesCommas(t *testing.T) {
	assert.Equal(t, "CO,820100115,抜歯困難、骨削除", Line(CO{Code: "820100115", Text: "抜歯困難,骨削除"}))
	assert.Equal(t, "GO,2,480,99\r\n", Render([]Record{GO{Claims: 2, Points: 480}}))
}

func TestJDFields(t *testing.T) {
	var jd JD
	jd.Days[2] = true
	jd.Days[30] = true
	f := jd.Fields()
	require.Len(t, f, 32)
	assert.Equal(t, "1", f[0])
	assert.Equal(t, "1", f[3])
	assert.Equal(t, "1", f[31])
	assert.Equal(t, "", f[1])
}

func TestReceiptType(t *testing.T) {
	june := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	adult := Patient{BirthDate: date(1980, 5, 1), BurdenRatio: 0.3}

	assert.Equal(t, "3112", ReceiptType(adult, june))

	family := adult
	family.Relationship = "family"
	assert.Equal(t, "3116", ReceiptType(family, june))

	child := Patient{BirthDate: date(2020, 3, 3), BurdenRatio: 0.2}
	assert.Equal(t, "3114", ReceiptType(child, june))

	elderly := Patient{BirthDate: date(1950, 1, 1), BurdenRatio: 0.2}
	assert.Equal(t, "3118", ReceiptType(elderly, june))
	elderly.BurdenRatio = 0.3
	assert.Equal(t, "3110", ReceiptType(elderly, june))

	withPublic := adult
	withPublic.PublicExpenses = []PublicExpense{{Payer: "12130015", Recipient: "1234567"}}
	assert.Equal(t, "3212", ReceiptType(withPublic, june))
}

func TestAgeAt(t *testing.T) {
	assert.Equal(t, 43, AgeAt(date(1980, 6, 2), date(2024, 6, 1)))
	assert.Equal(t, 44, AgeAt(date(1980, 6, 1), date(2024, 6, 1)))
	assert.Equal(t, 0, AgeAt(time.Time{}, date(2024, 6, 1)))
}

func TestParseYearMonth(t *testing.T) {
	m, err := ParseYearMonth("202406")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 6, 1), m)

	for _, bad := range []string{"2024-06", "202413", "abc", ""} {
		_, err := ParseYearMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestGroupByPatient(t *testing.T) {
	groups := GroupByPatient([]Visit{
		{BillingID: "b3", PatientID: "p2", Date: date(2024, 6, 5)},
		{BillingID: "b2", PatientID: "p1", Date: date(2024, 6, 9)},
		{BillingID: "b1", PatientID: "p1", Date: date(2024, 6, 2)},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "p1", groups[0][0].PatientID)
	assert.Equal(t, []string{"b1", "b2"}, []string{groups[0][0].BillingID, groups[0][1].BillingID})
	assert.Equal(t, "p2", groups[1][0].PatientID)
}

func TestEncodeShiftJIS(t *testing.T) {
	out, lossy, err := EncodeShiftJIS("RE,あア\r\n")
	require.NoError(t, err)
	assert.False(t, lossy)
	assert.Equal(t, []byte{'R', 'E', ',', 0x82, 0xA0, 0x83, 0x41, '\r', '\n'}, out)

	out, lossy, err = EncodeShiftJIS("CO,😀")
	require.NoError(t, err)
	assert.True(t, lossy)
	assert.Equal(t, "CO,", string(out[:3]))
}

func testBatch() Batch {
	qty := decimal.NewFromInt(1)
	visits := []Visit{
		{
			BillingID: "b1", PatientID: "p1", Date: date(2024, 6, 3),
			Items: []derive.SelectedItem{
				{Code: "A000-1", Points: 267, Count: 1},
				{Code: "K001", Points: 30, Count: 1, ToothNumbers: []string{"36"}},
				{Code: "BONUS-gaikan-A000", Points: 10, Count: 1},
				{Code: "DRUG-620098801", Points: 3, Count: 1, Quantity: &qty},
			},
			Comments:      []derive.ReceiptComment{{Code: "820100115", Text: "難抜歯"}},
			TotalPoints:   310,
			PatientBurden: 930,
		},
		{
			BillingID: "b2", PatientID: "p1", Date: date(2024, 6, 10),
			Items: []derive.SelectedItem{
				{Code: "A002-1", Points: 58, Count: 1},
				{Code: "K001", Points: 30, Count: 1, ToothNumbers: []string{"36"}},
			},
			Comments:      []derive.ReceiptComment{{Code: "820100115", Text: "難抜歯"}},
			TotalPoints:   88,
			PatientBurden: 264,
		},
	}
	return Batch{
		YearMonth: "202406",
		CreatedAt: date(2024, 7, 2),
		Facility:  Facility{Reviewer: "1", Prefecture: "13", ClinicCode: "1234567", ClinicName: "テスト歯科", Phone: "03-0000-0000"},
		Claims: []PatientClaim{{
			Patient: Patient{
				ID: "p1", Name: "山田 太郎", Sex: "male", BirthDate: date(1980, 5, 1),
				InsurerNumber: "06130012", InsuredSymbol: "記号", InsuredNumber: "123", BurdenRatio: 0.3,
			},
			Visits: visits,
			Diagnoses: []Diagnosis{
				{Code: "C", Tooth: "36", StartedOn: date(2024, 6, 3)},
				{Name: "謎の痛み"},
			},
		}},
	}
}

func newTestGenerator() *Generator {
	diag := &stubDiagnoses{byCode: map[string]*reference.Diagnosis{
		"C": {Code: "5210011", Name: "う蝕", InternalCode: "C"},
	}}
	return NewGenerator(&stubCodes{}, diag, zerolog.Nop())
}

func recordTypes(f *File) []string {
	out := make([]string, 0, len(f.Records))
	for _, r := range f.Records {
		out = append(out, r.Type())
	}
	return out
}

func TestGenerateMergesVisitsIntoOneReceipt(t *testing.T) {
	f, err := newTestGenerator().Generate(context.Background(), testBatch())
	require.NoError(t, err)

	assert.Equal(t, []string{"UK", "IR", "RE", "HO", "SY", "SY", "SI", "SI", "IY", "SI", "CO", "JD", "MF", "GO"}, recordTypes(f))
	assert.Equal(t, 1, f.ReceiptCount)
	assert.Equal(t, 398, f.TotalPoints)

	lines := strings.Split(strings.TrimSuffix(f.Text(), "\r\n"), "\r\n")
	require.Len(t, lines, 14)
	assert.Equal(t, "UK,1,13,3,1234567,202406,20240702", lines[0])
	assert.Equal(t, "IR,1,13,3,1234567,,テスト歯科,202406,00,03-0000-0000", lines[1])
	assert.Equal(t, "RE,1,3112,202406,山田 太郎,1,19800501,30", lines[2])
	assert.Equal(t, "HO,06130012,記号,123,2,398", lines[3])
	assert.Equal(t, "SY,5210011,う蝕,202406,,,,130600", lines[4])
	assert.Equal(t, "SY,0000999,謎の痛み,202406,,,,", lines[5])
	assert.Equal(t, "SI,11,1,301000110,,267,1", lines[6])
	assert.Equal(t, "SI,54,1,311000110,130600,30,2", lines[7])
	assert.Equal(t, "IY,21,1,620098801,1,3,1", lines[8])
	assert.Equal(t, "SI,12,1,301001410,,58,1", lines[9])
	assert.Equal(t, "CO,820100115,難抜歯", lines[10])
	assert.True(t, strings.HasPrefix(lines[11], "JD,1,,,1,"))
	assert.Equal(t, "MF,1194,2", lines[12])
	assert.Equal(t, "GO,1,398,99", lines[13])

	require.Len(t, f.Warnings, 1)
	assert.Contains(t, f.Warnings[0], "謎の痛み")
	assert.Zero(t, f.Heuristic)
}

func TestGenerateHeuristicCodeWarns(t *testing.T) {
	b := testBatch()
	b.Claims[0].Visits = []Visit{{
		PatientID: "p1", Date: date(2024, 6, 3),
		Items:       []derive.SelectedItem{{Code: "D001", Points: 20, Count: 1}},
		TotalPoints: 20,
	}}
	b.Claims[0].Diagnoses = nil

	f, err := newTestGenerator().Generate(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Heuristic)
	require.Len(t, f.Warnings, 1)
	assert.Contains(t, f.Warnings[0], "360999999")
	assert.Contains(t, f.Text(), "SI,60,1,360999999,,20,1\r\n")
}

func TestGenerateDiagnosisOutcome(t *testing.T) {
	b := testBatch()
	b.Claims[0].Diagnoses = []Diagnosis{{
		Code: "C", Tooth: "36", StartedOn: date(2024, 5, 20),
		Outcome: "1", EndedOn: date(2024, 6, 10), Modifier: "2056",
	}}

	f, err := newTestGenerator().Generate(context.Background(), b)
	require.NoError(t, err)
	assert.Contains(t, f.Text(), "SY,5210011,う蝕,202405,1,202406,2056,130600\r\n")
}

func TestGenerateBadMonth(t *testing.T) {
	b := testBatch()
	b.YearMonth = "2024-6"
	_, err := newTestGenerator().Generate(context.Background(), b)
	assert.Error(t, err)
}

func TestGenerateEncodesShiftJIS(t *testing.T) {
	f, err := newTestGenerator().Generate(context.Background(), testBatch())
	require.NoError(t, err)
	out, lossy, err := EncodeShiftJIS(f.Text())
	require.NoError(t, err)
	assert.False(t, lossy)
	assert.True(t, strings.HasSuffix(string(out), "GO,1,398,99\r\n"))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
