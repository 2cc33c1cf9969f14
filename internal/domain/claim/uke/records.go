// Package uke writes the monthly electronic dental claim file.
package uke

import (
	"strconv"
	"strings"
)

// Record is one line of a claim file.
type Record interface {
	Type() string
	Fields() []string
}

// UK opens the file.
type UK struct {
	Reviewer   string
	Prefecture string
	ClinicCode string
	YearMonth  string
	CreatedOn  string
}

func (UK) Type() string { return "UK" }
func (r UK) Fields() []string {
	return []string{r.Reviewer, r.Prefecture, "3", r.ClinicCode, r.YearMonth, r.CreatedOn}
}

// IR identifies the clinic.
type IR struct {
	Reviewer   string
	Prefecture string
	ClinicCode string
	ClinicName string
	YearMonth  string
	Phone      string
}

func (IR) Type() string { return "IR" }
func (r IR) Fields() []string {
	return []string{r.Reviewer, r.Prefecture, "3", r.ClinicCode, "", r.ClinicName, r.YearMonth, "00", r.Phone}
}

// RE opens one patient's receipt.
type RE struct {
	Seq         int
	ReceiptType string
	YearMonth   string
	Name        string
	Sex         string
	BirthDate   string
	BurdenPct   int
}

func (RE) Type() string { return "RE" }
func (r RE) Fields() []string {
	return []string{strconv.Itoa(r.Seq), r.ReceiptType, r.YearMonth, r.Name, r.Sex, r.BirthDate, strconv.Itoa(r.BurdenPct)}
}

// HO is the health insurance part of a receipt.
type HO struct {
	Insurer string
	Symbol  string
	Number  string
	Days    int
	Points  int
}

func (HO) Type() string { return "HO" }
func (r HO) Fields() []string {
	return []string{r.Insurer, r.Symbol, r.Number, strconv.Itoa(r.Days), strconv.Itoa(r.Points)}
}

// KO is one public-expense program.
type KO struct {
	Payer     string
	Recipient string
	Days      int
	Points    int
}

func (KO) Type() string { return "KO" }
func (r KO) Fields() []string {
	return []string{r.Payer, r.Recipient, strconv.Itoa(r.Days), strconv.Itoa(r.Points)}
}

type SY struct {
	Code      string
	Name      string
	StartedIn string
	Outcome   string
	EndedIn   string
	Modifier  string
	Tooth     string
}

func (SY) Type() string { return "SY" }
func (r SY) Fields() []string {
	return []string{r.Code, r.Name, r.StartedIn, r.Outcome, r.EndedIn, r.Modifier, r.Tooth}
}

type SI struct {
	Shinryo   string
	CostShare string
	Code      string
	Tooth     string
	Points    int
	Count     int
}

func (SI) Type() string { return "SI" }
func (r SI) Fields() []string {
	return []string{r.Shinryo, r.CostShare, r.Code, r.Tooth, strconv.Itoa(r.Points), strconv.Itoa(r.Count)}
}

// IY is a drug line.
type IY struct {
	Shinryo   string
	CostShare string
	Code      string
	Quantity  string
	Points    int
	Count     int
}

func (IY) Type() string { return "IY" }
func (r IY) Fields() []string {
	return []string{r.Shinryo, r.CostShare, r.Code, r.Quantity, strconv.Itoa(r.Points), strconv.Itoa(r.Count)}
}

// TO is a material line.
type TO struct {
	Shinryo   string
	CostShare string
	Code      string
	Quantity  string
	Points    int
	Count     int
}

func (TO) Type() string { return "TO" }
func (r TO) Fields() []string {
	return []string{r.Shinryo, r.CostShare, r.Code, r.Quantity, strconv.Itoa(r.Points), strconv.Itoa(r.Count)}
}

type CO struct {
	Code string
	Text string
}

func (CO) Type() string       { return "CO" }
func (r CO) Fields() []string { return []string{r.Code, r.Text} }

// JD marks the days of the month the patient visited.
type JD struct {
	Days [31]bool
}

func (JD) Type() string { return "JD" }
func (r JD) Fields() []string {
	f := make([]string, 0, 32)
	f = append(f, "1")
	for _, v := range r.Days {
		if v {
			f = append(f, "1")
		} else {
			f = append(f, "")
		}
	}
	return f
}

// MF is the amount collected at the window.
type MF struct {
	WindowYen int
	Days      int
}

func (MF) Type() string { return "MF" }
func (r MF) Fields() []string {
	return []string{strconv.Itoa(r.WindowYen), strconv.Itoa(r.Days)}
}

// GO closes the file.
type GO struct {
	Claims int
	Points int
}

func (GO) Type() string { return "GO" }
func (r GO) Fields() []string {
	return []string{strconv.Itoa(r.Claims), strconv.Itoa(r.Points), "99"}
}

var fieldReplacer = strings.NewReplacer(",", "、", "\r", "", "\n", " ")

// Line renders a record without its terminator.
func Line(r Record) string {
	fields := r.Fields()
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, r.Type())
	for _, f := range fields {
		parts = append(parts, fieldReplacer.Replace(f))
	}
	return strings.Join(parts, ",")
}

// Render joins records with CRLF, including after the last one.
func Render(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(Line(r))
		b.WriteString("\r\n")
	}
	return b.String()
}
