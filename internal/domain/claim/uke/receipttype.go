package uke

import "time"

// Patient classes encoded in the last digit of the receipt type.
const (
	ClassSelf        = "2"
	ClassFamily      = "6"
	ClassPreschool   = "4"
	ClassElderlyLow  = "8" // 70+ paying 20% or 10%
	ClassElderlyFull = "0" // 70+ paying 30%
)

const relationshipFamily = "family"

// PatientClass derives the class digit from age at the first day of the
// claim month, burden ratio and relationship to the insured.
func PatientClass(p Patient, month time.Time) string {
	age := AgeAt(p.BirthDate, month)
	switch {
	case age >= 70 && p.BurdenRatio >= 0.3:
		return ClassElderlyFull
	case age >= 70:
		return ClassElderlyLow
	case age < 6:
		return ClassPreschool
	case p.Relationship == relationshipFamily:
		return ClassFamily
	}
	return ClassSelf
}

// ReceiptType is dental (3), insurance only (1) or with public expense (2),
// single claim (1), then the patient class.
func ReceiptType(p Patient, month time.Time) string {
	combination := "1"
	if len(p.PublicExpenses) > 0 {
		combination = "2"
	}
	return "3" + combination + "1" + PatientClass(p, month)
}

// AgeAt returns completed years on the given day.
func AgeAt(birth, on time.Time) int {
	if birth.IsZero() {
		return 0
	}
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return age
}
