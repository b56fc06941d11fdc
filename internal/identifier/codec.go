// Package identifier holds the pure formatting and parsing rules for the
// three identifier families. The string formats are a bit-exact external
// contract: any consumer searching by identifier must go through Parse
// rather than ad hoc substring matching.
//
// Families:
//
//	enrollment   RTS-{district}-{initials}-{MM}-{YYYY}-{NNNN}
//	receipt      RCT-{instCode}-{YYYY}-{NNNN}
//	certificate  CRT-{instCode}-{YYYY}-{NNNN}
//
// Formatting never truncates: a sequence beyond 9999 fails with
// sequence_overflow, because truncation would mint duplicate identifiers.
package identifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	dErrors "rtscore/pkg/domain-errors"
)

// maxSeq is the capacity of the 4-digit sequence field shared by all
// families.
const maxSeq = 9999

var (
	enrollmentRe  = regexp.MustCompile(`^RTS-([A-Z]{2,5})-([A-Z]{1,8})-(\d{2})-(\d{4})-(\d{4})$`)
	receiptRe     = regexp.MustCompile(`^RCT-([A-Z]{2,8})-(\d{4})-(\d{4})$`)
	certificateRe = regexp.MustCompile(`^CRT-([A-Z]{2,8})-(\d{4})-(\d{4})$`)

	districtRe = regexp.MustCompile(`^[A-Z]{2,5}$`)
	initialsRe = regexp.MustCompile(`^[A-Z]{1,8}$`)
	instCodeRe = regexp.MustCompile(`^[A-Z]{2,8}$`)
)

// Enrollment is the decoded form of a student identifier.
type Enrollment struct {
	District string // district code, e.g. NAL
	Initials string // institution initials, e.g. RCC
	Month    int    // enrollment month 1-12
	Year     int
	Seq      int
}

// Receipt is the decoded form of a payment receipt number. Receipts are
// scoped per tenant per year, not per month; the asymmetry with enrollment
// identifiers is inherited from the issuing rules and preserved here.
type Receipt struct {
	InstCode string // 3-letter institution code, e.g. RAJ
	Year     int
	Seq      int
}

// Certificate is the decoded form of a certificate number. The institution
// code keeps numbers from different tenants apart: counters are per tenant,
// so the code is what makes the rendered string unique across them.
type Certificate struct {
	InstCode string
	Year     int
	Seq      int
}

// InstitutionInitials derives the initials used in enrollment identifiers:
// the first letter of each whitespace-separated word, uppercased.
// "Rajtech Computer Center" → "RCC".
func InstitutionInitials(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// InstitutionCode derives the short code used in receipt numbers: the first
// three letters of the name, uppercased, spaces stripped.
// "Rajtech Computer Center" → "RAJ".
func InstitutionCode(name string) string {
	compact := strings.ReplaceAll(name, " ", "")
	runes := []rune(strings.ToUpper(compact))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return string(runes)
}

func checkSeq(seq int) error {
	if seq < 1 {
		return dErrors.Newf(dErrors.CodeValidation, "sequence must be positive, got %d", seq)
	}
	if seq > maxSeq {
		return dErrors.Newf(dErrors.CodeSequenceOverflow, "sequence %d exceeds identifier capacity %d", seq, maxSeq)
	}
	return nil
}

func checkYear(year int) error {
	if year < 1000 || year > 9999 {
		return dErrors.Newf(dErrors.CodeValidation, "year %d is outside the 4-digit range", year)
	}
	return nil
}

// FormatEnrollment renders an enrollment identifier, failing instead of
// truncating when the sequence exceeds the 4-digit capacity.
func FormatEnrollment(f Enrollment) (string, error) {
	if !districtRe.MatchString(f.District) {
		return "", dErrors.Newf(dErrors.CodeValidation, "district code %q must be 2-5 uppercase letters", f.District)
	}
	if !initialsRe.MatchString(f.Initials) {
		return "", dErrors.Newf(dErrors.CodeValidation, "institution initials %q must be 1-8 uppercase letters", f.Initials)
	}
	if f.Month < 1 || f.Month > 12 {
		return "", dErrors.Newf(dErrors.CodeValidation, "month %d is outside 1-12", f.Month)
	}
	if err := checkYear(f.Year); err != nil {
		return "", err
	}
	if err := checkSeq(f.Seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("RTS-%s-%s-%02d-%04d-%04d", f.District, f.Initials, f.Month, f.Year, f.Seq), nil
}

// ParseEnrollment decodes an enrollment identifier. Malformed input is
// rejected outright; fields are never partially populated.
func ParseEnrollment(s string) (Enrollment, error) {
	m := enrollmentRe.FindStringSubmatch(s)
	if m == nil {
		return Enrollment{}, dErrors.Newf(dErrors.CodeValidation, "%q is not a valid enrollment identifier", s)
	}
	month, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 {
		return Enrollment{}, dErrors.Newf(dErrors.CodeValidation, "%q has month outside 1-12", s)
	}
	year, _ := strconv.Atoi(m[4])
	seq, _ := strconv.Atoi(m[5])
	if seq == 0 {
		return Enrollment{}, dErrors.Newf(dErrors.CodeValidation, "%q has zero sequence", s)
	}
	return Enrollment{District: m[1], Initials: m[2], Month: month, Year: year, Seq: seq}, nil
}

// FormatReceipt renders a receipt number.
func FormatReceipt(f Receipt) (string, error) {
	if !instCodeRe.MatchString(f.InstCode) {
		return "", dErrors.Newf(dErrors.CodeValidation, "institution code %q must be 2-8 uppercase letters", f.InstCode)
	}
	if err := checkYear(f.Year); err != nil {
		return "", err
	}
	if err := checkSeq(f.Seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("RCT-%s-%04d-%04d", f.InstCode, f.Year, f.Seq), nil
}

// ParseReceipt decodes a receipt number.
func ParseReceipt(s string) (Receipt, error) {
	m := receiptRe.FindStringSubmatch(s)
	if m == nil {
		return Receipt{}, dErrors.Newf(dErrors.CodeValidation, "%q is not a valid receipt number", s)
	}
	year, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[3])
	if seq == 0 {
		return Receipt{}, dErrors.Newf(dErrors.CodeValidation, "%q has zero sequence", s)
	}
	return Receipt{InstCode: m[1], Year: year, Seq: seq}, nil
}

// FormatCertificate renders a certificate number. Beyond the prefix and the
// institution code the format is opaque to consumers; verification goes
// through the stored payload, not by decoding the number.
func FormatCertificate(f Certificate) (string, error) {
	if !instCodeRe.MatchString(f.InstCode) {
		return "", dErrors.Newf(dErrors.CodeValidation, "institution code %q must be 2-8 uppercase letters", f.InstCode)
	}
	if err := checkYear(f.Year); err != nil {
		return "", err
	}
	if err := checkSeq(f.Seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("CRT-%s-%04d-%04d", f.InstCode, f.Year, f.Seq), nil
}

// ParseCertificate decodes a certificate number.
func ParseCertificate(s string) (Certificate, error) {
	m := certificateRe.FindStringSubmatch(s)
	if m == nil {
		return Certificate{}, dErrors.Newf(dErrors.CodeValidation, "%q is not a valid certificate number", s)
	}
	year, _ := strconv.Atoi(m[2])
	seq, _ := strconv.Atoi(m[3])
	if seq == 0 {
		return Certificate{}, dErrors.Newf(dErrors.CodeValidation, "%q has zero sequence", s)
	}
	return Certificate{InstCode: m[1], Year: year, Seq: seq}, nil
}
