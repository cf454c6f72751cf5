// Package ocr turns text recognised from identity documents into structured
// fields. Recognition itself happens on the client; this package only reads the
// machine readable zone (MRZ) and falls back to scanning free text.
package ocr

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"
)

var (
	ErrNoMRZ      = errors.New("no machine readable zone found")
	ErrCheckDigit = errors.New("mrz check digit mismatch")
)

type Extraction struct {
	Format         string    `json:"format"` // TD1 or TD3
	DocumentType   string    `json:"document_type"`
	DocumentNumber string    `json:"document_number"`
	SupportNumber  string    `json:"support_number,omitempty"`
	IssuingState   string    `json:"issuing_state"`
	Nationality    string    `json:"nationality"`
	FirstName      string    `json:"first_name"`
	LastName1      string    `json:"last_name_1"`
	LastName2      string    `json:"last_name_2,omitempty"`
	BirthDate      time.Time `json:"birth_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	Sex            string    `json:"sex"`
}

var ocrNoise = strings.NewReplacer(" ", "", "«", "<", "‹", "<", "\t", "")

// ParseMRZ finds a TD1 (ID card, 3x30) or TD3 (passport, 2x44) zone in the text and
// verifies its check digits. now decides the century of two-digit birth years.
func ParseMRZ(text string, now time.Time) (*Extraction, error) {
	var lines []string
	for _, l := range strings.Split(strings.ToUpper(text), "\n") {
		l = ocrNoise.Replace(strings.TrimSpace(l))
		if l != "" {
			lines = append(lines, l)
		}
	}

	for i := 0; i+2 < len(lines); i++ {
		if len(lines[i]) == 30 && len(lines[i+1]) == 30 && len(lines[i+2]) == 30 {
			return parseTD1(lines[i], lines[i+1], lines[i+2], now)
		}
	}
	for i := 0; i+1 < len(lines); i++ {
		if len(lines[i]) == 44 && len(lines[i+1]) == 44 && lines[i][0] == 'P' {
			return parseTD3(lines[i], lines[i+1], now)
		}
	}
	return nil, ErrNoMRZ
}

func parseTD1(l1, l2, l3 string, now time.Time) (*Extraction, error) {
	checks := []struct {
		field string
		data  string
		digit byte
	}{
		{"document number", l1[5:14], l1[14]},
		{"birth date", l2[0:6], l2[6]},
		{"expiry date", l2[8:14], l2[14]},
		{"composite", l1[5:30] + l2[0:7] + l2[8:15] + l2[18:29], l2[29]},
	}
	for _, c := range checks {
		if err := verify(c.field, c.data, c.digit); err != nil {
			return nil, err
		}
	}

	e := &Extraction{
		Format:        "TD1",
		IssuingState:  trimFiller(l1[2:5]),
		SupportNumber: trimFiller(l1[5:14]),
		Nationality:   trimFiller(l2[15:18]),
		Sex:           sex(l2[7]),
	}

	var err error
	if e.BirthDate, err = mrzDate(l2[0:6], now, true); err != nil {
		return nil, err
	}
	if e.ExpiryDate, err = mrzDate(l2[8:14], now, false); err != nil {
		return nil, err
	}
	e.LastName1, e.LastName2, e.FirstName = names(l3)

	// Spanish cards carry the personal number (DNI or NIE) in the optional data of line 1.
	optional := trimFiller(l1[15:30])
	if docType := validation.DetectDocumentType(optional); docType != "" && validation.ValidateDocument(docType, optional).Valid {
		e.DocumentType = docType
		e.DocumentNumber = optional
	} else {
		e.DocumentType = "OTHER"
		e.DocumentNumber = e.SupportNumber
		e.SupportNumber = ""
	}
	return e, nil
}

func parseTD3(l1, l2 string, now time.Time) (*Extraction, error) {
	checks := []struct {
		field string
		data  string
		digit byte
	}{
		{"document number", l2[0:9], l2[9]},
		{"birth date", l2[13:19], l2[19]},
		{"expiry date", l2[21:27], l2[27]},
		{"composite", l2[0:10] + l2[13:20] + l2[21:43], l2[43]},
	}
	for _, c := range checks {
		if err := verify(c.field, c.data, c.digit); err != nil {
			return nil, err
		}
	}

	e := &Extraction{
		Format:         "TD3",
		DocumentType:   "PASSPORT",
		DocumentNumber: trimFiller(l2[0:9]),
		IssuingState:   trimFiller(l1[2:5]),
		Nationality:    trimFiller(l2[10:13]),
		Sex:            sex(l2[20]),
	}
	var err error
	if e.BirthDate, err = mrzDate(l2[13:19], now, true); err != nil {
		return nil, err
	}
	if e.ExpiryDate, err = mrzDate(l2[21:27], now, false); err != nil {
		return nil, err
	}
	e.LastName1, e.LastName2, e.FirstName = names(l1[5:])
	return e, nil
}

// CheckDigit computes the ICAO 9303 7-3-1 check digit.
func CheckDigit(s string) byte {
	weights := [3]int{7, 3, 1}
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += charValue(s[i]) * weights[i%3]
	}
	return byte('0' + sum%10)
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	default:
		return 0
	}
}

func verify(field, data string, digit byte) error {
	// A filler in the check position is allowed for empty optional fields only.
	if digit == '<' && strings.Trim(data, "<") == "" {
		return nil
	}
	if CheckDigit(data) != digit {
		return fmt.Errorf("%w: %s", ErrCheckDigit, field)
	}
	return nil
}

func mrzDate(s string, now time.Time, past bool) (time.Time, error) {
	t, err := time.Parse("060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("mrz date %q: %w", s, err)
	}
	// time.Parse maps 69-99 to 19xx and 00-68 to 20xx; birth dates must not be in the future
	// and expiry dates are always in this century.
	if past && t.After(now) {
		t = t.AddDate(-100, 0, 0)
	}
	if !past && t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	return t, nil
}

func names(field string) (last1, last2, first string) {
	parts := strings.SplitN(strings.TrimRight(field, "<"), "<<", 2)
	surnames := strings.Fields(strings.ReplaceAll(parts[0], "<", " "))
	if len(surnames) > 0 {
		last1 = surnames[0]
		last2 = strings.Join(surnames[1:], " ")
	}
	if len(parts) == 2 {
		first = strings.Join(strings.Fields(strings.ReplaceAll(parts[1], "<", " ")), " ")
	}
	return last1, last2, first
}

func sex(c byte) string {
	switch c {
	case 'M':
		return "M"
	case 'F':
		return "F"
	default:
		return "O"
	}
}

func trimFiller(s string) string {
	return strings.Trim(s, "<")
}

var freeTextDocument = regexp.MustCompile(`(?:[0-9]{8}|[XYZ][0-9]{7})[ \-.]?[A-Z]`)

// ExtractDocumentNumber scans free OCR text for the first DNI or NIE whose check
// letter is valid. It returns the type and normalized number, or empty strings.
func ExtractDocumentNumber(text string) (docType, number string) {
	upper := strings.ToUpper(text)
	for _, candidate := range freeTextDocument.FindAllString(upper, -1) {
		n := validation.NormalizeDocument(candidate)
		t := validation.DetectDocumentType(n)
		if t != "" && validation.ValidateDocument(t, n).Valid {
			return t, n
		}
	}
	return "", ""
}
