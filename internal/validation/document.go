package validation

import (
	"regexp"
	"strconv"
	"strings"
)

const checkLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniPattern      = regexp.MustCompile(`^[0-9]{8}[A-Z]$`)
	niePattern      = regexp.MustCompile(`^[XYZ][0-9]{7}[A-Z]$`)
	passportPattern = regexp.MustCompile(`^[A-Z0-9]{6,9}$`)
	separators      = strings.NewReplacer(" ", "", "-", "", ".", "", "\t", "")
)

// Result is the outcome of a document check. Message is empty when Valid.
type Result struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	Message    string `json:"message,omitempty"`
}

func NormalizeDocument(s string) string {
	return strings.ToUpper(separators.Replace(strings.TrimSpace(s)))
}

// CheckLetter returns the control letter for a DNI number (or an NIE with its
// prefix already substituted).
func CheckLetter(n int) byte {
	return checkLetters[n%23]
}

func ValidateDNI(s string) Result {
	doc := NormalizeDocument(s)
	if !dniPattern.MatchString(doc) {
		return Result{Normalized: doc, Message: "DNI must be 8 digits followed by a letter"}
	}
	n, _ := strconv.Atoi(doc[:8])
	if CheckLetter(n) != doc[8] {
		return Result{Normalized: doc, Message: "DNI check letter does not match"}
	}
	return Result{Valid: true, Normalized: doc}
}

func ValidateNIE(s string) Result {
	doc := NormalizeDocument(s)
	if !niePattern.MatchString(doc) {
		return Result{Normalized: doc, Message: "NIE must be X, Y or Z followed by 7 digits and a letter"}
	}
	prefix := strings.IndexByte("XYZ", doc[0])
	n, _ := strconv.Atoi(strconv.Itoa(prefix) + doc[1:8])
	if CheckLetter(n) != doc[8] {
		return Result{Normalized: doc, Message: "NIE check letter does not match"}
	}
	return Result{Valid: true, Normalized: doc}
}

func ValidatePassport(s string) Result {
	doc := NormalizeDocument(s)
	if !passportPattern.MatchString(doc) {
		return Result{Normalized: doc, Message: "passport number must be 6 to 9 letters or digits"}
	}
	return Result{Valid: true, Normalized: doc}
}

// ValidateDocument dispatches on the document type (DNI, NIE, PASSPORT, OTHER).
// OTHER only requires a non-empty value.
func ValidateDocument(docType, number string) Result {
	switch strings.ToUpper(strings.TrimSpace(docType)) {
	case "DNI":
		return ValidateDNI(number)
	case "NIE":
		return ValidateNIE(number)
	case "PASSPORT", "PASAPORTE":
		return ValidatePassport(number)
	case "OTHER":
		doc := NormalizeDocument(number)
		if doc == "" {
			return Result{Message: "document number is required"}
		}
		return Result{Valid: true, Normalized: doc}
	default:
		return Result{Normalized: NormalizeDocument(number), Message: "unsupported document type"}
	}
}

// DetectDocumentType guesses DNI or NIE from the number shape. It returns an empty
// string when neither pattern applies.
func DetectDocumentType(number string) string {
	doc := NormalizeDocument(number)
	switch {
	case dniPattern.MatchString(doc):
		return "DNI"
	case niePattern.MatchString(doc):
		return "NIE"
	}
	return ""
}
