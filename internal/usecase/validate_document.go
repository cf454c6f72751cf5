package usecase

import (
	"errors"
	"time"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/registration"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/ocr"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/validation"
)

type DocumentCheck struct {
	DocumentType string `json:"document_type"`
	validation.Result
}

// ValidateDocument checks a document number. An empty type is detected from the number's shape.
func ValidateDocument(docType, number string) DocumentCheck {
	if docType == "" {
		docType = validation.DetectDocumentType(validation.NormalizeDocument(number))
		if docType == "" {
			docType = "PASSPORT"
		}
	}
	return DocumentCheck{DocumentType: docType, Result: validation.ValidateDocument(docType, number)}
}

type ScanResult struct {
	Source     string          `json:"source"` // mrz or text
	Extraction *ocr.Extraction `json:"extraction,omitempty"`
	Document   *DocumentCheck  `json:"document,omitempty"`
}

// ScanDocument reads OCR text from a document photo. The MRZ is preferred; free
// text is scanned for a DNI/NIE when no valid zone is found.
func ScanDocument(text string, now time.Time) (*ScanResult, error) {
	e, err := ocr.ParseMRZ(text, now)
	if err == nil {
		return &ScanResult{Source: "mrz", Extraction: e}, nil
	}

	if docType, number := ocr.ExtractDocumentNumber(text); number != "" {
		check := ValidateDocument(docType, number)
		return &ScanResult{Source: "text", Document: &check}, nil
	}

	return nil, invalid("no document data found: %v", err)
}

type StepCheck struct {
	Step       string `json:"step"`
	Valid      bool   `json:"valid"`
	CanAdvance bool   `json:"can_advance"`
	NextStep   int    `json:"next_step"`
	Completed  []int  `json:"completed"`
	BlockedBy  string `json:"blocked_by,omitempty"`
	Error      string `json:"error,omitempty"`
}

// ValidateRegistrationStep gates the registration wizard: a step is reachable only
// when every earlier step validates.
func ValidateRegistrationStep(form registration.Form, step registration.Step, rules registration.Rules) (*StepCheck, error) {
	if !step.Valid() {
		return nil, invalid("unknown step %d", int(step))
	}

	check := &StepCheck{Step: step.String(), Completed: []int{}}
	for _, s := range form.Completed(rules) {
		check.Completed = append(check.Completed, int(s))
	}

	if err := form.ValidateStep(step, rules); err != nil {
		check.Error = err.Error()
	} else {
		check.Valid = true
	}

	form.CurrentStep = step
	if err := form.Advance(rules); err != nil {
		check.NextStep = int(step)
		var stepErr *registration.StepError
		if errors.As(err, &stepErr) {
			check.BlockedBy = stepErr.Step.String()
			check.NextStep = int(stepErr.Step)
		}
		if check.Error == "" {
			check.Error = err.Error()
		}
		return check, nil
	}
	check.CanAdvance = true
	check.NextStep = int(form.CurrentStep)
	return check, nil
}
