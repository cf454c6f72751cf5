package pilgrim

import (
	"errors"
	"time"
)

type DocumentType string

const (
	DocumentDNI      DocumentType = "DNI"
	DocumentNIE      DocumentType = "NIE"
	DocumentPassport DocumentType = "PASSPORT"
	DocumentOther    DocumentType = "OTHER"
)

var ErrNotFound = errors.New("pilgrim not found")

// Pilgrim holds the identity data a guest hands over at check-in. It is the source
// of the traveler report sent to the authorities.
type Pilgrim struct {
	ID              string       `json:"id"`
	BookingID       string       `json:"booking_id"`
	FirstName       string       `json:"first_name"`
	LastName1       string       `json:"last_name_1"`
	LastName2       string       `json:"last_name_2,omitempty"`
	DocumentType    DocumentType `json:"document_type"`
	DocumentNumber  string       `json:"document_number"`
	DocumentSupport string       `json:"document_support,omitempty"` // support number printed on DNI/NIE cards
	IssueDate       *time.Time   `json:"issue_date,omitempty"`
	Nationality     string       `json:"nationality"` // ISO 3166-1 alpha-3
	BirthDate       time.Time    `json:"birth_date"`
	Gender          string       `json:"gender"` // M, F, O
	Phone           string       `json:"phone,omitempty"`
	Email           string       `json:"email,omitempty"`
	Address         Address      `json:"address"`
	CreatedAt       time.Time    `json:"created_at"`
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // ISO 3166-1 alpha-3
}

func (p *Pilgrim) FullName() string {
	name := p.FirstName + " " + p.LastName1
	if p.LastName2 != "" {
		name += " " + p.LastName2
	}
	return name
}

// Age returns completed years at the given instant.
func (p *Pilgrim) Age(at time.Time) int {
	years := at.Year() - p.BirthDate.Year()
	if at.Month() < p.BirthDate.Month() || (at.Month() == p.BirthDate.Month() && at.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

// IsMinor reports whether the pilgrim is under 18; minors need a relationship entry in the report.
func (p *Pilgrim) IsMinor(at time.Time) bool {
	return p.Age(at) < 18
}
