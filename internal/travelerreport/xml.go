package travelerreport

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/booking"
	"github.com/guillermolam/alberguecarcalejo-sub002/internal/domain/pilgrim"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
	roleTraveler   = "VI"
	paymentCash    = "EFECT"
)

var (
	ErrEmptyReport = errors.New("traveler report has no pilgrims")
	// ErrInvalidText is returned for values encoding/xml would silently replace.
	ErrInvalidText = errors.New("text cannot be carried in XML")
)

// Report is one delivery to the authorities: an establishment and the stays
// (contracts) with the people who occupy them.
type Report struct {
	EstablishmentCode string
	Contracts         []Contract
	GeneratedAt       time.Time
}

type Contract struct {
	Booking  *booking.Booking
	Pilgrims []*pilgrim.Pilgrim
}

// Wire format. Element names follow the SES.HOSPEDAJES "alta de parte de viajeros" request.
type Request struct {
	XMLName   xml.Name  `xml:"peticion"`
	Solicitud Solicitud `xml:"solicitud"`
}

type Solicitud struct {
	CodigoEstablecimiento string         `xml:"codigoEstablecimiento"`
	Comunicaciones        []Comunicacion `xml:"comunicacion"`
}

type Comunicacion struct {
	Contrato Contrato  `xml:"contrato"`
	Personas []Persona `xml:"persona"`
}

type Contrato struct {
	Referencia    string `xml:"referencia"`
	FechaContrato string `xml:"fechaContrato"`
	FechaEntrada  string `xml:"fechaEntrada"`
	FechaSalida   string `xml:"fechaSalida"`
	NumPersonas   int    `xml:"numPersonas"`
	Pago          Pago   `xml:"pago"`
}

type Pago struct {
	TipoPago string `xml:"tipoPago"`
}

type Persona struct {
	Rol              string    `xml:"rol"`
	Nombre           string    `xml:"nombre"`
	Apellido1        string    `xml:"apellido1"`
	Apellido2        string    `xml:"apellido2,omitempty"`
	TipoDocumento    string    `xml:"tipoDocumento"`
	NumeroDocumento  string    `xml:"numeroDocumento"`
	SoporteDocumento string    `xml:"soporteDocumento,omitempty"`
	FechaNacimiento  string    `xml:"fechaNacimiento"`
	Nacionalidad     string    `xml:"nacionalidad"`
	Sexo             string    `xml:"sexo"`
	Direccion        Direccion `xml:"direccion"`
	Telefono         string    `xml:"telefono,omitempty"`
	Correo           string    `xml:"correo,omitempty"`
}

type Direccion struct {
	Direccion    string `xml:"direccion"`
	Municipio    string `xml:"nombreMunicipio"`
	CodigoPostal string `xml:"codigoPostal"`
	Pais         string `xml:"pais"`
}

// Build renders the report as an indented XML document with declaration.
// Text values are escaped by encoding/xml; values it cannot carry unchanged are rejected.
func Build(r Report) ([]byte, error) {
	if err := xmlText("codigoEstablecimiento", r.EstablishmentCode); err != nil {
		return nil, err
	}
	req := Request{Solicitud: Solicitud{CodigoEstablecimiento: r.EstablishmentCode}}

	total := 0
	for _, c := range r.Contracts {
		if c.Booking == nil {
			return nil, fmt.Errorf("contract without booking")
		}
		com := Comunicacion{Contrato: contract(c, r.GeneratedAt)}
		if err := xmlText("referencia", com.Contrato.Referencia); err != nil {
			return nil, err
		}
		for _, p := range c.Pilgrims {
			persona := person(p)
			if err := persona.check(); err != nil {
				return nil, err
			}
			com.Personas = append(com.Personas, persona)
		}
		total += len(com.Personas)
		req.Solicitud.Comunicaciones = append(req.Solicitud.Comunicaciones, com)
	}
	if total == 0 {
		return nil, ErrEmptyReport
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("encode traveler report: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Parse decodes a document produced by Build.
func Parse(data []byte) (*Request, error) {
	var req Request
	if err := xml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode traveler report: %w", err)
	}
	return &req, nil
}

func contract(c Contract, generatedAt time.Time) Contrato {
	b := c.Booking
	contractDate := b.CreatedAt
	if contractDate.IsZero() {
		contractDate = generatedAt
	}
	return Contrato{
		Referencia:    b.ID,
		FechaContrato: contractDate.Format(dateLayout),
		FechaEntrada:  b.CheckIn.Format(dateTimeLayout),
		FechaSalida:   b.CheckOut.Format(dateTimeLayout),
		NumPersonas:   len(c.Pilgrims),
		Pago:          Pago{TipoPago: paymentCash},
	}
}

func person(p *pilgrim.Pilgrim) Persona {
	return Persona{
		Rol:              roleTraveler,
		Nombre:           p.FirstName,
		Apellido1:        p.LastName1,
		Apellido2:        p.LastName2,
		TipoDocumento:    documentCode(p.DocumentType),
		NumeroDocumento:  p.DocumentNumber,
		SoporteDocumento: p.DocumentSupport,
		FechaNacimiento:  p.BirthDate.Format(dateLayout),
		Nacionalidad:     p.Nationality,
		Sexo:             sexCode(p.Gender),
		Direccion: Direccion{
			Direccion:    p.Address.Street,
			Municipio:    p.Address.City,
			CodigoPostal: p.Address.PostalCode,
			Pais:         p.Address.Country,
		},
		Telefono: p.Phone,
		Correo:   p.Email,
	}
}

func (p Persona) check() error {
	fields := []struct{ name, value string }{
		{"nombre", p.Nombre},
		{"apellido1", p.Apellido1},
		{"apellido2", p.Apellido2},
		{"numeroDocumento", p.NumeroDocumento},
		{"soporteDocumento", p.SoporteDocumento},
		{"nacionalidad", p.Nacionalidad},
		{"direccion", p.Direccion.Direccion},
		{"nombreMunicipio", p.Direccion.Municipio},
		{"codigoPostal", p.Direccion.CodigoPostal},
		{"pais", p.Direccion.Pais},
		{"telefono", p.Telefono},
		{"correo", p.Correo},
	}
	for _, f := range fields {
		if err := xmlText(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

func xmlText(field, s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidText, field)
	}
	for _, r := range s {
		if !isXMLChar(r) {
			return fmt.Errorf("%w: %s contains %U", ErrInvalidText, field, r)
		}
	}
	return nil
}

// isXMLChar is the Char production of XML 1.0.
func isXMLChar(r rune) bool {
	return r == 0x09 || r == 0x0A || r == 0x0D ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

func documentCode(t pilgrim.DocumentType) string {
	switch t {
	case pilgrim.DocumentDNI:
		return "NIF"
	case pilgrim.DocumentNIE:
		return "NIE"
	case pilgrim.DocumentPassport:
		return "PAS"
	default:
		return "OTRO"
	}
}

func sexCode(g string) string {
	switch g {
	case "M":
		return "H"
	case "F":
		return "M"
	default:
		return "O"
	}
}
