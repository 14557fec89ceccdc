package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Scope1 = "Scope 1"
	Scope2 = "Scope 2"
	Scope3 = "Scope 3"
)

// DateLayout is the wire format for record dates.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar date; the time-of-day part is always midnight UTC.
	Date struct {
		time.Time
	}

	// EmissionRecord is one logged activity converted to CO2-equivalent mass.
	// EmissionsKg is derived from Quantity and EmissionFactor and must be
	// recomputed whenever either changes.
	EmissionRecord struct {
		ID             int64   `json:"id,omitempty"`
		Date           Date    `json:"date"`
		Scope          string  `json:"scope"`
		Category       string  `json:"category"`
		Activity       string  `json:"activity"`
		Quantity       float64 `json:"quantity"`
		Unit           string  `json:"unit"`
		EmissionFactor float64 `json:"emission_factor"`
		EmissionsKg    float64 `json:"emissions_kgCO2e"`
		Notes          string  `json:"notes"`

		// Optional reporting metadata.
		BusinessUnit       string `json:"business_unit,omitempty"`
		Project            string `json:"project,omitempty"`
		Country            string `json:"country,omitempty"`
		Facility           string `json:"facility,omitempty"`
		ResponsiblePerson  string `json:"responsible_person,omitempty"`
		DataQuality        string `json:"data_quality,omitempty"`
		VerificationStatus string `json:"verification_status,omitempty"`
	}

	// CompanyProfile describes the reporting organization. It has its own
	// lifecycle, independent from the ledger.
	CompanyProfile struct {
		Name               string   `json:"name"`
		Industry           string   `json:"industry"`
		Location           string   `json:"location"`
		ExportMarkets      []string `json:"export_markets"`
		ContactPerson      string   `json:"contact_person"`
		Email              string   `json:"email"`
		Phone              string   `json:"phone"`
		Address            string   `json:"address"`
		RegistrationNumber string   `json:"registration_number"`
		ReportingYear      int      `json:"reporting_year"`
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrMissingScope    = errors.New("missing scope")
	ErrMissingCategory = errors.New("missing category")
	ErrMissingActivity = errors.New("missing activity")
	ErrMissingUnit     = errors.New("missing unit")
	ErrInvalidQuantity = errors.New("quantity must be zero or positive")
	ErrInvalidFactor   = errors.New("emission factor must be positive")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket used by the monthly time series.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate rejects records with missing required fields, negative
// quantities, or non-positive factors. Zero quantity is permitted: an
// activity can legitimately report no usage for a period.
func (r EmissionRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Scope) == "" {
		return ErrMissingScope
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrMissingCategory
	}
	if strings.TrimSpace(r.Activity) == "" {
		return ErrMissingActivity
	}
	if strings.TrimSpace(r.Unit) == "" {
		return ErrMissingUnit
	}
	if r.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if r.EmissionFactor <= 0 {
		return ErrInvalidFactor
	}
	return nil
}

// Recompute refreshes the derived EmissionsKg field. Every path that
// creates or edits a record calls this, so the invariant
// emissions == round4(quantity * factor) holds at all times.
func (r *EmissionRecord) Recompute() {
	r.EmissionsKg = Round4(r.Quantity * r.EmissionFactor)
}

func (p CompanyProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("missing company name")
	}
	if p.ReportingYear != 0 && (p.ReportingYear < 1990 || p.ReportingYear > 2100) {
		return fmt.Errorf("implausible reporting year %d", p.ReportingYear)
	}
	return nil
}
