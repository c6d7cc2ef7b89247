package entity

import "time"

const expiringSoonWindow = 30 * 24 * time.Hour

// Certification is a licence or credential held by a company.
type Certification struct {
	ID                  int64      `json:"id"`
	CompanyID           string     `json:"company_id"`
	CertificationName   string     `json:"certification_name"`
	IssuingOrganization *string    `json:"issuing_organization,omitempty"`
	IssueDate           *time.Time `json:"issue_date,omitempty"`
	ExpiryDate          *time.Time `json:"expiry_date,omitempty"`
	CertificateNumber   *string    `json:"certificate_number,omitempty"`
	CertificateURL      *string    `json:"certificate_url,omitempty"`
	IsExpired           bool       `json:"expired"`
	IsExpiringSoon      bool       `json:"expires_soon"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Expired reports whether the expiry date is before today.
func (c Certification) Expired(now time.Time) bool {
	if c.ExpiryDate == nil {
		return false
	}
	return startOfDay(*c.ExpiryDate).Before(startOfDay(now))
}

// ExpiresSoon reports whether the expiry date falls between today and 30 days from now.
func (c Certification) ExpiresSoon(now time.Time) bool {
	if c.ExpiryDate == nil {
		return false
	}
	expiry := startOfDay(*c.ExpiryDate)
	today := startOfDay(now)
	return !expiry.Before(today) && !expiry.After(today.Add(expiringSoonWindow))
}

// WithStatus fills the derived expiry flags relative to now.
func (c Certification) WithStatus(now time.Time) Certification {
	c.IsExpired = c.Expired(now)
	c.IsExpiringSoon = c.ExpiresSoon(now)
	return c
}
