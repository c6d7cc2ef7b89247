package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCertificationStatus(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2025, 6, 15+offset, 9, 0, 0, 0, time.UTC)
		return &d
	}

	tests := map[string]struct {
		expiry      *time.Time
		expired     bool
		expiresSoon bool
	}{
		"no expiry":      {expiry: nil},
		"yesterday":      {expiry: day(-1), expired: true},
		"today":          {expiry: day(0), expiresSoon: true},
		"in thirty days": {expiry: day(30), expiresSoon: true},
		"in a year":      {expiry: day(365)},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c := Certification{CertificationName: "Master Plumber", ExpiryDate: tt.expiry}.WithStatus(now)
			assert.Equal(t, tt.expired, c.IsExpired)
			assert.Equal(t, tt.expiresSoon, c.IsExpiringSoon)
		})
	}
}

func TestValidImageType(t *testing.T) {
	assert.True(t, ValidImageType("before"))
	assert.True(t, ValidImageType("equipment"))
	assert.False(t, ValidImageType("selfie"))
	assert.False(t, ValidImageType(""))
}

func TestURLPath(t *testing.T) {
	assert.Equal(t, "/united-states/florida/orlando/acme-plumbing", URLPath("united-states", "florida", "orlando", "acme-plumbing"))
}

func TestCompanyPoint(t *testing.T) {
	lat, lng := 28.5, -81.3
	assert.Nil(t, Company{Latitude: &lat}.Point())
	p := Company{Latitude: &lat, Longitude: &lng}.Point()
	if assert.NotNil(t, p) {
		assert.Equal(t, 28.5, p.Lat)
	}
}
