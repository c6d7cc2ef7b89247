package service

import (
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

var idnaProfile = idna.Lookup

const (
	trackingPrefix     = "utm_"
	defaultPhoneRegion = "US"
)

// ContactNormalizer canonicalises imported phone numbers and website links.
type ContactNormalizer struct {
	DefaultRegion string
}

// NewContactNormalizer builds a normalizer that parses national numbers for defaultRegion.
func NewContactNormalizer(defaultRegion string) *ContactNormalizer {
	region := strings.ToUpper(strings.TrimSpace(defaultRegion))
	if region == "" {
		region = defaultPhoneRegion
	}
	return &ContactNormalizer{DefaultRegion: region}
}

// Phone returns raw in E.164 when it is a valid number for region (or the default region).
// Numbers that cannot be parsed are kept as given.
func (n *ContactNormalizer) Phone(raw, region string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if normalized := normalizePhone(raw, n.region(region)); normalized != "" {
		return &normalized
	}
	return &raw
}

func (n *ContactNormalizer) region(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if len(region) == 2 {
		return region
	}
	return n.DefaultRegion
}

// Site converts the host of a website link to lowercase ASCII and drops utm_ tracking
// parameters. Links that cannot be parsed are kept as given.
func (n *ContactNormalizer) Site(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	u, err := sanitizeURL(raw)
	if err != nil {
		return &raw
	}
	host, err := idnaProfile.ToASCII(strings.ToLower(u.Hostname()))
	if err != nil || host == "" {
		return &raw
	}
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	u.Host = host
	stripTracking(u)
	out := u.String()
	return &out
}

func sanitizeURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, url.InvalidHostError("")
	}
	return u, nil
}

func stripTracking(u *url.URL) {
	query := u.Query()
	changed := false
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), trackingPrefix) {
			query.Del(key)
			changed = true
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

func normalizePhone(raw, region string) string {
	number, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return ""
	}
	if !phonenumbers.IsPossibleNumber(number) || !phonenumbers.IsValidNumber(number) {
		return ""
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
