package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers written without a country code,
// including the domestic "8 (999) ..." form.
const DefaultRegion = "RU"

// NormalizePhone formats phone as E.164. Values that are not possible phone
// numbers are returned trimmed but otherwise unchanged, so a manager's note
// in the phone field is not lost.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if region == "" {
		region = DefaultRegion
	}

	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsPossibleNumber(parsed) {
		return phone
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
