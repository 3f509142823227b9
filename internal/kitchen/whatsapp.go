package kitchen

import "strings"

const whatsappCountryCode = "55"

// WhatsAppLink builds a wa.me link for a customer's phone number. Non-digits
// are stripped and the Brazilian country code is added when missing.
func WhatsAppLink(phone string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", false
	}
	if !strings.HasPrefix(digits, whatsappCountryCode) {
		digits = whatsappCountryCode + digits
	}
	return "https://wa.me/" + digits, true
}
