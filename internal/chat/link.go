// Package chat builds the deep link that opens a WhatsApp conversation with
// the assistant.
package chat

import (
	"net/url"

	"github.com/pathakanu/claudia/internal/phone"
)

const baseURL = "https://wa.me/"

// Link returns the wa.me link for number with an optional pre-filled message.
// It returns an empty string when number has no digits.
func Link(number, message string) string {
	digits := phone.Digits(number)
	if digits == "" {
		return ""
	}
	link := baseURL + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}
