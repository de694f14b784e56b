package organizations

import "strings"

// disposableDomains lists known throwaway-email providers. Invites to these
// domains are rejected before any other invite check runs.
var disposableDomains = map[string]struct{}{
	"10minutemail.com":    {},
	"dispostable.com":     {},
	"fakeinbox.com":       {},
	"getnada.com":         {},
	"guerrillamail.com":   {},
	"guerrillamail.net":   {},
	"mailinator.com":      {},
	"maildrop.cc":         {},
	"mintemail.com":       {},
	"mytemp.email":        {},
	"sharklasers.com":     {},
	"spamgourmet.com":     {},
	"temp-mail.org":       {},
	"tempmail.com":        {},
	"tempmailaddress.com": {},
	"throwawaymail.com":   {},
	"trashmail.com":       {},
	"yopmail.com":         {},
}

// IsDisposableEmail reports whether the address belongs to a known
// disposable-email provider. Matching is case-insensitive and tolerant of
// surrounding whitespace.
func IsDisposableEmail(email string) bool {
	addr := strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return false
	}
	_, ok := disposableDomains[addr[at+1:]]
	return ok
}
