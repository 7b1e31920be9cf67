package directory

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PrincipalName builds the login name for a new account: first.last@domain, lower case.
// Names with fewer than two tokens fall back to the employee id.
func PrincipalName(name, employeeID, domain string) string {
	tokens := strings.Fields(name)

	var local string
	if len(tokens) >= 2 {
		local = sanitize(tokens[0]) + "." + sanitize(tokens[len(tokens)-1])
	}

	if len(tokens) < 2 || local == "." {
		local = sanitize(employeeID)
	}

	return strings.Trim(local, ".") + "@" + domain
}

// MailNickname is the local part of a principal name.
func MailNickname(principalName string) string {
	local, _, _ := strings.Cut(principalName, "@")
	return local
}

func sanitize(s string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}

	return b.String()
}
