package report

import (
	"strings"
)

// WhoisRecord is the structured subset of a registry answer.
type WhoisRecord struct {
	Domain      string
	Registrar   string
	Created     string
	Expires     string
	Updated     string
	NameServers []string
	Status      []string
}

// Empty reports whether the record carries no displayable field.
func (r WhoisRecord) Empty() bool {
	return r.Domain == "" && r.Registrar == "" && r.Created == "" && r.Expires == "" &&
		r.Updated == "" && len(r.NameServers) == 0 && len(r.Status) == 0
}

var whoisKeywords = []string{
	"domain name", "registrar", "creation date", "expiry date",
	"name server", "admin", "tech", "status", "updated date",
}

// FormatWhoisRecord renders a structured registry record. At most three name
// servers are shown.
func FormatWhoisRecord(target string, r WhoisRecord) string {
	out := []string{"🔍 Whois information for " + target + ":"}
	if r.Domain != "" {
		out = append(out, "📝 Domain: "+r.Domain)
	}
	if r.Registrar != "" {
		out = append(out, "🏢 Registrar: "+r.Registrar)
	}
	if r.Created != "" {
		out = append(out, "📅 Created: "+r.Created)
	}
	if r.Expires != "" {
		out = append(out, "⏰ Expires: "+r.Expires)
	}
	if r.Updated != "" {
		out = append(out, "🔄 Updated: "+r.Updated)
	}
	if len(r.NameServers) > 0 {
		ns := r.NameServers
		if len(ns) > 3 {
			ns = ns[:3]
		}
		out = append(out, "🌐 Name servers: "+strings.Join(ns, ", "))
	}
	if len(r.Status) > 0 {
		out = append(out, "📌 Status: "+strings.Join(r.Status, ", "))
	}
	return strings.Join(out, "\n")
}

// FilterWhois keeps the lines of raw registry output that mention a known
// field, skipping comments. When no line matches, the head of the raw output
// is returned instead.
func FilterWhois(target, raw string) string {
	var important []string
	for _, line := range lines(raw) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		lower := strings.ToLower(line)
		for _, keyword := range whoisKeywords {
			if strings.Contains(lower, keyword) {
				important = append(important, line)
				break
			}
		}
		if len(important) == MaxWhoisLines {
			break
		}
	}

	if len(important) == 0 {
		return "Raw whois data for " + target + ":\n" + Truncate(strings.TrimSpace(raw), MaxBodyChars)
	}
	return "🔍 Whois information for " + target + ":\n" + strings.Join(important, "\n")
}
