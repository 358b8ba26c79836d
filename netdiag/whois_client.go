package netdiag

import (
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/petal-labs/netprobe/report"
)

// LikexianWhois queries registry servers directly over the whois protocol.
type LikexianWhois struct {
	client *whois.Client
}

// NewWhoisClient returns a whois client with the given network timeout.
func NewWhoisClient(timeout time.Duration) *LikexianWhois {
	return &LikexianWhois{client: whois.NewClient().SetTimeout(timeout)}
}

// Whois returns the raw answer for target, following referrals.
func (c *LikexianWhois) Whois(target string) (string, error) {
	return c.client.Whois(target)
}

// ParseWhoisRecord extracts the structured fields from a raw answer. ok is
// false when the answer cannot be parsed or carries no displayable field.
func ParseWhoisRecord(raw string) (report.WhoisRecord, bool) {
	info, err := whoisparser.Parse(raw)
	if err != nil {
		return report.WhoisRecord{}, false
	}

	var record report.WhoisRecord
	if d := info.Domain; d != nil {
		record.Domain = d.Domain
		record.Created = d.CreatedDate
		record.Expires = d.ExpirationDate
		record.Updated = d.UpdatedDate
		record.NameServers = nonEmpty(d.NameServers)
		record.Status = nonEmpty(d.Status)
	}
	if r := info.Registrar; r != nil {
		record.Registrar = r.Name
		if record.Registrar == "" {
			record.Registrar = r.Organization
		}
	}
	return record, !record.Empty()
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
