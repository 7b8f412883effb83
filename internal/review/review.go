// Package review decides whether requested subdomain names are acceptable and
// how urgent support tickets are. Rule-based implementations always work; an
// LLM-backed implementation can sit in front of them.
package review

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Verdict is the outcome of a name review.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// NameReviewer judges a requested subdomain label.
type NameReviewer interface {
	ReviewName(ctx context.Context, label string) (Verdict, error)
}

// TicketInput is what a prioritizer sees of a ticket.
type TicketInput struct {
	Title       string
	Description string
	UserType    string
}

// Priority is a 1..10 urgency score with a short justification.
type Priority struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Prioritizer scores support tickets.
type Prioritizer interface {
	Prioritize(ctx context.Context, in TicketInput) (Priority, error)
}

// DefaultBlockedTerms are rejected anywhere inside a label.
var DefaultBlockedTerms = []string{
	"fuck", "shit", "bitch", "cunt", "nigger", "nigga", "faggot", "porn", "xxx",
	"nazi", "hitler", "whore", "slut", "pussy",
}

// ReservedLabels are names the platform keeps for itself.
var ReservedLabels = []string{
	"www", "mail", "ftp", "cpanel", "webmail", "whm", "admin", "api", "ns1", "ns2", "smtp", "imap", "pop",
}

// Blocklist is a rule-based NameReviewer.
type Blocklist struct {
	Terms    []string
	Reserved []string
}

// NewBlocklist returns a Blocklist with the default terms.
func NewBlocklist() *Blocklist {
	return &Blocklist{Terms: DefaultBlockedTerms, Reserved: ReservedLabels}
}

var leet = strings.NewReplacer("0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "@", "a", "$", "s")

func (b *Blocklist) ReviewName(_ context.Context, label string) (Verdict, error) {
	l := strings.ToLower(label)
	for _, r := range b.Reserved {
		if l == r {
			return Verdict{Allowed: false, Reason: "This subdomain is reserved."}, nil
		}
	}
	squashed := leet.Replace(strings.ReplaceAll(l, "-", ""))
	for _, term := range b.Terms {
		if strings.Contains(squashed, term) || strings.Contains(strings.ReplaceAll(l, "-", ""), term) {
			return Verdict{Allowed: false, Reason: "This subdomain is not allowed."}, nil
		}
	}
	return Verdict{Allowed: true, Reason: "Name looks fine."}, nil
}

type keywordWeight struct {
	re     *regexp.Regexp
	weight int
	label  string
}

var ticketKeywords = []keywordWeight{
	{regexp.MustCompile(`(?i)\b(down|outage|offline|not loading|unreachable|502|503|500)\b`), 4, "site outage"},
	{regexp.MustCompile(`(?i)\b(hack(ed)?|malware|breach|phish(ing)?|compromised)\b`), 5, "security incident"},
	{regexp.MustCompile(`(?i)\b(payment|charged|refund|billing|invoice)\b`), 3, "billing problem"},
	{regexp.MustCompile(`(?i)\b(email|smtp|mailbox)\b`), 2, "email issue"},
	{regexp.MustCompile(`(?i)\b(dns|ssl|certificate|domain)\b`), 2, "domain or SSL issue"},
	{regexp.MustCompile(`(?i)\b(urgent|asap|immediately|critical)\b`), 1, "marked urgent"},
	{regexp.MustCompile(`(?i)\b(question|how do i|how to|feature request)\b`), -1, "general question"},
}

// Heuristic is a keyword-based Prioritizer.
type Heuristic struct{}

func (Heuristic) Prioritize(_ context.Context, in TicketInput) (Priority, error) {
	text := in.Title + "\n" + in.Description
	score := 3
	var reasons []string
	for _, k := range ticketKeywords {
		if k.re.MatchString(text) {
			score += k.weight
			reasons = append(reasons, k.label)
		}
	}
	if in.UserType == "paying" {
		score += 2
		reasons = append(reasons, "paying customer")
	}
	score = clampScore(score)
	if len(reasons) == 0 {
		return Priority{Score: score, Reason: "No urgency signals found."}, nil
	}
	sort.Strings(reasons)
	return Priority{Score: score, Reason: "Signals: " + strings.Join(reasons, ", ") + "."}, nil
}

func clampScore(s int) int {
	if s < 1 {
		return 1
	}
	if s > 10 {
		return 10
	}
	return s
}
