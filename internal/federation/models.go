// Package federation acquires and evaluates the signed federation domain
// list. The list is the authoritative registry of domains permitted to
// federate, each entry tagged with whether it serves an insured-person
// population.
package federation

// Domain is one entry of the federation list as published by the list
// operator. Only timAnbieter may be absent.
type Domain struct {
	Domain      string  `json:"domain"`
	TelematikID string  `json:"telematikID"`
	TIMAnbieter *string `json:"timAnbieter"`
	IsInsurance bool    `json:"isInsurance"`
}

// List is a verified federation list together with its derived lookup sets.
// The sets are computed once in NewList and never mutated afterwards, so a
// *List can be shared between goroutines freely.
type List struct {
	Domains []Domain

	onList    map[string]struct{}
	insurance map[string]struct{}
}

// NewList builds a List and eagerly computes the deduplicated domain set and
// the insurance-only subset.
func NewList(domains []Domain) *List {
	l := &List{
		Domains:   domains,
		onList:    make(map[string]struct{}, len(domains)),
		insurance: make(map[string]struct{}),
	}
	for _, d := range domains {
		l.onList[d.Domain] = struct{}{}
		if d.IsInsurance {
			l.insurance[d.Domain] = struct{}{}
		}
	}
	return l
}

// Allowed reports whether the domain appears on the federation list.
func (l *List) Allowed(domain string) bool {
	_, ok := l.onList[domain]
	return ok
}

// IsInsurance reports whether the domain is designated 'isInsurance'.
func (l *List) IsInsurance(domain string) bool {
	_, ok := l.insurance[domain]
	return ok
}

// Len returns the number of raw entries (duplicates included).
func (l *List) Len() int {
	return len(l.Domains)
}
