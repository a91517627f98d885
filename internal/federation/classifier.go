package federation

import "context"

// ListSource is the slice of Fetcher the classifier depends on.
type ListSource interface {
	Fetch(ctx context.Context) (*List, error)
	Invalidate()
}

// Classifier answers the two membership questions for a domain. Both
// predicates get one mandated fresh look on a miss: the source list can
// change between checks, and a domain not yet listed deserves a refetch
// before being denied. Fetch failures propagate; the predicate never fails
// open.
type Classifier struct {
	source ListSource
}

// NewClassifier constructs a Classifier over a list source.
func NewClassifier(source ListSource) *Classifier {
	return &Classifier{source: source}
}

// IsAllowed reports whether the domain is permitted to federate.
func (c *Classifier) IsAllowed(ctx context.Context, domain string) (bool, error) {
	return c.checkWithRetry(ctx, domain, (*List).Allowed)
}

// IsInsurance reports whether the domain is designated as insured-person.
func (c *Classifier) IsInsurance(ctx context.Context, domain string) (bool, error) {
	return c.checkWithRetry(ctx, domain, (*List).IsInsurance)
}

func (c *Classifier) checkWithRetry(ctx context.Context, domain string, predicate func(*List, string) bool) (bool, error) {
	list, err := c.source.Fetch(ctx)
	if err != nil {
		return false, err
	}
	if predicate(list, domain) {
		return true, nil
	}

	// One fresh look before the final answer.
	c.source.Invalidate()
	list, err = c.source.Fetch(ctx)
	if err != nil {
		return false, err
	}
	return predicate(list, domain), nil
}
