package invite

// Verdict is the outcome of one authorization check. Reason is for logging
// and auditing only; callers surface denials as a generic forbidden without
// policy detail.
type Verdict struct {
	Allowed bool
	Reason  string
}

func admit(reason string) Verdict {
	return Verdict{Allowed: true, Reason: reason}
}

func deny(reason string) Verdict {
	return Verdict{Allowed: false, Reason: reason}
}

// Outcome returns the verdict as a metrics label value.
func (v Verdict) Outcome() string {
	if v.Allowed {
		return "admit"
	}
	return "deny"
}
