package permissions

// Slot selects which of the two account-data documents holds a user's
// permission config. The deployment keeps one per operating mode so that a
// server reclassified between modes does not inherit the other mode's
// policy.
type Slot int

const (
	// SlotPro is the practitioner-mode document.
	SlotPro Slot = iota
	// SlotEPA is the insured-person-mode document.
	SlotEPA
)

const (
	proAccountDataType = "de.gematik.tim.account.defaultpermissions.pro.v1"
	epaAccountDataType = "de.gematik.tim.account.defaultpermissions.epa.v1"
)

// AccountDataType returns the account-data type key backing the slot.
func (s Slot) AccountDataType() string {
	if s == SlotEPA {
		return epaAccountDataType
	}
	return proAccountDataType
}

func (s Slot) String() string {
	if s == SlotEPA {
		return "epa"
	}
	return "pro"
}
