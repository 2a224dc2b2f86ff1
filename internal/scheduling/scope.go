package scheduling

// Scope restricts an interval to a set of departments and levels. An empty
// scope blocks (or admits) everyone; a tagged scope only binds the listed
// identifiers, so courses outside the tag may still use a slot derived next
// to the tagged interval.
type Scope struct {
	Departments []string
	Levels      []string
}

// IsZero reports whether the scope carries no restriction at all.
func (s Scope) IsZero() bool {
	return len(s.Departments) == 0 && len(s.Levels) == 0
}

// Admits reports whether a course for the given department and level may use
// a slot carrying this scope. Each dimension is checked independently: an
// empty tag set admits everyone, a non-empty set admits only its members.
func (s Scope) Admits(departmentID, levelID string) bool {
	return tagAdmits(s.Departments, departmentID) && tagAdmits(s.Levels, levelID)
}

func tagAdmits(tags []string, id string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		if tag == id {
			return true
		}
	}
	return false
}

// FilterByScope narrows candidate slots to those admissible for the target
// department and level. Level and department checks commute; both are applied.
func FilterByScope(slots []Slot, departmentID, levelID string) []Slot {
	admissible := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.Scope.Admits(departmentID, levelID) {
			admissible = append(admissible, slot)
		}
	}
	return admissible
}
