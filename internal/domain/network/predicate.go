package network

// Predicate tests a network record.
type Predicate func(Record) bool

// And returns a predicate that requires all predicates to match.
func And(predicates ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range predicates {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Or returns a predicate that requires at least one predicate to match.
func Or(predicates ...Predicate) Predicate {
	return func(r Record) bool {
		for _, p := range predicates {
			if p(r) {
				return true
			}
		}
		return false
	}
}

// Not returns a predicate that inverts the given predicate.
func Not(p Predicate) Predicate {
	return func(r Record) bool {
		return !p(r)
	}
}

// Always returns a predicate that always matches.
func Always() Predicate {
	return func(Record) bool { return true }
}

// Never returns a predicate that never matches.
func Never() Predicate {
	return func(Record) bool { return false }
}

// IsPushed matches server-pushed records.
func IsPushed(r Record) bool {
	return r.Pushed()
}

// IsFailed matches records whose loading failed.
func IsFailed(r Record) bool {
	return r.Failed
}

// OfType matches records of the given resource type (Document, Script, ...).
func OfType(resourceType string) Predicate {
	return func(r Record) bool {
		return r.ResourceType == resourceType
	}
}

// Filter returns the records matching p, preserving order. It never returns nil.
func Filter(records []Record, p Predicate) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if p(r) {
			out = append(out, r)
		}
	}
	return out
}

// Pushed selects the records that carry push timing.
func Pushed(records []Record) []Record {
	return Filter(records, IsPushed)
}
