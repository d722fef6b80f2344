package entity

// Enum is implemented by string-backed enumeration types that know their
// full value set, typically mirroring a database enum column.
//
//	type Status string
//
//	const (
//	    StatusActive   Status = "active"
//	    StatusDisabled Status = "disabled"
//	)
//
//	func (Status) Values() []string {
//	    return []string{string(StatusActive), string(StatusDisabled)}
//	}
type Enum interface {
	Values() []string
}

// ValidEnum reports whether value is one of the enum's declared values.
func ValidEnum(e Enum, value string) bool {
	for _, v := range e.Values() {
		if v == value {
			return true
		}
	}
	return false
}
