package domain

// Unit identifies an instrumentable method: the owning type and the method name.
type Unit struct {
	Class  string `json:"class"`
	Method string `json:"method"`
}

// NewUnit creates a unit
func NewUnit(class, method string) Unit {
	return Unit{Class: class, Method: method}
}

// String renders the unit as Class.Method
func (u Unit) String() string {
	return u.Class + "." + u.Method
}

// IsZero reports whether the unit is unset
func (u Unit) IsZero() bool {
	return u.Class == "" && u.Method == ""
}
