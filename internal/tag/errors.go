package tag

import "fmt"

// MissingAttributeError is returned when a required attribute was never set.
type MissingAttributeError struct {
	Element   string
	Attribute string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("element <%s> is missing required attribute %q", e.Element, e.Attribute)
}
