package driver

import "errors"

// ErrSessionClosed is returned by a Page whose browser is gone. It ends a lookup at once
// instead of counting as a miss.
var ErrSessionClosed = errors.New("browser session closed")

type ElementNotFoundError struct {
	What string
}

func (e *ElementNotFoundError) Error() string {
	return "could not find " + e.What
}

type ContactNotFoundError struct {
	Phone string
}

func (e *ContactNotFoundError) Error() string {
	return "contact " + e.Phone + " not found"
}

// IsDeliveryError reports whether err belongs to the per-contact failure taxonomy.
func IsDeliveryError(err error) bool {
	var en *ElementNotFoundError
	var cn *ContactNotFoundError
	return errors.As(err, &en) || errors.As(err, &cn)
}
