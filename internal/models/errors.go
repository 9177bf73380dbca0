package models

import "errors"

// DeliveryError wraps a transport failure. Permanent errors (invalid chat,
// blocked bot) skip the retry path and go straight to terminal failed.
type DeliveryError struct {
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Permanent {
		return "permanent delivery error: " + e.Err.Error()
	}
	return "delivery error: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err carries a permanent DeliveryError.
func IsPermanent(err error) bool {
	var derr *DeliveryError
	return errors.As(err, &derr) && derr.Permanent
}
