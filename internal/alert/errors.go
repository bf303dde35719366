package alert

import "errors"

// Sentinel errors for alert delivery.
var (
	ErrTargetNotFound   = errors.New("alert target not found")
	ErrDeliveryNotFound = errors.New("alert delivery not found")
)
