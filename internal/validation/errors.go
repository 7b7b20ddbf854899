package validation

import "errors"

// Validation errors
var (
	ErrReferenceDataMissing    = errors.New("reference data missing")
	ErrMalformedReferenceEntry = errors.New("malformed reference entry")
	ErrInvalidDistribution     = errors.New("invalid revenue distribution")
	ErrInvalidConfig           = errors.New("invalid generator configuration")
	ErrInvalidFilter           = errors.New("invalid filter criteria")
)
