package model

import "fmt"

// DataUnavailableError reports that the upstream could not supply a usable series.
type DataUnavailableError struct {
	Instrument string
	Kind       MarketKind
	Cause      error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("data unavailable for %s (%s): %v", e.Instrument, e.Kind, e.Cause)
}

func (e *DataUnavailableError) Unwrap() error { return e.Cause }

// InsufficientDataError reports fewer usable observations than required.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %d usable returns, need %d", e.Have, e.Need)
}

// DegenerateDistributionError reports a sample no density can be fitted to.
type DegenerateDistributionError struct {
	Reason string
}

func (e *DegenerateDistributionError) Error() string {
	return "degenerate distribution: " + e.Reason
}
