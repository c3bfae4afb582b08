package analysis

import (
	"errors"
	"fmt"

	"MarketPsyche/internal/model"
)

// Stage names a step of the analysis pipeline.
type Stage string

const (
	StageFetching     Stage = "fetching"
	StageBuilding     Stage = "building"
	StageEstimating   Stage = "estimating"
	StageMapping      Stage = "mapping"
	StageScoring      Stage = "scoring"
	StageClassifying  Stage = "classifying"
	StageInterpreting Stage = "interpreting"
	StageCached       Stage = "cached"
)

// Kind is a stable, machine-readable failure category.
type Kind string

const (
	KindDataUnavailable        Kind = "data_unavailable"
	KindInsufficientData       Kind = "insufficient_data"
	KindDegenerateDistribution Kind = "degenerate_distribution"
	KindInvalidRequest         Kind = "invalid_request"
	KindInternal               Kind = "internal"
)

var kindMessages = map[Kind]string{
	KindDataUnavailable:        "market data unavailable",
	KindInsufficientData:       "not enough price history for analysis",
	KindDegenerateDistribution: "flat market, analysis not meaningful",
	KindInvalidRequest:         "invalid request: %s",
	KindInternal:               "analysis failed",
}

// Error is the outward failure of Engine.Analyze.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func invalidRequest(detail string, err error) *Error {
	return &Error{
		Kind:    KindInvalidRequest,
		Stage:   StageFetching,
		Message: fmt.Sprintf(kindMessages[KindInvalidRequest], detail),
		Err:     err,
	}
}

// newError classifies err by its typed cause.
func newError(stage Stage, err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	kind := KindInternal
	var (
		du *model.DataUnavailableError
		id *model.InsufficientDataError
		dd *model.DegenerateDistributionError
	)
	switch {
	case errors.As(err, &du):
		kind = KindDataUnavailable
	case errors.As(err, &id):
		kind = KindInsufficientData
	case errors.As(err, &dd):
		kind = KindDegenerateDistribution
	}
	return &Error{Kind: kind, Stage: stage, Message: kindMessages[kind], Err: err}
}
