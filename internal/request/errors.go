package request

import (
	"errors"
	"net/http"

	"github.com/noah-isme/match-video-api/internal/common"
)

// TransactionError reports a failure inside the atomic write group. Nothing
// written by the attempt survives it.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	if e == nil || e.Err == nil {
		return "submission transaction failed"
	}
	return "submission transaction failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

var errTournamentGone = errors.New("tournament disappeared before usage update")

func submissionFailed(err error) *common.AppError {
	return &common.AppError{
		Code:       common.CodeSubmissionFailed,
		Message:    "request could not be saved, please resubmit",
		HTTPStatus: http.StatusInternalServerError,
		Err:        &TransactionError{Err: err},
	}
}

// resultLabel classifies a Submit error for metrics.
func resultLabel(err error) string {
	var (
		vErr  *common.ValidationError
		nfErr *common.NotFoundError
		txErr *TransactionError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &vErr):
		return "validation"
	case errors.As(err, &nfErr):
		return "not_found"
	case errors.As(err, &txErr):
		return "tx_failed"
	default:
		return "error"
	}
}
