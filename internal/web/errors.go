package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/thywilljoshua/notescan/internal/ai"
	"github.com/thywilljoshua/notescan/internal/convert"
	"github.com/thywilljoshua/notescan/internal/extract"
	"github.com/thywilljoshua/notescan/internal/outline"
	"github.com/thywilljoshua/notescan/internal/populate"
)

var errSessionNotFound = errors.New("session not found or expired; upload the document again")

// requestError is a problem with the request itself, shown to the user as is.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps a pipeline error to the HTTP status shown with it.
func statusFor(err error) int {
	var (
		reqErr      *requestError
		invalid     *outline.InvalidOutlineError
		templateErr *populate.TemplateIncompatibleError
		tooLarge    *http.MaxBytesError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, extract.ErrInvalidPDF),
		errors.Is(err, populate.ErrUnknownFormat),
		errors.Is(err, convert.ErrNoInstruction),
		errors.Is(err, ai.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &invalid),
		errors.As(err, &templateErr),
		errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrOCRNotEnabled):
		return http.StatusNotImplemented
	case errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
