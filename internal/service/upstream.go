package service

import (
	"errors"
	"net/http"

	"github.com/noah-isme/academy-gateway/pkg/academy"
	appErrors "github.com/noah-isme/academy-gateway/pkg/errors"
)

// upstreamError maps a backend failure to a typed error, keeping the server message when there is one.
func upstreamError(err error, fallback string) error {
	var apiErr *academy.APIError
	if !errors.As(err, &apiErr) {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, fallback)
	}
	message := apiErr.Message
	if message == "" {
		message = fallback
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, message)
	case http.StatusForbidden:
		return appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, message)
	case http.StatusNotFound:
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	default:
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, message)
	}
}
