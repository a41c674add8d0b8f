package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
)

// apiError maps a domain error to its HTTP representation. Unknown errors
// become opaque 500s; details stay in the log.
func (s *Server) apiError(err error) error {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return huma.NewError(domainErr.HTTPStatus(), domainErr.Message)
	}
	s.logger.Error("unhandled error", "error", err)
	return huma.NewError(http.StatusInternalServerError, "internal server error")
}
