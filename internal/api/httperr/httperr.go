// Package httperr maps domain errors onto HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/triage/internal/domain"
)

var statuses = []struct {
	err    error
	status int
}{
	{domain.ErrSessionNotFound, http.StatusNotFound},
	{domain.ErrJobNotFound, http.StatusNotFound},
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrSessionAlreadyComplete, http.StatusBadRequest},
	{domain.ErrSessionIncomplete, http.StatusBadRequest},
	{domain.ErrUnknownCorpus, http.StatusBadRequest},
	{domain.ErrPipelineInFlight, http.StatusConflict},
}

// Status returns the HTTP status for err
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Write sends err as a JSON error body
func Write(c *gin.Context, err error) {
	c.JSON(Status(err), gin.H{
		"error": err.Error(),
		"kind":  domain.ErrorKind(err),
	})
}
