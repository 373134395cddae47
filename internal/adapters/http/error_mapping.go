package httpadapter

import (
	"net/http"

	"github.com/podoring/wine-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrWineNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
