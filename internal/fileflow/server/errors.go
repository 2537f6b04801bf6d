package server

import (
	"errors"
	"fmt"
	"net/http"

	"fileflow/internal/fileflow/api"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// writeError maps a component error onto the wire envelope. Clients
// branch on the stable code, so each taxonomy type has exactly one
// code and status.
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	status, resp := classify(err)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Debug("request rejected", "code", resp.Error, "error", err)
	}

	if status == http.StatusRequestedRangeNotSatisfiable {
		var rangeErr *apperrors.InvalidRangeError
		if errors.As(err, &rangeErr) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
		}
	}

	writeJSON(w, status, resp)
}

func classify(err error) (int, *api.ErrorResponse) {
	var validation *apperrors.ValidationError
	if errors.As(err, &validation) {
		details := map[string]interface{}{}
		if validation.Field != "" {
			details["field"] = validation.Field
		}
		return http.StatusBadRequest, envelope(api.CodeValidation, err, details)
	}

	var notFound *apperrors.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, envelope(api.CodeNotFound, err, map[string]interface{}{
			"resource": notFound.Resource,
			"id":       notFound.ID,
		})
	}

	var missing *apperrors.MissingChunksError
	if errors.As(err, &missing) {
		return http.StatusConflict, envelope(api.CodeMissingChunks, err, map[string]interface{}{
			"missing": missing.Missing,
		})
	}

	var mismatch *apperrors.ChecksumMismatchError
	if errors.As(err, &mismatch) {
		return http.StatusUnprocessableEntity, envelope(api.CodeChecksumMismatch, err, map[string]interface{}{
			"chunkIndex": mismatch.ChunkIndex,
			"expected":   mismatch.Expected,
			"actual":     mismatch.Actual,
		})
	}

	var badRange *apperrors.InvalidRangeError
	if errors.As(err, &badRange) {
		return http.StatusRequestedRangeNotSatisfiable, envelope(api.CodeInvalidRange, err, map[string]interface{}{
			"start": badRange.Start,
			"end":   badRange.End,
			"size":  badRange.Size,
		})
	}

	var provider *apperrors.ProviderError
	if errors.As(err, &provider) {
		return http.StatusBadGateway, envelope(api.CodeProvider, err, map[string]interface{}{
			"provider":  provider.Provider,
			"operation": provider.Op,
		})
	}

	var unsupportedProvider *apperrors.UnsupportedProviderError
	if errors.As(err, &unsupportedProvider) {
		return http.StatusBadRequest, envelope(api.CodeUnsupportedProvider, err, map[string]interface{}{
			"provider": unsupportedProvider.Provider,
		})
	}

	var unsupportedKind *apperrors.UnsupportedKindError
	if errors.As(err, &unsupportedKind) {
		return http.StatusBadRequest, envelope(api.CodeUnsupportedKind, err, map[string]interface{}{
			"kind": unsupportedKind.Kind,
		})
	}

	return http.StatusInternalServerError, envelope(api.CodeInternal, err, nil)
}

func envelope(code string, err error, details map[string]interface{}) *api.ErrorResponse {
	if len(details) == 0 {
		details = nil
	}
	return &api.ErrorResponse{Error: code, Message: err.Error(), Details: details}
}
