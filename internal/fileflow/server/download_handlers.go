package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"fileflow/internal/fileflow/api"
	"fileflow/internal/fileflow/mappers"
	"fileflow/pkg/buffer"
	apperrors "fileflow/pkg/errors"
)

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("fileId")
	log := s.logger.WithFields("operation", "download", "fileId", fileID)

	start, end, ranged, err := parseRangeHeader(r.Header.Get("Range"))
	if err != nil {
		writeError(w, log, err)
		return
	}

	if start < 0 {
		// suffix range: map the last -start bytes onto [size-n, size-1]
		info, err := s.downloads.FileInfo(fileID)
		if err != nil {
			writeError(w, log, err)
			return
		}
		n := -start
		if n >= info.Size {
			start, end = 0, apperrors.WholeFile
		} else {
			start, end = info.Size-n, info.Size-1
		}
	}

	rc, resolved, file, err := s.downloads.Open(r.Context(), fileID, start, end)
	if err != nil {
		writeError(w, log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	w.Header().Set("Content-Length", strconv.FormatInt(resolved.Length(), 10))

	if ranged {
		w.Header().Set("Content-Range",
			fmt.Sprintf("bytes %d-%d/%d", resolved.Start, resolved.End, file.Size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if _, err := buffer.Copy(w, rc); err != nil {
		// headers are gone; all we can do is note the broken stream
		log.Warn("download stream aborted", "error", err)
	}
}

func (s *Server) handleDownloadInit(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithField("operation", "download-init")

	var req api.DownloadInitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, log, err)
		return
	}

	file, entries, err := s.downloads.Manifest(req.FileID, req.ChunkSize)
	if err != nil {
		writeError(w, log, err)
		return
	}

	chunkSize := req.ChunkSize
	if chunkSize == 0 {
		chunkSize = s.cfg.Download.DefaultChunkSize
	}

	writeJSON(w, http.StatusOK, mappers.ManifestToResponse(file, chunkSize, entries))
}

// parseRangeHeader understands single-range "bytes=a-b", open-ended
// "bytes=a-" and suffix "bytes=-n" forms. An absent header selects the
// whole file. A suffix range returns a negative start carrying the
// suffix length; the handler resolves it against the file size. Bounds
// checking against the file size happens downstream.
func parseRangeHeader(header string) (start, end int64, ranged bool, err error) {
	if header == "" {
		return 0, apperrors.WholeFile, false, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return 0, 0, false, apperrors.Validationf("Range", "unsupported range header %q", header)
	}

	from, to, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, false, apperrors.Validationf("Range", "unsupported range header %q", header)
	}

	if from == "" {
		n, err := strconv.ParseInt(to, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false, apperrors.Validationf("Range", "malformed suffix range %q", header)
		}
		return -n, apperrors.WholeFile, true, nil
	}

	start, err = strconv.ParseInt(from, 10, 64)
	if err != nil {
		return 0, 0, false, apperrors.Validationf("Range", "malformed range start %q", from)
	}

	if to == "" {
		return start, apperrors.WholeFile, true, nil
	}

	end, err = strconv.ParseInt(to, 10, 64)
	if err != nil {
		return 0, 0, false, apperrors.Validationf("Range", "malformed range end %q", to)
	}

	return start, end, true, nil
}
