package routes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"wifski/job"
	"wifski/logger"
	"wifski/models"
	"wifski/sources"
	"wifski/utils"
)

const (
	videoField  = "video"
	sourceField = "source"

	// option fields are tiny; anything longer is truncated
	maxFieldBytes = 4 << 10
)

// ConvertHandler accepts a multipart upload and responds with the GIF.
func (s *Server) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorize(w, r) {
		return
	}

	id := utils.NewRequestID()
	w.Header().Set("X-Request-Id", id)
	logger.Debugf("Convert request %s: remoteAddr=%s", id, r.RemoteAddr)

	if s.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	inputPath, fields, err := s.readForm(mr, id)
	if inputPath != "" {
		defer os.Remove(inputPath)
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, fmt.Sprintf("Upload exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		logger.Warnf("Convert request %s: %v", id, err)
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}

	opts := models.ParseForm(fields)
	var res *job.Result
	switch {
	case inputPath != "":
		res, err = s.Processor.Convert(r.Context(), id, inputPath, opts)
	case fields[sourceField] != "" && s.Fetcher != nil:
		res, err = s.Processor.ConvertSource(r.Context(), id, s.Fetcher, fields[sourceField], opts)
	default:
		http.Error(w, "Video file not provided", http.StatusBadRequest)
		return
	}
	if err != nil {
		writeConvertError(w, err)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		logger.Warnf("Convert request %s: failed to write response: %v", id, err)
	}
}

// readForm streams the video part to scratch and collects the other fields.
// Repeated fields keep the last value; a repeated video part replaces the
// earlier upload.
func (s *Server) readForm(mr *multipart.Reader, id string) (string, map[string]string, error) {
	fields := make(map[string]string)
	inputPath := ""
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return inputPath, fields, nil
		}
		if err != nil {
			return inputPath, fields, err
		}

		name := part.FormName()
		switch {
		case name == videoField && part.FileName() != "":
			if inputPath != "" {
				os.Remove(inputPath)
			}
			inputPath = s.Processor.InputPath(id, part.FileName())
			if err := saveUpload(inputPath, part); err != nil {
				part.Close()
				return inputPath, fields, err
			}
		case name != "" && part.FileName() == "":
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			if err != nil {
				part.Close()
				return inputPath, fields, err
			}
			fields[name] = string(value)
		}
		part.Close()
	}
}

func saveUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *Server) verifyJWT(r *http.Request) error {
	token, err := utils.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	_, err = utils.VerifyConvertJWT(token, utils.VerifyConfig{
		SecretKey:      s.JWTSecret,
		ExpectedIssuer: s.JWTIssuer,
	})
	return err
}

// writeConvertError maps a pipeline error onto its HTTP response.
func writeConvertError(w http.ResponseWriter, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.Is(err, sources.ErrInvalidRef), errors.Is(err, sources.ErrUnknownBackend), errors.Is(err, sources.ErrBackendDisabled):
		status, msg = http.StatusBadRequest, "Invalid source reference"
	case errors.Is(err, models.ErrInputMissing):
		status, msg = http.StatusBadRequest, "Video file not provided"
	case errors.Is(err, models.ErrSourceFetchFailed):
		status, msg = http.StatusBadGateway, "Failed to fetch source video"
	case errors.Is(err, models.ErrPaletteGenerationFailed):
		msg = "Failed to generate palette"
	case errors.Is(err, models.ErrEncodeFailed):
		msg = "Failed to convert video"
	case errors.Is(err, models.ErrArtifactReadFailed):
		msg = "Failed to read GIF"
	case errors.Is(err, models.ErrArtifactCleanupFailed):
		msg = "Failed to clean up temporary files"
	}
	http.Error(w, msg, status)
}
