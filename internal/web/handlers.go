package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ginjaninja78/loyalty-normalizer/internal/config"
	"github.com/ginjaninja78/loyalty-normalizer/internal/converter"
	"github.com/ginjaninja78/loyalty-normalizer/internal/logging"
	"github.com/ginjaninja78/loyalty-normalizer/internal/types"
	"github.com/ginjaninja78/loyalty-normalizer/internal/xlsxparser"
	"github.com/ginjaninja78/loyalty-normalizer/pkg/utils"
)

// File types reported to clients.
const (
	fileTypeCSV     = "csv"
	fileTypeExcel   = "excel"
	fileTypeUnknown = "unknown"
)

// maxJSONBody caps the process request bodies.
const maxJSONBody = 1 << 20

var (
	errBadFileID     = errors.New("invalid file id")
	errUploadMissing = errors.New("uploaded file not found")
)

// fileTypeOf classifies an upload by its extension.
func fileTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return fileTypeCSV
	case ".xlsx", ".xls":
		return fileTypeExcel
	default:
		return fileTypeUnknown
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// =============================================================================
// UPLOAD
// =============================================================================

type uploadResponse struct {
	Success      bool   `json:"success"`
	FileID       string `json:"fileId"`
	FileType     string `json:"fileType"`
	OriginalName string `json:"originalName"`
}

// handleUpload stores the multipart field "file" in the upload directory
// under a fresh id. The id keeps the original extension so the decoder can
// be picked later.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if maxSize := s.cfg.Server.MaxUploadBytes; maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	fileID := uuid.NewString() + ext

	if err := s.storeUpload(file, fileID); err != nil {
		logging.FromContext(r.Context()).Error("failed to store upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Error storing file")
		return
	}

	logging.FromContext(r.Context()).Info("file uploaded",
		"file_id", fileID,
		"original_name", header.Filename,
		"size", header.Size,
	)

	writeJSON(w, uploadResponse{
		Success:      true,
		FileID:       fileID,
		FileType:     fileTypeOf(header.Filename),
		OriginalName: header.Filename,
	})
}

func (s *Server) storeUpload(src multipart.File, fileID string) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return err
	}

	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, fileID))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// resolveUpload maps a file id back to the stored upload. Only ids handed
// out by handleUpload are accepted.
func (s *Server) resolveUpload(fileID string) (string, error) {
	ext := filepath.Ext(fileID)
	id, err := uuid.Parse(strings.TrimSuffix(fileID, ext))
	if err != nil || id.String()+ext != fileID {
		return "", errBadFileID
	}

	path, err := utils.ResolveInDir(s.cfg.UploadDir, fileID)
	if err != nil {
		return "", errBadFileID
	}
	if !utils.FileExists(path) {
		return "", errUploadMissing
	}
	return path, nil
}

// =============================================================================
// PROCESS
// =============================================================================

// processRequest carries the transaction slots at the top level, the way
// the upload form posts them.
type processRequest struct {
	FileID   string `json:"fileId"`
	FileType string `json:"fileType"`
	types.ColumnMapping
}

type processResponse struct {
	Success             bool   `json:"success"`
	DownloadURL         string `json:"downloadUrl"`
	ContactsDownloadURL string `json:"contactsDownloadUrl"`
	TransactionCount    int    `json:"transactionCount"`
	ContactsCount       int    `json:"contactsCount"`
	SkippedRows         int    `json:"skippedRows"`
}

// handleProcess runs the combined mode on an uploaded file.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mapping := types.ColumnMapping{
		Mobile:         req.Mobile,
		BillNumber:     req.BillNumber,
		BillAmount:     req.BillAmount,
		OrderTime:      req.OrderTime,
		PointsEarned:   req.PointsEarned,
		PointsRedeemed: req.PointsRedeemed,
	}

	result, ok := s.run(w, r, req.FileID, req.FileType, config.ModeCombined, mapping)
	if !ok {
		return
	}

	writeJSON(w, processResponse{
		Success:             true,
		DownloadURL:         downloadURL(result.OutputFiles.Transactions),
		ContactsDownloadURL: downloadURL(result.OutputFiles.Contacts),
		TransactionCount:    result.Stats.TransactionsWritten,
		ContactsCount:       result.Stats.ContactsWritten,
		SkippedRows:         result.Stats.RowsSkipped,
	})
}

type contactsRequest struct {
	FileID        string              `json:"fileId"`
	FileType      string              `json:"fileType"`
	ColumnMapping types.ColumnMapping `json:"columnMapping"`
}

type contactsResponse struct {
	Success       bool           `json:"success"`
	DownloadURL   string         `json:"downloadUrl"`
	TotalContacts int            `json:"totalContacts"`
	SkippedRows   int            `json:"skippedRows"`
	ColumnMapping map[string]int `json:"columnMapping"`
}

// handleProcessContacts runs the contacts mode on an uploaded file. Contact
// columns missing from the request are inferred from the header.
func (s *Server) handleProcessContacts(w http.ResponseWriter, r *http.Request) {
	var req contactsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, ok := s.run(w, r, req.FileID, req.FileType, config.ModeContacts, req.ColumnMapping)
	if !ok {
		return
	}

	used := make(map[string]int)
	for _, slot := range result.Mapping.ContactSlots() {
		if slot.Position.IsSet() {
			used[slot.Name] = int(slot.Position)
		}
	}

	writeJSON(w, contactsResponse{
		Success:       true,
		DownloadURL:   downloadURL(result.OutputFiles.Contacts),
		TotalContacts: result.Stats.ContactsWritten,
		SkippedRows:   result.Stats.RowsSkipped,
		ColumnMapping: used,
	})
}

// run resolves the upload and converts it. On failure the error response
// is already written and ok is false.
func (s *Server) run(w http.ResponseWriter, r *http.Request, fileID, fileType, mode string, mapping types.ColumnMapping) (converter.Result, bool) {
	logger := logging.WithFields(r.Context(), "file_id", fileID, "mode", mode)

	path, err := s.resolveUpload(fileID)
	switch {
	case errors.Is(err, errBadFileID):
		writeError(w, http.StatusBadRequest, "Invalid file id")
		return converter.Result{}, false
	case errors.Is(err, errUploadMissing):
		writeError(w, http.StatusNotFound, "File not found")
		return converter.Result{}, false
	}

	if fileType == fileTypeUnknown || fileTypeOf(path) == fileTypeUnknown {
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return converter.Result{}, false
	}

	result := converter.New(path, s.cfg, converter.Options{
		Mode:     mode,
		Mapping:  mapping,
		Settings: s.cfg.CSVSettings,
		Logger:   logger,
	}).Run(r.Context())

	if !result.Success {
		if errors.Is(result.Error, converter.ErrUnsupportedFileType) ||
			errors.Is(result.Error, xlsxparser.ErrLegacyFormat) {
			writeError(w, http.StatusBadRequest, "Unsupported file type")
			return result, false
		}
		logger.Error("processing failed", "error", result.Error)
		writeError(w, http.StatusInternalServerError, "Error processing file")
		return result, false
	}

	return result, true
}

func downloadURL(path string) string {
	if path == "" {
		return ""
	}
	return "/download/" + filepath.Base(path)
}

// =============================================================================
// DOWNLOAD
// =============================================================================

// handleDownload serves a generated file from the output directory. Only
// bare file names are accepted.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	path, err := utils.ResolveInDir(s.cfg.OutputDir, name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file name")
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}
