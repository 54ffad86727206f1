package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"finagent/internal/agent"
	"finagent/internal/log"
)

const receiptFailedMessage = "Could not extract expense details from receipt"

// receiptResponse is the body of both receipt routes. ExpenseData is always
// present on upload and omitted on a failed upload-and-save.
type receiptResponse struct {
	Success     bool               `json:"success"`
	Message     string             `json:"message"`
	ExpenseData *agent.ReceiptData `json:"expense_data"`
	ExpenseID   string             `json:"expense_id,omitempty"`
	Filename    string             `json:"filename,omitempty"`
}

type receiptFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// readReceipt returns the uploaded image from the "file" form field.
func (s *Server) readReceipt(w http.ResponseWriter, r *http.Request) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.receiptMaxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, newHTTPError(http.StatusRequestEntityTooLarge, "Receipt image too large")
		}
		return nil, nil, newHTTPError(http.StatusUnprocessableEntity, "A receipt image is required in the file field")
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return nil, nil, newHTTPError(http.StatusBadRequest, "Only image files are allowed")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, newHTTPError(http.StatusInternalServerError, "Error processing receipt: %v", err)
	}
	return data, header, nil
}

func (s *Server) handleReceiptUpload(w http.ResponseWriter, r *http.Request) {
	data, header, err := s.readReceipt(w, r)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	receipt := s.agent.ExtractReceipt(r.Context(), data, header.Header.Get("Content-Type"))
	if receipt == nil {
		writeJSON(w, http.StatusOK, receiptResponse{Message: receiptFailedMessage})
		return
	}
	writeJSON(w, http.StatusOK, receiptResponse{
		Success:     true,
		Message:     "Receipt processed successfully",
		ExpenseData: receipt,
		Filename:    header.Filename,
	})
}

func (s *Server) handleReceiptUploadAndSave(w http.ResponseWriter, r *http.Request) {
	data, header, err := s.readReceipt(w, r)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	receipt := s.agent.ExtractReceipt(r.Context(), data, header.Header.Get("Content-Type"))
	if receipt == nil {
		writeJSON(w, http.StatusOK, receiptFailure{Message: receiptFailedMessage})
		return
	}
	created, err := s.agent.SaveReceipt(r.Context(), *receipt, header.Filename)
	if err != nil {
		writeError(w, r, newHTTPError(http.StatusInternalServerError, "Error processing receipt: %v", err), http.StatusBadRequest)
		return
	}
	s.logger.InfoContext(r.Context(), "Receipt saved", log.FieldExpenseID, created.ID, log.FieldMerchant, created.Merchant)
	writeJSON(w, http.StatusOK, receiptResponse{
		Success:     true,
		Message:     "Receipt processed and expense created",
		ExpenseData: receipt,
		ExpenseID:   created.ID,
		Filename:    header.Filename,
	})
}
