package http

import (
	"errors"
	"net/http"
	"strings"

	"billed/internal/bills"
	"billed/internal/core"
	applog "billed/internal/log"
	"billed/internal/session"
)

// handleUploadReceipt accepts a multipart upload of a receipt image,
// validates its extension and stores it. The response carries the attachment
// the subsequent submission must echo back.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "receipt file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing receipt file")
		return
	}
	defer file.Close()

	att, err := s.manager.ValidateAndUpload(r.Context(), header.Filename, file, header.Size)
	switch {
	case errors.Is(err, core.ErrInvalidExtension):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, session.ErrNoUser):
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return
	case err != nil:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Receipt upload error", "file_name", header.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "receipt upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, att)
}

// handleBills dispatches the bill collection endpoint: POST submits a new
// bill, GET lists the current user's bills.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmitBill(w, r)
	case http.MethodGet:
		s.handleListBills(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmitBill(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	form := bills.BillForm{
		Type:       sanitizeInput(r.Form.Get("type")),
		Name:       sanitizeInput(r.Form.Get("name")),
		Amount:     strings.TrimSpace(r.Form.Get("amount")),
		Date:       strings.TrimSpace(r.Form.Get("date")),
		VAT:        strings.TrimSpace(r.Form.Get("vat")),
		Pct:        strings.TrimSpace(r.Form.Get("pct")),
		Commentary: sanitizeInput(r.Form.Get("commentary")),
	}
	att := core.Attachment{
		BillID:   strings.TrimSpace(r.Form.Get("key")),
		FileURL:  strings.TrimSpace(r.Form.Get("fileUrl")),
		FileName: strings.TrimSpace(r.Form.Get("fileName")),
	}

	// The navigation target is handed back to the client as a redirect
	// header; it is set whether or not persistence succeeded.
	mgr := s.manager.WithNavigator(func(path string) {
		w.Header().Set("HX-Redirect", path)
	})

	bill, err := mgr.Submit(r.Context(), form, att)
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	case errors.Is(err, session.ErrNoUser):
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return
	case err != nil:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Bill submission error", "name", form.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "bill submission failed")
		return
	}

	s.listCache.Delete(bill.Email)
	writeJSON(w, http.StatusCreated, bill)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	user, err := session.CurrentUser(s.session)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return
	}

	if views, ok := s.listCache.Get(user.Email); ok {
		writeJSON(w, http.StatusOK, views)
		return
	}

	views, err := s.retriever.GetBills(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Bill list error", "email", user.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "bill list retrieval failed")
		return
	}
	if views == nil {
		views = []core.BillView{}
	}

	s.listCache.Set(user.Email, views)
	writeJSON(w, http.StatusOK, views)
}

// handleBillPreview resolves /bills/{id}/preview to a short-lived URL for
// the stored receipt image.
func (s *Server) handleBillPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/bills/")
	billID, ok := strings.CutSuffix(rest, "/preview")
	if !ok || billID == "" || strings.Contains(billID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	url, err := s.previews.PreviewURL(r.Context(), billID)
	if err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Receipt preview failed", "bill_id", billID, "error", err)
		writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	user, err := session.CurrentUser(s.session)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "no authenticated user")
		return
	}

	list, err := s.notifications.ListNotifications(r.Context(), user.Email)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Notification list error", "email", user.Email, "error", err)
		writeError(w, http.StatusInternalServerError, "notification list retrieval failed")
		return
	}
	if list == nil {
		list = []core.Notification{}
	}

	writeJSON(w, http.StatusOK, list)
}
