package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"billed/internal/bills"
	"billed/internal/core"
	"billed/internal/routes"
	"billed/internal/session"
	"billed/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	st := memory.New()
	sess := session.NewMemoryStore()
	if err := session.SeedUser(sess, session.User{Email: "a@a", Type: "Employee"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	mgr := bills.NewManager(st, st, sess, nil, nil)
	rtr := bills.NewRetriever(st, sess)
	srv := NewServer(":0", mgr, rtr, st, st, sess, 10<<20)
	t.Cleanup(func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return srv
}

func multipartReceipt(t *testing.T, fileName string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadReceipt(t *testing.T, srv *Server, fileName string) core.Attachment {
	t.Helper()

	body, contentType := multipartReceipt(t, fileName)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bills/receipt", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rr.Code, rr.Body.String())
	}

	var att core.Attachment
	if err := json.Unmarshal(rr.Body.Bytes(), &att); err != nil {
		t.Fatalf("decode attachment: %v", err)
	}
	return att
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rr.Code)
		}
	}
}

func TestUploadReceipt(t *testing.T) {
	srv := newTestServer(t)

	att := uploadReceipt(t, srv, "receipt.png")
	if att.BillID == "" {
		t.Fatal("expected a bill identifier in the attachment")
	}
	if att.FileName != "receipt.png" {
		t.Fatalf("FileName = %q, want receipt.png", att.FileName)
	}
	if att.FileURL == "" {
		t.Fatal("expected a stored file URL")
	}
}

func TestUploadReceiptRejectsExtension(t *testing.T) {
	srv := newTestServer(t)

	body, contentType := multipartReceipt(t, "malware.jpg.exe")
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bills/receipt", body)
	req.Header.Set("Content-Type", contentType)
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "valid extension") {
		t.Fatalf("body %s does not carry the validation message", rr.Body.String())
	}
}

func TestUploadReceiptMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/bills/receipt", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}

func submitBill(t *testing.T, srv *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestSubmitBillAndList(t *testing.T) {
	srv := newTestServer(t)
	att := uploadReceipt(t, srv, "hotel.jpeg")

	rr := submitBill(t, srv, url.Values{
		"type":       {"Hôtel et logement"},
		"name":       {"encore"},
		"amount":     {"400"},
		"date":       {"2004-04-04"},
		"vat":        {"80"},
		"pct":        {""},
		"commentary": {"séminaire billed"},
		"key":        {att.BillID},
		"fileUrl":    {att.FileURL},
		"fileName":   {att.FileName},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("HX-Redirect"); got != routes.Bills {
		t.Fatalf("HX-Redirect = %q, want %q", got, routes.Bills)
	}

	listRR := httptest.NewRecorder()
	listReq := httptest.NewRequest(http.MethodGet, "/bills", nil)
	srv.Handler.ServeHTTP(listRR, listReq)
	if listRR.Code != http.StatusOK {
		t.Fatalf("list status = %d", listRR.Code)
	}

	var views []core.BillView
	if err := json.Unmarshal(listRR.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode bill list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len(views) = %d, want 1", len(views))
	}
	if views[0].Date != "4 Avr. 04" {
		t.Fatalf("Date = %q, want 4 Avr. 04", views[0].Date)
	}
	if views[0].Status != "En attente" {
		t.Fatalf("Status = %q, want En attente", views[0].Status)
	}
	if views[0].Pct != 20 {
		t.Fatalf("Pct = %d, want default 20", views[0].Pct)
	}
}

func TestSubmitBillInvalidAmount(t *testing.T) {
	srv := newTestServer(t)
	att := uploadReceipt(t, srv, "taxi.png")

	rr := submitBill(t, srv, url.Values{
		"type":   {"Transports"},
		"name":   {"taxi"},
		"amount": {"not-a-number"},
		"date":   {"2023-01-01"},
		"key":    {att.BillID},
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	if rr.Header().Get("HX-Redirect") != "" {
		t.Fatal("a rejected submission must not navigate")
	}
}

func TestListCacheInvalidatedOnSubmit(t *testing.T) {
	srv := newTestServer(t)
	att := uploadReceipt(t, srv, "first.png")

	// Prime the cache with an empty list.
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}

	sub := submitBill(t, srv, url.Values{
		"type":   {"Transports"},
		"name":   {"vol"},
		"amount": {"120"},
		"date":   {"2023-04-25"},
		"key":    {att.BillID},
	})
	if sub.Code != http.StatusCreated {
		t.Fatalf("submit status = %d", sub.Code)
	}

	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills", nil))
	var views []core.BillView
	if err := json.Unmarshal(rr.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode bill list: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("len(views) = %d, want 1 after cache invalidation", len(views))
	}
}

func TestBillPreview(t *testing.T) {
	srv := newTestServer(t)
	att := uploadReceipt(t, srv, "justificatif.jpg")

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills/"+att.BillID+"/preview", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("preview status = %d, body %s", rr.Code, rr.Body.String())
	}

	var out map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if out["url"] == "" {
		t.Fatal("expected a preview URL")
	}
}

func TestBillPreviewUnknownBill(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/bills/nope/preview", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestNotificationsEmpty(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Fatalf("body = %s, want empty array", body)
	}
}
