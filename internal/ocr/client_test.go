package ocr

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "act.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	return path
}

func TestRecognizeDecodesTables(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != recognizePath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "act.pdf" || string(body) != "%PDF-1.4" {
			t.Errorf("unexpected upload %q (%d bytes)", header.Filename, len(body))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"Акт","confidence":0.95,"tables":[{"headers":["Узел","Активная"],"rows":[["ТП-1",500]]}]}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(Options{Endpoint: srv.URL + "/", APIKey: "secret"})
	require.NoError(t, err)

	res, err := c.Recognize(context.Background(), writeFile(t))
	require.NoError(t, err)
	require.Equal(t, 0.95, res.Confidence)
	require.Len(t, res.Tables, 1)
	require.Equal(t, []string{"Узел", "Активная"}, res.Tables[0].Headers)
	require.Equal(t, []any{"ТП-1", 500.0}, res.Tables[0].Rows[0])
}

func TestRecognizeServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":"model unavailable"}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(Options{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.Recognize(context.Background(), writeFile(t))
	require.ErrorContains(t, err, "502")
	require.ErrorContains(t, err, "model unavailable")
}

func TestNewHTTPClientRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPClient(Options{Endpoint: "  "})
	require.True(t, errors.Is(err, ErrNotConfigured))
}
