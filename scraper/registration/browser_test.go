package registration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classconnect-scraper/utils"
)

func TestNewBrowserLoaderFailsWithoutBrowser(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-chrome")

	loader, err := NewBrowserLoader("http://127.0.0.1", missing, time.Second, nil, utils.NewNopLogger())
	require.Error(t, err)
	assert.Nil(t, loader)
	assert.Contains(t, strings.Join(errors.GetAllHints(err), " "), "CHROME_BIN")
}

func TestBrowserLoaderKeepsSessionAcrossPages(t *testing.T) {
	bin := findChromeBinary()
	if bin == "" {
		t.Skip("no Chrome or Chromium binary available")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(inputPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "abc", Path: "/"})
		_, _ = w.Write([]byte(searchFormHTML))
	})
	mux.HandleFunc(searchPath, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("JSESSIONID"); err != nil || c.Value != "abc" {
			_, _ = w.Write([]byte(`<html><body><p id="session">missing</p></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><body><p id="session">present</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	loader, err := NewBrowserLoader(srv.URL, bin, 20*time.Second, nil, utils.NewNopLogger())
	require.NoError(t, err)
	defer loader.Close()

	ctx := context.Background()
	form, err := loader.Load(ctx, inputPath, nil)
	require.NoError(t, err)
	assert.Len(t, parseTerms(form), 2)

	page, err := loader.Load(ctx, searchPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "present", page.Find("#session").Text())
}
