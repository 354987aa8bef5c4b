package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func compressed(t *testing.T) http.Handler {
	t.Helper()
	r := gin.New()
	r.GET("/big", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"content": strings.Repeat("docbase ", 512)})
	})
	r.GET("/small", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	h, err := Compress(r, 1024)
	require.NoError(t, err)
	return h
}

func get(h http.Handler, path string, gz bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if gz {
		req.Header.Set("Accept-Encoding", "gzip")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCompress_GzipsLargeJSON(t *testing.T) {
	w := get(compressed(t), "/big", true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(body), "docbase docbase")
}

func TestCompress_LeavesOthersAlone(t *testing.T) {
	h := compressed(t)

	w := get(h, "/big", false)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.Contains(t, w.Body.String(), "docbase docbase")

	w = get(h, "/small", true)
	require.Empty(t, w.Header().Get("Content-Encoding"))
	require.JSONEq(t, `{"ok":true}`, w.Body.String())
}
