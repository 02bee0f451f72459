package utils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"  Run a marathon  ":                   "Run a marathon",
		"<script>alert(1)</script>Learn piano": "Learn piano",
		"<b>Save</b> $500 & invest":            "Save $500 & invest",
		"Tom's \"big\" goal":                   "Tom's \"big\" goal",
		"<img src=x onerror=alert(1)>":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Sanitize(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}

func TestRollingFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gin.log")
	l, err := NewRollingFileLogger(path, "info", 0, 0, 0, false)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("visible", zap.String("path", "/api/health"))
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"visible"`)
	assert.NotContains(t, string(b), "hidden")
}

func TestGinzapAndRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(RequestIDKey, "req-1"); c.Next() })
	r.Use(Ginzap(l, "2006-01-02T15:04:05Z07:00", true), RecoveryWithZap(l, false))
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error","code":50000}`, w.Body.String())

	require.Equal(t, 1, logs.FilterMessage("[Recovery from panic]").Len())
	access := logs.FilterMessage("/boom").All()
	require.Len(t, access, 1)
	assert.Equal(t, "req-1", access[0].ContextMap()["request_id"])
	assert.EqualValues(t, http.StatusInternalServerError, access[0].ContextMap()["status"])
}
