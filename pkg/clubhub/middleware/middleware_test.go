package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (l *captureLogger) add(level, msg string, a ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lines == nil {
		l.lines = map[string][]string{}
	}
	l.lines[level] = append(l.lines[level], fmt.Sprintf(msg, a...))
}

func (l *captureLogger) Debugf(msg string, a ...any) { l.add("debug", msg, a...) }
func (l *captureLogger) Infof(msg string, a ...any)  { l.add("info", msg, a...) }
func (l *captureLogger) Warnf(msg string, a ...any)  { l.add("warn", msg, a...) }
func (l *captureLogger) Errorf(msg string, a ...any) { l.add("error", msg, a...) }

func setupTestRouter(log *captureLogger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger(log), CORS([]string{"http://app.test"}))
	r.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "nope"})
	})
	r.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	return r
}

func TestRequestIDIsGenerated(t *testing.T) {
	r := setupTestRouter(&captureLogger{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/ok", nil))

	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(HeaderRequestID)
	require.Len(t, id, 36)
	require.Contains(t, w.Body.String(), id)
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := setupTestRouter(&captureLogger{})

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestLoggerLevels(t *testing.T) {
	log := &captureLogger{}
	r := setupTestRouter(log)

	for _, path := range []string{"/ok", "/missing", "/boom"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	require.Len(t, log.lines["info"], 1)
	require.Contains(t, log.lines["info"][0], "GET /ok 200")
	require.Len(t, log.lines["warn"], 1)
	require.Contains(t, log.lines["warn"][0], "GET /missing 404")
	require.Len(t, log.lines["error"], 1)
	require.Contains(t, log.lines["error"][0], "GET /boom 500")
}

func TestCORSPreflight(t *testing.T) {
	r := setupTestRouter(&captureLogger{})

	req := httptest.NewRequest("OPTIONS", "/ok", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	r := setupTestRouter(&captureLogger{})

	req := httptest.NewRequest("GET", "/ok", nil)
	req.Header.Set("Origin", "http://evil.test")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
