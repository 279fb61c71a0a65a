package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"audio-transcriber/internal/app/api/provider"
	"audio-transcriber/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := rec.Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	newRouter := func(cfg config.CORSConfig) *gin.Engine {
		router := gin.New()
		router.Use(CORS(cfg))
		router.POST("/transcribe", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	t.Run("wildcard", func(t *testing.T) {
		router := newRouter(config.Default().CORS)
		req := httptest.NewRequest(http.MethodPost, "/transcribe", nil)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("allow list with credentials", func(t *testing.T) {
		router := newRouter(config.CORSConfig{
			AllowOrigins:     []string{"https://app.example.com"},
			AllowMethods:     []string{"POST"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		})

		req := httptest.NewRequest(http.MethodOptions, "/transcribe", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))

		req = httptest.NewRequest(http.MethodPost, "/transcribe", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestStructuredLoggingSkipsHealth(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := gin.New()
	router.Use(RequestID(), StructuredLogging(zap.New(core)))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/providers", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/metrics", "/api/v1/providers"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "/api/v1/providers", entry.ContextMap()["path"])
	assert.EqualValues(t, http.StatusOK, entry.ContextMap()["status"])
	assert.NotEmpty(t, entry.ContextMap()["request_id"])
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	router := gin.New()
	router.Use(RequestID(), ErrorHandler(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "internal_error", body["code"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("Panic while handling request").Len())
}

func TestHandleError(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/fail", func(c *gin.Context) {
		HandleError(c, provider.Timeout("assemblyai", "transcription still processing", nil))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "transcription still processing", body["error"])
	assert.Equal(t, "transcription_timeout", body["code"])
	assert.NotContains(t, body, "transcript")
}

type form struct {
	Language string `form:"language" binding:"omitempty,max=5"`
}

func multipartRequest(t *testing.T, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestValidateMultipartForm(t *testing.T) {
	var got error
	var bound form
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		bound = form{}
		got = ValidateMultipartForm(c, &bound)
	})

	router.ServeHTTP(httptest.NewRecorder(), multipartRequest(t, map[string]string{"language": "en"}))
	require.NoError(t, got)
	assert.Equal(t, "en", bound.Language)

	router.ServeHTTP(httptest.NewRecorder(), multipartRequest(t, map[string]string{"language": "much-too-long"}))
	require.Error(t, got)
	assert.Contains(t, got.Error(), "language is too long")

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"language":"en"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(httptest.NewRecorder(), req)
	require.Error(t, got)
	assert.Contains(t, got.Error(), "multipart")
}

func fileUpload(t *testing.T, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "clip.wav")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x52}, size))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestValidateMultipartFormUsesEngineMemory(t *testing.T) {
	tests := []struct {
		name   string
		memory int64
		onDisk bool
	}{
		{"small memory spills to disk", 1 << 10, true},
		{"large memory stays in memory", 1 << 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var onDisk bool
			router := gin.New()
			router.MaxMultipartMemory = tt.memory
			router.POST("/", func(c *gin.Context) {
				var bound form
				require.NoError(t, ValidateMultipartForm(c, &bound))
				defer c.Request.MultipartForm.RemoveAll()

				header, err := c.FormFile("file")
				require.NoError(t, err)
				f, err := header.Open()
				require.NoError(t, err)
				defer f.Close()
				_, onDisk = f.(*os.File)
			})

			body, ct := fileUpload(t, 64<<10)
			req := httptest.NewRequest(http.MethodPost, "/", body)
			req.Header.Set("Content-Type", ct)
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.onDisk, onDisk)
		})
	}
}

// stalledReader yields its data and then fails like a conn past its read deadline
type stalledReader struct {
	r io.Reader
}

func (s *stalledReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == io.EOF {
		return n, os.ErrDeadlineExceeded
	}
	return n, err
}

func TestValidateMultipartFormReadDeadline(t *testing.T) {
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var bound form
		if err := ValidateMultipartForm(c, &bound); err != nil {
			HandleError(c, err)
		}
	})

	body, ct := fileUpload(t, 64<<10)
	partial := bytes.NewReader(body.Bytes()[:body.Len()/2])
	req := httptest.NewRequest(http.MethodPost, "/", &stalledReader{r: partial})
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, "upload_timeout", decodeBody(t, rec)["code"])
}
