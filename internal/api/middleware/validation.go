package middleware

import (
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"audio-transcriber/internal/api/errors"
)

// ValidateMultipartForm binds the multipart fields of the request into req
// and checks its binding tags. The body is parsed with the engine's
// MaxMultipartMemory; larger file parts spill to disk. An oversized body is
// reported as 413 and a body cut off by the read deadline as 408.
func ValidateMultipartForm(c *gin.Context, req any) error {
	if _, err := c.MultipartForm(); err != nil {
		return classifyBodyError(err)
	}

	err := c.ShouldBindWith(req, binding.FormMultipart)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return classifyBodyError(err)
	}

	problems := make([]string, 0, len(validationErrs))
	for _, fieldError := range validationErrs {
		field := strings.ToLower(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			problems = append(problems, field+" is required")
		case "max":
			problems = append(problems, field+" is too long")
		default:
			problems = append(problems, field+" is invalid")
		}
	}
	sort.Strings(problems)
	return errors.NewBadRequestError("invalid_field", strings.Join(problems, "; "))
}

func classifyBodyError(err error) *errors.APIError {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewTooLargeError(fmt.Sprintf("upload exceeds %d bytes", maxBytesErr.Limit))
	}
	if isTimeout(err) {
		return errors.NewUploadTimeoutError("upload did not finish before the read deadline")
	}
	return errors.NewBadRequestError("invalid_upload", "request must be multipart/form-data")
}

func isTimeout(err error) bool {
	if stderrors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
