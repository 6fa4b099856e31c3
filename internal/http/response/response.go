package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnlab-assistant/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// DataEnvelope is the success shape the chatbot client expects.
type DataEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondClassified renders err with the status and code apierr assigns to it.
// Unclassified errors become a 500 with fallbackCode and a generic message.
func RespondClassified(c *gin.Context, err error, fallbackCode string) {
	status, code := apierr.Classify(err, fallbackCode)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		RespondError(c, status, code, nil)
		return
	}
	RespondError(c, status, code, err)
}

func RespondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataEnvelope{Success: true, Data: data})
}
