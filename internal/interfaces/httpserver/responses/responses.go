package responses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// MockModeSuffix is appended to envelope messages while the fixture store serves requests.
const MockModeSuffix = " (mock mode)"

// Envelope is the success body of every messaging endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Total   *int   `json:"total,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse documents the error body for swagger.
type ErrorResponse = platformerrors.HTTPErrorResponse

// Writer renders envelopes and errors. mockMode decorates every message.
type Writer struct {
	mockMode bool
	log      zerolog.Logger
}

func NewWriter(mockMode bool, log zerolog.Logger) *Writer {
	return &Writer{mockMode: mockMode, log: log}
}

// MockMode reports whether the fixture store is active.
func (w *Writer) MockMode() bool {
	return w.mockMode
}

// Logger returns the logger errors are written to.
func (w *Writer) Logger() zerolog.Logger {
	return w.log
}

// OK writes a 200 envelope.
func (w *Writer) OK(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Message: w.decorate(message)})
}

// OKWithTotal writes a 200 envelope carrying a total count.
func (w *Writer) OKWithTotal(c *gin.Context, data any, total int, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Total: &total, Message: w.decorate(message)})
}

// Error maps err to a status code and writes {detail}.
func (w *Writer) Error(c *gin.Context, err error) {
	platformerrors.WriteError(c, err, w.log)
}

func (w *Writer) decorate(message string) string {
	if w.mockMode {
		return message + MockModeSuffix
	}
	return message
}
