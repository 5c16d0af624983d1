package rest

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const requestKey = "accountkeeper.request"

var errBadBody = apperr.NewStatus(http.StatusBadRequest, "Request body must be a JSON object")

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// errorHandler writes the last error recorded on the context.
func (s *Server) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		s.writeError(c, c.Errors.Last().Err)
	}
}

// parseRequest decodes the JSON body, if any, into the request the gates
// inspect.
func (s *Server) parseRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := map[string]any{}
		if c.Request.Body != nil {
			raw, err := io.ReadAll(c.Request.Body)
			if err != nil {
				abort(c, err)
				return
			}
			if len(raw) > 0 {
				if err := binding.JSON.BindBody(raw, &body); err != nil {
					abort(c, errBadBody)
					return
				}
			}
		}
		c.Set(requestKey, validation.NewRequest(body, c.GetHeader(common.AuthorizationHeaderName)))
		c.Next()
	}
}

// gate runs gates in order against the parsed request.
func (s *Server) gate(gates ...validation.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := validation.Chain(c.Request.Context(), request(c), gates...); err != nil {
			abort(c, err)
			return
		}
		c.Next()
	}
}

func request(c *gin.Context) *validation.Request {
	return c.MustGet(requestKey).(*validation.Request)
}

func abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

type errorResponse struct {
	Message string                         `json:"message"`
	Errors  map[string]apperr.FieldFailure `json:"errors,omitempty"`
}

func (s *Server) writeError(c *gin.Context, err error) {
	if ve, ok := apperr.AsValidation(err); ok {
		c.JSON(ve.Status(), errorResponse{Message: common.MsgValidationError, Errors: ve.Fields})
		return
	}
	if se, ok := apperr.AsStatus(err); ok {
		c.JSON(se.Status, errorResponse{Message: se.Message})
		return
	}

	switch {
	case errors.Is(err, common.ErrTokenConsumed):
		c.JSON(http.StatusUnauthorized, errorResponse{Message: common.MsgTokenInvalid})
	case errors.Is(err, common.ErrUserNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Message: common.MsgUserNotFound})
	case errors.Is(err, common.ErrAlreadyVerified):
		c.JSON(http.StatusConflict, errorResponse{Message: common.MsgUserIsVerified})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Message: err.Error()})
	}
}
