package rest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	s := &Server{logger: logging.Nop{}}

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "validation",
			err:    &apperr.ValidationError{Fields: map[string]apperr.FieldFailure{"email": {Msg: "bad", Value: "x"}}},
			status: http.StatusUnprocessableEntity,
			body:   `{"message":"Validation error","errors":{"email":{"msg":"bad","value":"x"}}}`,
		},
		{
			name:   "status",
			err:    fmt.Errorf("wrapped: %w", apperr.Forbidden(common.MsgUserNotVerified)),
			status: http.StatusForbidden,
			body:   `{"message":"User not verified"}`,
		},
		{
			name:   "consumed token",
			err:    common.ErrTokenConsumed,
			status: http.StatusUnauthorized,
			body:   `{"message":"Token is invalid"}`,
		},
		{
			name:   "user gone",
			err:    common.ErrUserNotFound,
			status: http.StatusNotFound,
			body:   `{"message":"User not found"}`,
		},
		{
			name:   "unexpected",
			err:    errors.New("db error: connection refused"),
			status: http.StatusInternalServerError,
			body:   `{"message":"db error: connection refused"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			s.writeError(c, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
