package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/apperr"
	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
)

type response struct {
	Message string `json:"message"`
	Result  any    `json:"result,omitempty"`
}

func ok(c *gin.Context, msg string, result any) {
	c.JSON(http.StatusOK, response{Message: msg, Result: result})
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) register(c *gin.Context) {
	r := request(c)
	pair, err := s.accounts.Register(c.Request.Context(), services.RegisterInput{
		Name:        r.String("name"),
		Email:       r.String("email"),
		Password:    r.String("password"),
		DateOfBirth: r.Time("date_of_birth"),
	})
	if errors.Is(err, common.ErrEmailTaken) {
		// lost the race against a concurrent registration
		err = &apperr.ValidationError{Fields: map[string]apperr.FieldFailure{
			"email": {Msg: common.MsgEmailAlreadyExists, Value: r.Body["email"]},
		}}
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgRegisterSuccess, pair)
}

func (s *Server) login(c *gin.Context) {
	pair, err := s.accounts.Login(c.Request.Context(), request(c).User)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgLoginSuccess, pair)
}

func (s *Server) logout(c *gin.Context) {
	if _, err := s.accounts.Logout(c.Request.Context(), request(c).String("refresh_token")); err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgLogoutSuccess, nil)
}

func (s *Server) verifyEmail(c *gin.Context) {
	r := request(c)
	pair, err := s.accounts.VerifyEmail(c.Request.Context(), r.EmailVerify.UserID, r.String("email_verify_token"))
	if errors.Is(err, common.ErrAlreadyVerified) {
		ok(c, common.MsgEmailAlreadyVerifiedBefore, nil)
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgEmailVerifySuccess, pair)
}

func (s *Server) resendVerifyEmail(c *gin.Context) {
	if err := s.accounts.ResendVerifyEmail(c.Request.Context(), request(c).Access.UserID); err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgResendVerifyEmailSuccess, nil)
}

func (s *Server) forgotPassword(c *gin.Context) {
	if err := s.accounts.ForgotPassword(c.Request.Context(), request(c).User); err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgCheckEmailToResetPassword, nil)
}

func (s *Server) verifyForgotPassword(c *gin.Context) {
	ok(c, common.MsgVerifyForgotPasswordSuccess, nil)
}

func (s *Server) resetPassword(c *gin.Context) {
	r := request(c)
	err := s.accounts.ResetPassword(c.Request.Context(), r.ForgotPassword.UserID,
		r.String("forgot_password_token"), r.String("password"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgResetPasswordSuccess, nil)
}

func (s *Server) getMe(c *gin.Context) {
	p, err := s.accounts.GetMe(c.Request.Context(), request(c).Access.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgGetProfileSuccess, p)
}

func (s *Server) updateMe(c *gin.Context) {
	r := request(c)
	p, err := s.accounts.UpdateMe(c.Request.Context(), r.Access.UserID, r.Patch())
	if err != nil {
		_ = c.Error(err)
		return
	}
	ok(c, common.MsgUpdateProfileSuccess, p)
}
