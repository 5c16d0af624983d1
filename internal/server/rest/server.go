// Package rest exposes the account commands over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address  string
	logger   logging.Logger
	accounts *services.AccountService
	gates    *validation.Validator
	engine   *gin.Engine
}

func NewServer(a string, l logging.Logger, accounts *services.AccountService, gates *validation.Validator) *Server {
	s := &Server{
		address:  a,
		logger:   l.With("module", "http_server"),
		accounts: accounts,
		gates:    gates,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthz)

	v := s.gates
	users := r.Group("/users", s.errorHandler(), s.parseRequest())
	users.POST("/register", s.gate(v.Register()), s.register)
	users.POST("/login", s.gate(v.Login()), s.login)
	users.POST("/logout", s.gate(v.AccessToken(), v.Logout()), s.logout)
	users.POST("/verify-email", s.gate(v.EmailVerifyToken()), s.verifyEmail)
	users.POST("/resend-verify-email", s.gate(v.AccessToken(), v.UnverifiedUser()), s.resendVerifyEmail)
	users.POST("/forgot-password", s.gate(v.ForgotPassword()), s.forgotPassword)
	users.POST("/verify-forgot-password", s.gate(v.ForgotPasswordToken()), s.verifyForgotPassword)
	users.POST("/reset-password", s.gate(v.ResetPassword()), s.resetPassword)
	users.GET("/me", s.gate(v.AccessToken()), s.getMe)
	users.PATCH("/me", s.gate(v.AccessToken(), v.VerifiedUser(), v.UpdateMe()), s.updateMe)

	return r
}

func (s *Server) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
