package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	uidCookie      = "uid"
	uidCookieAge   = 2 * 24 * 60 * 60
	shutdownPeriod = 5 * time.Second
)

// NewRouter exposes the handler under /tree. Every endpoint is a GET
// with its arguments in the query string.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	tree := router.Group("/tree")
	tree.GET("/build", func(c *gin.Context) { serve(c, handler, OpBuild) })
	tree.GET("/step", func(c *gin.Context) { serve(c, handler, OpStep) })
	tree.GET("/back", func(c *gin.Context) { serve(c, handler, OpBack) })
	tree.GET("/query", func(c *gin.Context) { serve(c, handler, OpQuery) })
	tree.GET("/reset", func(c *gin.Context) { serve(c, handler, OpReset) })
	tree.GET("/updateStash", func(c *gin.Context) { serve(c, handler, OpStash) })
	tree.GET("/getState", func(c *gin.Context) { serve(c, handler, OpState) })
	tree.GET("/getData", func(c *gin.Context) { serve(c, handler, OpData) })

	return router
}

func serve(c *gin.Context, handler *Handler, op string) {
	req := Request{
		Op:            op,
		UID:           requestUID(c),
		Input:         c.Query("inputText"),
		Configuration: c.Query("configuration"),
		Path:          c.Query("path"),
		Ops:           c.Query("ops"),
		Stash:         c.Query("stash"),
	}
	c.SetCookie(uidCookie, req.UID, uidCookieAge, "/", "", false, true)

	res, err := handler.Handle(c.Request.Context(), req)
	if err != nil {
		logRequestError(req, err)
		res.Error = ErrorMessage(err)
		status := http.StatusInternalServerError
		if IsClientError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// requestUID takes the uid from the query string, then the cookie, and
// mints one when neither is set
func requestUID(c *gin.Context) string {
	if uid := c.Query("uid"); uid != "" {
		return uid
	}
	if uid, err := c.Cookie(uidCookie); err == nil && uid != "" {
		return uid
	}
	return uuid.NewString()
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// ServeHTTP serves the router on listener until ctx is done, then shuts
// down gracefully
func ServeHTTP(ctx context.Context, listener net.Listener, handler *Handler) error {
	server := &http.Server{
		Handler:           NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", slog.String("addr", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownPeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
