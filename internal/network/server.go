package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
)

// ListenAndServe starts the TCP server on addr and serves until ctx is done
func ListenAndServe(ctx context.Context, addr string, handler *Handler) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}
	return Serve(ctx, listener, handler)
}

// Serve accepts connections on listener until ctx is done. Each
// connection speaks newline-delimited JSON: one Request in, one
// Response out.
func Serve(ctx context.Context, listener net.Listener, handler *Handler) error {
	slog.Info("tcp server listening", slog.String("addr", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			slog.Error("failed to accept connection", slog.Any("error", err))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			handleConnection(ctx, conn, handler)
		}()
	}
}

func handleConnection(ctx context.Context, conn net.Conn, handler *Handler) {
	defer conn.Close()

	// unblock the decoder on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return
			}
			slog.Error("decode error", slog.Any("error", err))
			_ = encoder.Encode(&Response{Error: fmt.Sprintf("Invalid request format: %v", err)})
			return
		}

		if req.Op == OpExit {
			return
		}

		res, err := handler.Handle(ctx, req)
		if err != nil {
			logRequestError(req, err)
			res.Error = ErrorMessage(err)
		}
		if err := encoder.Encode(res); err != nil {
			slog.Error("encode error", slog.Any("error", err))
			return
		}
	}
}

func logRequestError(req Request, err error) {
	if IsClientError(err) {
		slog.Info("request rejected",
			slog.String("op", req.Op),
			slog.String("uid", req.UID),
			slog.Any("error", err),
		)
		return
	}
	slog.Error("request failed",
		slog.String("op", req.Op),
		slog.String("uid", req.UID),
		slog.Any("error", err),
	)
}
