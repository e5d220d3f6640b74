package handler

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/limbomc/limbo/internal/metrics"
	gonet "github.com/limbomc/limbo/internal/net"
	"github.com/limbomc/limbo/internal/net/packet"
	"go.uber.org/zap"
)

// NewConnectionHandler returns the per-connection entry point for the
// listener. It drives the phase sequence and logs how the connection ended.
func NewConnectionHandler(deps *Deps) gonet.HandlerFunc {
	return func(conn *gonet.Conn) {
		handleConnection(conn, deps)
	}
}

func handleConnection(conn *gonet.Conn, deps *Deps) {
	log := conn.Log()
	log.Debug("Accepted connection")

	err := safeRun(conn, deps)

	var timeout *gonet.ReadTimeoutError
	switch reason, isDisconnect := gonet.DisconnectReason(err); {
	case err == nil:
		deps.Metrics.Disconnects.WithLabelValues(metrics.OutcomeCompleted).Inc()
		log.Debug("Connection finished")
	case isDisconnect:
		deps.Metrics.Disconnects.WithLabelValues(metrics.OutcomeDisconnect).Inc()
		log.Debug("Connection closed by server", zap.String("reason", reason))
	case gonet.IsConnectionClosed(err):
		deps.Metrics.Disconnects.WithLabelValues(metrics.OutcomeClosed).Inc()
		log.Debug("Connection closed by peer")
	case errors.As(err, &timeout):
		deps.Metrics.Disconnects.WithLabelValues(metrics.OutcomeTimeout).Inc()
		log.Error("Connection failed", zap.Error(err))
	default:
		deps.Metrics.Disconnects.WithLabelValues(metrics.OutcomeError).Inc()
		log.Error("Connection failed", zap.Error(err))
	}
}

// safeRun turns a handler panic into an error so one bad client cannot
// take the server down.
func safeRun(conn *gonet.Conn, deps *Deps) (err error) {
	defer func() {
		if r := recover(); r != nil {
			conn.Log().Error("Handler panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return run(conn, deps)
}

func run(conn *gonet.Conn, deps *Deps) error {
	next, err := HandleHandshake(conn, deps)
	if err != nil {
		return err
	}

	switch next {
	case packet.PhaseStatus:
		status, err := conn.Advance(packet.PhaseStatus)
		if err != nil {
			return err
		}
		return HandleStatus(status, deps)

	case packet.PhaseLogin:
		login, err := conn.Advance(packet.PhaseLogin)
		if err != nil {
			return err
		}
		configuration, p, err := HandleLogin(login, deps)
		if err != nil {
			return err
		}
		defer deps.Players.Release(p)

		game, err := HandleConfiguration(configuration, p, deps)
		if err != nil {
			return err
		}
		return HandleGame(game, p, deps)

	default:
		return fmt.Errorf("handshake returned unexpected phase %s", next)
	}
}
