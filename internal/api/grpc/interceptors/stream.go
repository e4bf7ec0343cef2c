package interceptors

import (
	"io"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// wrappedServerStream оборачивает grpc.ServerStream для логирования каждого сообщения
type wrappedServerStream struct {
	grpc.ServerStream
	log logrus.FieldLogger
}

// RecvMsg логирует входящие сообщения
func (w *wrappedServerStream) RecvMsg(m interface{}) error {
	err := w.ServerStream.RecvMsg(m)
	switch {
	case err == io.EOF:
		w.log.Debug("stream recv: EOF")
	case err != nil:
		w.log.WithError(err).Warn("stream recv failed")
	default:
		w.log.Debugf("stream recv: %T", m)
	}
	return err
}

// SendMsg логирует исходящие сообщения
func (w *wrappedServerStream) SendMsg(m interface{}) error {
	err := w.ServerStream.SendMsg(m)
	if err != nil {
		w.log.WithError(err).Warn("stream send failed")
	} else {
		w.log.Debugf("stream send: %T", m)
	}
	return err
}

// StreamInterceptor логирует установление стрима, каждое сообщение и его завершение
func StreamInterceptor(log logrus.FieldLogger) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		entry := log.WithField("method", info.FullMethod)
		entry.Info("stream established")

		err := handler(srv, &wrappedServerStream{ServerStream: ss, log: entry})
		if err != nil {
			entry.WithError(err).Warn("stream failed")
		} else {
			entry.Info("stream completed")
		}
		return err
	}
}
