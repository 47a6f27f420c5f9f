package stream

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/drblury/schemaflow/internal/ids"
	"github.com/drblury/schemaflow/internal/logging"
)

// MiddlewareRegistration captures how a middleware is registered on the
// router: either a ready middleware or a builder that needs the Service.
type MiddlewareRegistration struct {
	Name       string
	Middleware message.HandlerMiddleware
	Builder    func(*Service) (message.HandlerMiddleware, error)
}

// DefaultMiddlewares returns the standard chain. There is deliberately no
// retry middleware: the tolerant wrap path cannot fail, and redelivery of
// nacked messages belongs to the transport, not to this process.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogMessagesMiddleware(),
		MetricsMiddleware(),
		TracerMiddleware(),
		RecovererMiddleware(),
	}
}

// RegisterMiddleware attaches the supplied middleware to the router.
func (s *Service) RegisterMiddleware(reg MiddlewareRegistration) error {
	var mw message.HandlerMiddleware
	switch {
	case reg.Middleware != nil:
		mw = reg.Middleware
	case reg.Builder != nil:
		var err error
		mw, err = reg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.router.AddMiddleware(mw)
	return nil
}

// CorrelationIDMiddleware injects a correlation ID into the message metadata
// when missing.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "correlation_id",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				if _, ok := msg.Metadata["correlation_id"]; !ok {
					msg.Metadata["correlation_id"] = ids.NewID()
				}
				return h(msg)
			}
		},
	}
}

// LogMessagesMiddleware logs every processed message at debug level.
func LogMessagesMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_messages",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			return func(h message.HandlerFunc) message.HandlerFunc {
				return func(msg *message.Message) ([]*message.Message, error) {
					s.logger.Debug("processing message", logging.LogFields{
						"message_uuid": msg.UUID,
						"payload":      string(msg.Payload),
						"metadata":     msg.Metadata,
					})
					return h(msg)
				}
			}, nil
		},
	}
}

// MetricsMiddleware adds Prometheus router metrics when a metrics port is
// configured.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (message.HandlerMiddleware, error) {
			if s.conf.MetricsPort <= 0 {
				return nil, nil
			}

			metricsBuilder := metrics.NewPrometheusMetricsBuilder(
				prometheus.DefaultRegisterer,
				"schemaflow",
				s.conf.Transport,
			)
			metricsBuilder.AddPrometheusRouterMetrics(s.router)
			s.metricsHandler = promhttp.Handler()

			return metricsBuilder.NewRouterMiddleware().Middleware, nil
		},
	}
}

// TracerMiddleware wraps handler execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(h message.HandlerFunc) message.HandlerFunc {
			return func(msg *message.Message) ([]*message.Message, error) {
				tracer := otel.Tracer("schemaflow")
				ctx, span := tracer.Start(msg.Context(), "AttachSchema")
				defer span.End()
				msg.SetContext(ctx)

				span.SetAttributes(
					attribute.String("message.uuid", msg.UUID),
				)
				return h(msg)
			}
		},
	}
}

// RecovererMiddleware converts handler panics into errors so a poisonous
// message nacks instead of killing the worker.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "recoverer",
		Middleware: middleware.Recoverer,
	}
}
