// Package stream wires resolved routes to a watermill router: one handler
// per route, consuming the input topic, preserving tombstones, applying the
// tolerant schema wrap, and publishing to the output topic. The package owns
// no transformation logic; delivery guarantees, partition assignment, and
// redelivery are the router's and the transport's business.
package stream

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/drblury/schemaflow/internal/config"
	"github.com/drblury/schemaflow/internal/ids"
	"github.com/drblury/schemaflow/internal/logging"
	"github.com/drblury/schemaflow/internal/routes"
	"github.com/drblury/schemaflow/internal/transport"
	"github.com/drblury/schemaflow/internal/wrap"
)

// Dependencies holds optional collaborators for NewService. Zero value picks
// the defaults.
type Dependencies struct {
	// TransportRegistry overrides the global registry, mainly for tests.
	TransportRegistry *transport.Registry
	// Middlewares are appended after the default middleware chain.
	Middlewares []MiddlewareRegistration
	// DisableDefaultMiddlewares skips the default chain when true.
	DisableDefaultMiddlewares bool
}

// Service owns the router, the transport pair, and the wrapper shared by all
// route handlers.
type Service struct {
	conf   *config.Config
	logger logging.ServiceLogger

	publisher  message.Publisher
	subscriber message.Subscriber
	router     *message.Router
	wrapper    *wrap.Wrapper

	metricsHandler http.Handler
}

// NewService builds the transport for the configured backend and prepares a
// router with the middleware chain. Register routes on the returned Service
// before calling Run.
func NewService(ctx context.Context, conf *config.Config, logger logging.ServiceLogger, deps Dependencies) (*Service, error) {
	if conf == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	registry := deps.TransportRegistry
	if registry == nil {
		registry = transport.DefaultRegistry
	}

	// The output topic must see messages in input-partition order. A
	// transport that cannot promise that is unusable here, whatever else
	// it supports.
	if registry.Has(conf.Transport) {
		if caps := registry.Capabilities(conf.Transport); !caps.SupportsOrdering {
			return nil, fmt.Errorf("transport %q does not guarantee ordering", conf.Transport)
		}
	}

	wmLogger := logging.NewWatermillAdapter(logger)

	tr, err := registry.Build(ctx, conf, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("build transport: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	router.AddPlugin(plugin.SignalsHandler)

	s := &Service{
		conf:       conf,
		logger:     logger,
		publisher:  tr.Publisher,
		subscriber: tr.Subscriber,
		router:     router,
		wrapper:    wrap.NewWrapper(logger),
	}

	var registrations []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		registrations = DefaultMiddlewares()
	}
	registrations = append(registrations, deps.Middlewares...)
	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			return nil, fmt.Errorf("register middleware %s: %w", reg.Name, err)
		}
	}

	return s, nil
}

// RegisterRoutes registers one pipeline handler per route.
func (s *Service) RegisterRoutes(routeList []*routes.Route) error {
	for _, route := range routeList {
		if err := s.RegisterRoute(route); err != nil {
			return err
		}
	}
	return nil
}

// RegisterRoute attaches a handler consuming the route's input topic and
// publishing to its output topic.
func (s *Service) RegisterRoute(route *routes.Route) error {
	if route == nil {
		return fmt.Errorf("route is required")
	}

	s.logger.Info("registering route", logging.LogFields{
		"input_topic":  route.InputTopic,
		"output_topic": route.OutputTopic,
		"schema_name":  route.Schema.Name,
	})

	s.router.AddHandler(
		"attach-schema_"+route.InputTopic,
		route.InputTopic,
		s.subscriber,
		route.OutputTopic,
		s.publisher,
		s.routeHandler(route),
	)

	return nil
}

// routeHandler is the 1:1, in-order, key-preserving map stage for one route.
func (s *Service) routeHandler(route *routes.Route) message.HandlerFunc {
	logger := s.logger.With(logging.LogFields{
		"input_topic":  route.InputTopic,
		"output_topic": route.OutputTopic,
	})

	return func(msg *message.Message) ([]*message.Message, error) {
		if len(msg.Payload) == 0 {
			// Silent drops of deletes are a correctness bug class;
			// always say when one passes through.
			logger.Info("tombstone detected, propagating delete", logging.LogFields{
				"key": msg.Metadata.Get(transport.MessageKeyMetadata),
			})
			return []*message.Message{forward(msg, nil)}, nil
		}

		wrapped := s.wrapper.WrapOrPassThrough(msg.Payload, route.Schema)
		return []*message.Message{forward(msg, wrapped)}, nil
	}
}

// forward builds the outgoing message, carrying over the incoming metadata so
// the partition key (and any correlation headers) survive the stage.
func forward(in *message.Message, payload []byte) *message.Message {
	out := message.NewMessage(ids.NewID(), payload)
	out.Metadata = make(message.Metadata, len(in.Metadata))
	for k, v := range in.Metadata {
		out.Metadata[k] = v
	}
	return out
}

// Run starts the metrics endpoint (if configured) and runs the router until
// the context is cancelled or a shutdown signal arrives. In-flight handlers
// finish before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if s.metricsHandler != nil && s.conf.MetricsPort > 0 {
		addr := fmt.Sprintf(":%d", s.conf.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.metricsHandler)
		s.logger.Info("starting metrics server", logging.LogFields{"address": addr})
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				s.logger.Error("metrics server stopped", err, logging.LogFields{"address": addr})
			}
		}()
	}

	return s.router.Run(ctx)
}

// Close shuts the router down gracefully.
func (s *Service) Close() error {
	return s.router.Close()
}
