package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type (
	// Service is a long running part of the bot. Run blocks until ctx is
	// done or Stop is called.
	Service interface {
		Init() error
		Run(ctx context.Context) error
		Stop()
	}
	Services interface {
		AddService(service ...Service)
		Run(ctx context.Context) error
	}
	Manager struct {
		log      Logger
		services []Service
	}
)

func NewManager(log Logger) Services {
	return &Manager{log: log}
}

func (s *Manager) AddService(service ...Service) {
	s.services = append(s.services, service...)
}

// Run initialises every service, runs them together and stops all of them
// on SIGINT/SIGTERM, on ctx cancellation or when one of them fails.
func (s *Manager) Run(ctx context.Context) error {
	s.log.Info("going to start %d services", len(s.services))
	for count, svc := range s.services {
		if err := svc.Init(); err != nil {
			for _, started := range s.services[:count] {
				started.Stop()
			}
			return fmt.Errorf("failed to init service %d: %w", count, err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, svc := range s.services {
		g.Go(func() error {
			return svc.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.stop()
		return nil
	})

	return g.Wait()
}

func (s *Manager) stop() {
	s.log.Info("going to stop")
	for _, svc := range s.services {
		svc.Stop()
	}
}
