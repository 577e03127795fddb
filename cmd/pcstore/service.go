package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"pcstore/pkg/shop/infrastructure/transport"
)

func serviceCommand() *cli.Command {
	return &cli.Command{
		Name:  "service",
		Usage: "run the REST API and the gRPC health endpoint",
		Action: func(c *cli.Context) error {
			cnf, err := parseEnvs()
			if err != nil {
				return err
			}
			if err = cnf.configureLogger(); err != nil {
				return err
			}

			cont, err := newContainer(cnf)
			if err != nil {
				return err
			}
			defer cont.close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServers(ctx, cnf, cont)
		},
	}
}

func runServers(ctx context.Context, cnf *config, cont *container) error {
	restServer := &http.Server{
		Addr:              cnf.RESTAddress,
		Handler:           transport.Router(cont.services, cont.location),
		ReadHeaderTimeout: 5 * time.Second,
	}

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	listener, err := net.Listen("tcp", cnf.GRPCAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cnf.GRPCAddress)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("address", cnf.RESTAddress).Info("starting REST server")
		if err := restServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "REST server failed")
		}
		return nil
	})
	g.Go(func() error {
		log.WithField("address", cnf.GRPCAddress).Info("starting gRPC server")
		return errors.Wrap(grpcServer.Serve(listener), "gRPC server failed")
	})
	g.Go(func() error {
		watchDatabase(ctx, cont, healthServer, cnf.DBPingInterval)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cnf.ShutdownTimeout)
		defer cancel()
		err := restServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return errors.Wrap(err, "failed to shutdown REST server")
	})

	return g.Wait()
}

// watchDatabase reports NOT_SERVING on the health endpoint while the
// database does not answer pings.
func watchDatabase(ctx context.Context, cont *container, healthServer *health.Server, interval time.Duration) {
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if cont.db == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := healthpb.HealthCheckResponse_SERVING
			if err := cont.db.PingContext(ctx); err != nil {
				log.WithError(err).Warn("database ping failed")
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			healthServer.SetServingStatus("", status)
		}
	}
}
