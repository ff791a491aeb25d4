/*
 * Copyright 2025 The Crema Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package rpc provides the gRPC server of Crema. The domain operations are
// invoked in process, so the server only exposes the health of the backend.
package rpc

import (
	"fmt"
	"net"

	grpcmiddleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/crema-team/crema/server/backend"
	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/rpc/grpchelper"
	"github.com/crema-team/crema/server/rpc/interceptors"
)

// DomainsServiceName is the health service reporting whether the domains
// of the backend have been restored.
const DomainsServiceName = "crema.Domains"

// Server is the gRPC server of Crema.
type Server struct {
	conf         *Config
	grpcServer   *grpc.Server
	healthServer *health.Server
	backend      *backend.Backend
	listener     net.Listener
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend) (*Server, error) {
	loggingInterceptor := grpchelper.NewLoggingInterceptor()
	defaultInterceptor := interceptors.NewDefaultInterceptor()

	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(grpcmiddleware.ChainUnaryServer(
			loggingInterceptor.Unary(),
			be.Metrics.ServerMetrics().UnaryServerInterceptor(),
			defaultInterceptor.Unary(),
		)),
		grpc.StreamInterceptor(grpcmiddleware.ChainStreamServer(
			loggingInterceptor.Stream(),
			be.Metrics.ServerMetrics().StreamServerInterceptor(),
			defaultInterceptor.Stream(),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionAge:      conf.ParseMaxConnectionAge(),
			MaxConnectionAgeGrace: conf.ParseMaxConnectionAgeGrace(),
		}),
	}
	if conf.MaxRequestBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(int(conf.MaxRequestBytes)))
	}
	if conf.CertFile != "" && conf.KeyFile != "" {
		creds, err := credentials.NewServerTLSFromFile(conf.CertFile, conf.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load tls credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	grpcServer := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthServer.SetServingStatus(DomainsServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	be.Metrics.RegisterGRPCServer(grpcServer)

	return &Server{
		conf:         conf,
		grpcServer:   grpcServer,
		healthServer: healthServer,
		backend:      be,
	}, nil
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.conf.Port))
	if err != nil {
		return fmt.Errorf("listen %d: %w", s.conf.Port, err)
	}
	s.listener = lis

	s.healthServer.SetServingStatus(DomainsServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)

		if err := s.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown shuts down this server.
func (s *Server) Shutdown(graceful bool) {
	s.healthServer.Shutdown()

	if graceful {
		s.grpcServer.GracefulStop()
	} else {
		s.grpcServer.Stop()
	}
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// GRPCServer returns the gRPC server.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}
