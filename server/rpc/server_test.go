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

package rpc_test

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/crema-team/crema/server/backend"
	"github.com/crema-team/crema/server/profiling/prometheus"
	"github.com/crema-team/crema/server/rpc"
)

func newBackend(t *testing.T) *backend.Backend {
	root := t.TempDir()
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{
		DomainsPath:        filepath.Join(root, "domains"),
		TransactionsPath:   filepath.Join(root, "transactions"),
		RestoreConcurrency: 2,
		SnapshotInterval:   100,
		TokenDuration:      "1h",
		UseDefaultDataBase: true,
		DefaultDataBase:    "default",
	}, nil, metrics)
	require.NoError(t, err)
	require.NoError(t, be.Start(context.Background()))
	t.Cleanup(func() {
		assert.NoError(t, be.Shutdown())
	})
	return be
}

func TestServer(t *testing.T) {
	ctx := context.Background()

	t.Run("health check test", func(t *testing.T) {
		be := newBackend(t)
		server, err := rpc.NewServer(&rpc.Config{
			MaxRequestBytes:       4 * 1024 * 1024,
			MaxConnectionAge:      "50s",
			MaxConnectionAgeGrace: "10s",
		}, be)
		require.NoError(t, err)
		require.NoError(t, server.Start())
		defer server.Shutdown(true)

		conn, err := grpc.Dial(
			fmt.Sprintf("localhost:%d", server.Addr().(*net.TCPAddr).Port),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, conn.Close())
		}()
		client := healthpb.NewHealthClient(conn)

		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

		resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: rpc.DomainsServiceName})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

		_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
		assert.Equal(t, codes.NotFound, status.Code(err))

		families, err := be.Metrics.Registry().Gather()
		require.NoError(t, err)
		names := make(map[string]bool)
		for _, family := range families {
			names[family.GetName()] = true
		}
		assert.True(t, names["grpc_server_handled_total"])
	})

	t.Run("addr before start test", func(t *testing.T) {
		be := newBackend(t)
		server, err := rpc.NewServer(&rpc.Config{
			MaxConnectionAge:      "50s",
			MaxConnectionAgeGrace: "10s",
		}, be)
		require.NoError(t, err)
		assert.Nil(t, server.Addr())
		server.Shutdown(false)
	})
}
