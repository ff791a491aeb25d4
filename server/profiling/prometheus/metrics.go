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
// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	grpcprometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"

	"github.com/crema-team/crema/internal/version"
	"github.com/crema-team/crema/pkg/errors"
)

const (
	namespace        = "crema"
	domainTypeLabel  = "domain_type"
	operationLabel   = "operation"
	statusLabel      = "status"
	resultLabel      = "result"
	taskTypeLabel    = "task_type"
	eventTypeLabel   = "event_type"
	resultSucceeded  = "succeeded"
	resultFailed     = "failed"
	statusOK         = "ok"
	statusUnknownErr = "unknown"
)

// Metrics manages the metric information that Crema is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverMetrics *grpcprometheus.ServerMetrics
	serverVersion *prometheus.GaugeVec

	domainsTotal            *prometheus.GaugeVec
	domainUsersTotal        *prometheus.GaugeVec
	domainOperationsTotal   *prometheus.CounterVec
	domainOperationSeconds  *prometheus.HistogramVec
	domainLogEntriesTotal   *prometheus.CounterVec
	domainSnapshotBytes     prometheus.Histogram
	domainRestorationsTotal *prometheus.CounterVec
	domainEventsTotal       *prometheus.CounterVec

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	serverMetrics := grpcprometheus.NewServerMetrics()
	serverMetrics.EnableHandlingTimeHistogram()
	if err := reg.Register(serverMetrics); err != nil {
		return nil, fmt.Errorf("register server metrics: %w", err)
	}

	metrics := &Metrics{
		registry:      reg,
		serverMetrics: serverMetrics,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		domainsTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "domains_total",
			Help:      "The number of live domains.",
		}, []string{domainTypeLabel}),
		domainUsersTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "users_total",
			Help:      "The number of users entered in live domains.",
		}, []string{domainTypeLabel}),
		domainOperationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "operations_total",
			Help:      "The total count of operations dispatched to domains, by status.",
		}, []string{domainTypeLabel, operationLabel, statusLabel}),
		domainOperationSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "operation_seconds",
			Help:      "The time from submitting an operation to a domain until it completes.",
		}, []string{domainTypeLabel, operationLabel}),
		domainLogEntriesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "log_entries_total",
			Help:      "The total count of entries appended to domain logs.",
		}, []string{domainTypeLabel}),
		domainSnapshotBytes: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "snapshot_bytes",
			Help:      "The size of the compressed snapshots written to domain logs.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		domainRestorationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "restorations_total",
			Help:      "The total count of domains restored from their logs, by result.",
		}, []string{resultLabel}),
		domainEventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "domain",
			Name:      "events_total",
			Help:      "The total count of events published by domains.",
		}, []string{eventTypeLabel}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// ServerMetrics returns the gRPC server metrics.
func (m *Metrics) ServerMetrics() *grpcprometheus.ServerMetrics {
	return m.serverMetrics
}

// RegisterGRPCServer initializes the metrics of the services registered to
// the given server, so that they are reported before the first call.
func (m *Metrics) RegisterGRPCServer(server *grpc.Server) {
	m.serverMetrics.InitializeMetrics(server)
}

// AddDomains adds the number of live domains of the given type.
func (m *Metrics) AddDomains(domainType string, count int) {
	m.domainsTotal.With(prometheus.Labels{
		domainTypeLabel: domainType,
	}).Add(float64(count))
}

// RemoveDomains removes the number of live domains of the given type.
func (m *Metrics) RemoveDomains(domainType string, count int) {
	m.domainsTotal.With(prometheus.Labels{
		domainTypeLabel: domainType,
	}).Sub(float64(count))
}

// AddDomainUsers adds the number of users in domains of the given type.
func (m *Metrics) AddDomainUsers(domainType string, count int) {
	m.domainUsersTotal.With(prometheus.Labels{
		domainTypeLabel: domainType,
	}).Add(float64(count))
}

// ObserveDomainOperation records the outcome and duration of an operation.
func (m *Metrics) ObserveDomainOperation(domainType, operation string, seconds float64, err error) {
	status := statusOK
	if err != nil {
		status = errors.StatusOf(err).String()
		if errors.StatusOf(err) == 0 {
			status = statusUnknownErr
		}
	}

	m.domainOperationsTotal.With(prometheus.Labels{
		domainTypeLabel: domainType,
		operationLabel:  operation,
		statusLabel:     status,
	}).Inc()
	m.domainOperationSeconds.With(prometheus.Labels{
		domainTypeLabel: domainType,
		operationLabel:  operation,
	}).Observe(seconds)
}

// AddDomainLogEntries adds the number of entries appended to domain logs.
func (m *Metrics) AddDomainLogEntries(domainType string, count int) {
	m.domainLogEntriesTotal.With(prometheus.Labels{
		domainTypeLabel: domainType,
	}).Add(float64(count))
}

// ObserveDomainSnapshotBytes records the size of a written snapshot.
func (m *Metrics) ObserveDomainSnapshotBytes(bytes int) {
	m.domainSnapshotBytes.Observe(float64(bytes))
}

// AddDomainRestorations adds the results of a restoration.
func (m *Metrics) AddDomainRestorations(succeeded, failed int) {
	m.domainRestorationsTotal.With(prometheus.Labels{
		resultLabel: resultSucceeded,
	}).Add(float64(succeeded))
	m.domainRestorationsTotal.With(prometheus.Labels{
		resultLabel: resultFailed,
	}).Add(float64(failed))
}

// AddDomainEvents adds the number of published events of the given type.
func (m *Metrics) AddDomainEvents(eventType string) {
	m.domainEventsTotal.With(prometheus.Labels{
		eventTypeLabel: eventType,
	}).Inc()
}

// AddBackgroundGoroutines adds the number of goroutines attached by a particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
