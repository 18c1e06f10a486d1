package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/crestline/tenantcore"

// Metrics holds the OpenTelemetry metric instruments for the access-control
// core.
type Metrics struct {
	GatewayOpsTotal        metric.Int64Counter
	CrossTenantWritesTotal metric.Int64Counter
	SuperadminOpsTotal     metric.Int64Counter
	TxRetriesTotal         metric.Int64Counter
	GuardDenialsTotal      metric.Int64Counter
	BypassGrantsTotal      metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if
// necessary. Instruments are registered against the global meter provider,
// so anything recorded before telemetry/otel.Setup runs is a no-op.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.GatewayOpsTotal, _ = meter.Int64Counter(
		"tenantcore.gateway.ops.total",
		metric.WithDescription("Total gateway operations by table and operation"),
		metric.WithUnit("{operation}"),
	)

	m.CrossTenantWritesTotal, _ = meter.Int64Counter(
		"tenantcore.gateway.cross_tenant_writes.total",
		metric.WithDescription("Writes rejected for naming a tenant other than the scope's"),
		metric.WithUnit("{write}"),
	)

	m.SuperadminOpsTotal, _ = meter.Int64Counter(
		"tenantcore.gateway.superadmin_ops.total",
		metric.WithDescription("Gateway operations executed with tenant isolation disabled"),
		metric.WithUnit("{operation}"),
	)

	m.TxRetriesTotal, _ = meter.Int64Counter(
		"tenantcore.gateway.tx_retries.total",
		metric.WithDescription("Transactions retried after a serialization conflict"),
		metric.WithUnit("{retry}"),
	)

	m.GuardDenialsTotal, _ = meter.Int64Counter(
		"tenantcore.authz.denials.total",
		metric.WithDescription("Authorization guard denials"),
		metric.WithUnit("{denial}"),
	)

	m.BypassGrantsTotal, _ = meter.Int64Counter(
		"tenantcore.tenancy.bypass_grants.total",
		metric.WithDescription("Superadmin elevations granted"),
		metric.WithUnit("{grant}"),
	)

	return m
}
