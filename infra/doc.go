// Package infra holds the adapters behind the core interfaces: the Home
// Assistant and MQTT gateways, the zerolog logger, the Prometheus and
// InfluxDB metrics sinks and the Sentry monitor.
package infra
