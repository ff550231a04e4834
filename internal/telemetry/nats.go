// Package telemetry publishes temperature readings to NATS JetStream so a
// collector elsewhere on the network can keep history for the Pi.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/makeralchemy/gd-monitor/internal/sensors"
)

// DefaultSubject is the JetStream subject readings are published to.
const DefaultSubject = "gdmonitor.telemetry"

// Payload is one published telemetry sample.
type Payload struct {
	SystemName    string  `json:"system_name"`
	CPUTempC      float64 `json:"cpu_temp_c"`
	GPUTempC      float64 `json:"gpu_temp_c"`
	UptimeSeconds uint64  `json:"uptime_seconds"`
	Load1         float64 `json:"load1"`
	Timestamp     string  `json:"timestamp"`
}

// Publisher ships readings to a NATS subject.
type Publisher struct {
	nc         *nats.Conn
	js         nats.JetStreamContext
	subject    string
	systemName string
}

// NewPublisher connects to NATS and prepares a JetStream context. When
// systemName is empty the hostname is used, matching how the logs exporter
// side identifies machines.
func NewPublisher(natsURL, subject, systemName string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	if subject == "" {
		subject = DefaultSubject
	}
	if systemName == "" {
		hn, err := os.Hostname()
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("system name not specified and unable to get hostname: %w", err)
		}
		systemName = hn
	}

	return &Publisher{nc: nc, js: js, subject: subject, systemName: systemName}, nil
}

// Publish sends one reading, annotated with uptime and load.
func (p *Publisher) Publish(r sensors.Reading) error {
	payload := Payload{
		SystemName: p.systemName,
		CPUTempC:   r.CPU,
		GPUTempC:   r.GPU,
		Timestamp:  r.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if up, err := host.Uptime(); err == nil {
		payload.UptimeSeconds = up
	}
	if avg, err := load.Avg(); err == nil {
		payload.Load1 = avg.Load1
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telemetry payload: %w", err)
	}
	if _, err := p.js.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}
