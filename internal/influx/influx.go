// Package influx writes recorded trigger events to InfluxDB as time series points.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/config"
	"github.com/dokzlo13/triggerd/internal/eventbus"
)

// Measurement is the InfluxDB measurement trigger events are written to.
const Measurement = "trigger_events"

const connectTimeout = 10 * time.Second

var ErrConnectionFailed = errors.New("influx: connection failed")

// PointWriter is the non-blocking write API.
type PointWriter interface {
	WritePoint(point *write.Point)
}

// Writer is a recorder sink producing one point per event.
type Writer struct {
	api PointWriter
}

// NewWriter creates a sink on top of an existing write API.
func NewWriter(api PointWriter) *Writer {
	return &Writer{api: api}
}

func (w *Writer) Name() string { return "influxdb" }

// Record queues a point. Delivery errors surface on the client's error channel.
func (w *Writer) Record(_ context.Context, e eventbus.Event) error {
	w.api.WritePoint(NewPoint(e))
	return nil
}

// NewPoint converts an event to a point tagged by kind, device and source.
func NewPoint(e eventbus.Event) *write.Point {
	active := 0
	if e.Active {
		active = 1
	}
	return write.NewPoint(
		Measurement,
		map[string]string{
			"kind":   string(e.Type),
			"device": e.Device,
			"source": e.Source,
		},
		map[string]interface{}{
			"active":   active,
			"event_id": e.ID,
		},
		e.Timestamp,
	)
}

// Client owns the InfluxDB connection and its batched write API.
type Client struct {
	client influxdb2.Client
	*Writer
	flush func()
}

// Connect pings the server and starts the batched write API.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(cfg.BatchSize)).
			SetFlushInterval(uint(cfg.FlushInterval)*1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Error().Err(err).Msg("InfluxDB write failed")
		}
	}()

	log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("Connected to InfluxDB")

	return &Client{client: client, Writer: NewWriter(writeAPI), flush: writeAPI.Flush}, nil
}

// Close flushes pending points and closes the connection.
func (c *Client) Close() {
	c.flush()
	c.client.Close()
}
