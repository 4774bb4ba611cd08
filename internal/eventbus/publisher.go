package eventbus

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tri2510/vehicle-safety-monitor/internal/models"
)

// Publisher publishes classified alerts to NATS. It satisfies the
// dispatcher's AlertSink contract.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher connects to NATS and returns an alert publisher.
func NewPublisher(natsURL, subject string) (*Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Monitor (Pub) connected to NATS at %s", natsURL)

	return &Publisher{
		conn:    conn,
		subject: subject,
	}, nil
}

// Publish sends one alert as JSON on the alert subject.
func (p *Publisher) Publish(alert *models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return p.conn.Publish(p.subject, data)
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		log.Println("Monitor (Pub) disconnected from NATS")
	}
}

// IsConnected returns true if connected to NATS
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}
