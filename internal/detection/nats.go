// internal/detection/nats.go
package detection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// DefaultSubject is where detection events are published.
const DefaultSubject = "traffic.detections"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes each record as JSON on a core NATS subject.
type NATSSink struct {
	pub     publisher
	subject string
	close   func()
}

// DialNATS connects to url. Reconnects are unlimited: the rotation must not
// care whether the broker is up.
func DialNATS(url, subject string, log zerolog.Logger) (*NATSSink, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	nc, err := nats.Connect(url,
		nats.Name("signal-rotator"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("detection: nats connect %s: %w", url, err)
	}

	return &NATSSink{pub: nc, subject: subject, close: nc.Close}, nil
}

func (s *NATSSink) Emit(_ context.Context, r Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", s.subject, err)
	}
	return nil
}

func (s *NATSSink) Close() {
	if s.close != nil {
		s.close()
	}
}
