package notify

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
)

type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
}

type Service struct {
	Dedup  Deduper
	Mailer Mailer
	Log    *logger.Logger
}

// HandleOrderPlaced is installed as the consumer handler. Delivery is best
// effort: send failures are logged and the offset is still committed.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Error("drop undecodable message", "offset", m.Offset, "error", err)
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}
	log := s.Log.With("event_id", env.EventID, "order_id", env.CorrelationID, "trace_id", env.TraceID)

	// 2) dedup on event id
	if s.Dedup != nil {
		first, err := s.Dedup.Claim(ctx, env.EventID)
		if err != nil {
			// redelivery is worse than a rare duplicate mail
			log.Warn("dedup unavailable, sending anyway", "error", err)
		} else if !first {
			log.Debug("duplicate event skipped")
			return nil
		}
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		log.Error("drop event with bad payload", "error", err)
		return nil
	}
	if p.ContactEmail == "" {
		log.Info("no contact address, confirmation skipped")
		return nil
	}

	// 4) render and send
	msg, err := Render(p)
	if err != nil {
		log.Error("render confirmation", "error", err)
		return nil
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		err = apperr.Upstream("send order confirmation", err)
		log.Error("confirmation not delivered", "error", err)
		return nil
	}
	log.Info("confirmation sent")
	return nil
}
