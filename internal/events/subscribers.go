package events

import (
	"tourbook/internal/metrics"

	"github.com/rs/zerolog"
)

// RegisterAuditLog writes every published event to the audit logger.
func RegisterAuditLog(bus *EventBus, logger *zerolog.Logger) {
	for _, eventType := range AllEventTypes {
		bus.Subscribe(eventType, func(event *Event) error {
			logger.Info().
				Str("event_id", event.ID).
				Str("event_type", event.Type).
				RawJSON("payload", event.Payload).
				Time("at", event.CreatedAt).
				Msg("Domain event")
			return nil
		})
	}
}

// RegisterMetrics feeds booking events into the Prometheus counters.
func RegisterMetrics(bus *EventBus) {
	bus.Subscribe(EventBookingCreated, func(*Event) error {
		metrics.IncBookingCreated()
		return nil
	})
	bus.Subscribe(EventBookingStatusChanged, func(event *Event) error {
		var p BookingEventPayload
		if err := event.Decode(&p); err != nil {
			return err
		}
		if p.Status != p.PrevStatus {
			metrics.IncStatusChange("status", p.Status)
		}
		if p.PaymentStatus != p.PrevPayment {
			metrics.IncStatusChange("paymentStatus", p.PaymentStatus)
		}
		return nil
	})
}
