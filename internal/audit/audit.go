package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"campus/internal/metrics"
	"campus/internal/queue"
	"campus/internal/records"
)

// Run logs every record event from msgs until the channel closes or ctx ends.
func Run(ctx context.Context, msgs <-chan queue.Message, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			Handle(msg, log)
		}
	}
}

// Handle records one event.
func Handle(msg queue.Message, log zerolog.Logger) {
	var evt records.Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		log.Warn().Err(err).Str("type", msg.Type).Msg("undecodable record event")
		return
	}
	metrics.RecordEvents.WithLabelValues(msg.Type).Inc()
	log.Info().
		Str("type", msg.Type).
		Int64("record_id", evt.RecordID).
		Int64("student_id", evt.StudentID).
		Int64("actor_id", evt.ActorID).
		Str("detail", evt.Detail).
		Time("at", evt.At).
		Msg("record event")
}
