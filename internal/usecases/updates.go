package usecases

import (
	"context"
	"github.com/practice-sem-2/mtp-service/internal/models"
	"time"
)

// publish reports an update after the write it describes has been stored. A
// failed publish is logged and never changes the response.
func (e *Engine) publish(kind string, send func() error) {
	if err := send(); err != nil {
		e.logger.
			WithError(err).
			WithField("update", kind).
			Warn("can't publish update")
	}
}

func (e *Engine) flowAudience(ctx context.Context, flowUUID string) []string {
	flow, err := e.store.GetFlowByUUID(ctx, flowUUID)
	if err != nil {
		e.logger.WithError(err).WithField("flow", flowUUID).Warn("can't resolve update audience")
		return []string{}
	}
	return flow.Members
}

func (e *Engine) meta(now int64, audience []string) models.UpdateMeta {
	return models.UpdateMeta{
		Timestamp: time.Unix(now, 0),
		Audience:  audience,
	}
}
