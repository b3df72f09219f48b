package usecases

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/practice-sem-2/mtp-service/internal/api"
	"github.com/practice-sem-2/mtp-service/internal/catalog"
	"github.com/practice-sem-2/mtp-service/internal/models"
	storage "github.com/practice-sem-2/mtp-service/internal/storages"
)

const detailFlowRequired = "Flow object is required"

func (e *Engine) addFlow(ctx context.Context, req *api.Request) *api.Response {
	in, ok := req.FirstFlow()
	if !ok {
		return e.respond(req.Type, catalog.BadRequest, nil, detailFlowRequired)
	}

	flowType := models.FlowType(in.Type)
	if !flowType.Valid() {
		return e.respond(req.Type, catalog.BadRequest, nil,
			fmt.Sprintf("Unknown flow type %q, expected chat, group or channel", in.Type))
	}
	if flowType == models.FlowChat && len(in.Users) != models.ChatMembers {
		return e.respond(req.Type, catalog.BadRequest, nil,
			fmt.Sprintf("Chat must have exactly %d members", models.ChatMembers))
	}

	owner := in.Owner
	if owner == "" {
		owner, _ = req.Caller()
	}

	now := e.timestamp()
	flow := models.FlowWithMembers{
		Flow: models.Flow{
			UUID:        uuid.NewString(),
			TimeCreated: now,
			FlowType:    string(flowType),
			Title:       optional(in.Title),
			Info:        optional(in.Info),
			Owner:       optional(owner),
		},
		Members: append([]string{}, in.Users...),
	}

	if err := e.store.AddFlow(ctx, &flow); err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.NotFound)
		return e.respond(req.Type, status, nil, detail)
	}

	e.publish(storage.KindFlowCreated, func() error {
		return e.updates.FlowCreated(&models.FlowCreated{
			UpdateMeta: e.meta(now, flow.Members),
			FlowUUID:   flow.UUID,
			FlowType:   flow.FlowType,
			Owner:      owner,
			Members:    flow.Members,
		})
	})

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time: now,
		Flow: []api.Flow{FlowToAPI(&flow)},
	})
}

func (e *Engine) allFlow(ctx context.Context, req *api.Request) *api.Response {
	flows, err := e.store.GetAllFlows(ctx)
	if err != nil {
		status, detail := e.storeFailure(req.Type, err, catalog.UnknownError)
		return e.respond(req.Type, status, nil, detail)
	}
	if len(flows) == 0 {
		return e.respond(req.Type, catalog.NotFound, nil, "No flows exist yet")
	}

	return e.respond(req.Type, catalog.OK, &api.Data{
		Time: e.timestamp(),
		Flow: FlowsToAPI(flows),
	})
}
