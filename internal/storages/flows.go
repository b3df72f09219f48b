package storage

import (
	"context"
	sq "github.com/Masterminds/squirrel"
	"github.com/practice-sem-2/mtp-service/internal/models"
)

var flowColumns = []string{"uuid", "time_created", "flow_type", "title", "info", "owner"}

var flowConstraints = map[string]error{
	FlowsPrimaryKey:           ErrFlowAlreadyExists,
	FlowMembersPrimaryKey:     ErrDuplicateMember,
	FlowMembersUserForeignKey: ErrMemberNotFound,
}

func (s *PostgresStore) GetFlowByUUID(ctx context.Context, uuid string) (*models.FlowWithMembers, error) {
	query, args, err := sq.Select(flowColumns...).
		From("flows").
		Where(sq.Eq{"uuid": uuid}).
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	flow := models.Flow{}
	if err = s.scope.GetContext(ctx, &flow, query, args...); err != nil {
		return nil, readError(err, ErrFlowNotFound)
	}

	flows, err := s.withMembers(ctx, []models.Flow{flow})
	if err != nil {
		return nil, err
	}
	return &flows[0], nil
}

func (s *PostgresStore) GetAllFlows(ctx context.Context) ([]models.FlowWithMembers, error) {
	return s.selectFlows(ctx, nil)
}

func (s *PostgresStore) GetFlowsSince(ctx context.Context, since int64) ([]models.FlowWithMembers, error) {
	return s.selectFlows(ctx, sq.GtOrEq{"time_created": since})
}

func (s *PostgresStore) selectFlows(ctx context.Context, where sq.Sqlizer) ([]models.FlowWithMembers, error) {
	builder := sq.Select(flowColumns...).
		From("flows").
		OrderBy("time_created", "uuid").
		PlaceholderFormat(sq.Dollar)

	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return nil, err
	}

	flows := make([]models.Flow, 0)
	if err = s.scope.SelectContext(ctx, &flows, query, args...); err != nil {
		return nil, readError(err, ErrFlowNotFound)
	}
	return s.withMembers(ctx, flows)
}

// withMembers resolves the flow to member relation with one query for the
// whole batch.
func (s *PostgresStore) withMembers(ctx context.Context, flows []models.Flow) ([]models.FlowWithMembers, error) {
	result := make([]models.FlowWithMembers, len(flows))
	if len(flows) == 0 {
		return result, nil
	}

	ids := make([]string, len(flows))
	index := make(map[string]int, len(flows))
	for i, f := range flows {
		ids[i] = f.UUID
		index[f.UUID] = i
		result[i] = models.FlowWithMembers{Flow: f, Members: []string{}}
	}

	query, args, err := sq.Select("flow_uuid", "user_uuid").
		From("flow_members").
		Where(sq.Eq{"flow_uuid": ids}).
		OrderBy("flow_uuid", "position").
		PlaceholderFormat(sq.Dollar).
		ToSql()

	if err != nil {
		return nil, err
	}

	members := make([]models.FlowMember, 0)
	if err = s.scope.SelectContext(ctx, &members, query, args...); err != nil {
		return nil, readError(err, ErrFlowNotFound)
	}

	for _, m := range members {
		i := index[m.FlowUUID]
		result[i].Members = append(result[i].Members, m.UserUUID)
	}
	return result, nil
}

func (s *PostgresStore) AddFlow(ctx context.Context, flow *models.FlowWithMembers) error {
	if err := s.checkRecord(&flow.Flow); err != nil {
		return err
	}

	return s.Atomic(ctx, func(store *PostgresStore) error {
		query, args, err := sq.Insert("flows").
			Columns(flowColumns...).
			Values(flow.UUID, flow.TimeCreated, flow.FlowType, flow.Title, flow.Info, flow.Owner).
			PlaceholderFormat(sq.Dollar).
			ToSql()

		if err != nil {
			return err
		}

		if _, err = store.scope.ExecContext(ctx, query, args...); err != nil {
			return mapConstraint(err, flowConstraints)
		}

		return store.addFlowMembers(ctx, flow.UUID, flow.Members)
	})
}

func (s *PostgresStore) addFlowMembers(ctx context.Context, flowUUID string, members []string) error {
	if len(members) == 0 {
		return nil
	}

	builder := sq.Insert("flow_members").
		Columns("flow_uuid", "user_uuid", "position").
		PlaceholderFormat(sq.Dollar)

	for i, member := range members {
		builder = builder.Values(flowUUID, member, i)
	}

	query, args, err := builder.ToSql()

	if err != nil {
		return err
	}

	_, err = s.scope.ExecContext(ctx, query, args...)
	return mapConstraint(err, flowConstraints)
}
