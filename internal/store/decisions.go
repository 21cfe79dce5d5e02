package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// DecisionStore writes routing_decisions: Postgres is the durable record,
// Elasticsearch a best-effort search mirror for audit tooling. A mirror
// failure is logged, never surfaced, so an ES outage cannot fail a commit
// that already happened.
type DecisionStore struct {
	db     *sql.DB
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewDecisionStore(db *sql.DB, es *elasticsearch.Client, index string, log logger.Logger) *DecisionStore {
	return &DecisionStore{db: db, es: es, index: index, logger: log}
}

const insertDecisionQuery = `
INSERT INTO routing_decisions (id, order_id, status, attempts, selections,
	split_groups, weights, failure_reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Insert writes the immutable decision row and mirrors it to the search
// index.
func (s *DecisionStore) Insert(ctx context.Context, d models.RoutingDecision) error {
	selections, err := json.Marshal(d.Selections)
	if err != nil {
		return errors.NewDecisionLogFailedError(d.OrderID, err)
	}
	groups, err := json.Marshal(d.Groups)
	if err != nil {
		return errors.NewDecisionLogFailedError(d.OrderID, err)
	}
	weights, err := json.Marshal(d.Weights)
	if err != nil {
		return errors.NewDecisionLogFailedError(d.OrderID, err)
	}
	var failure interface{}
	if d.FailureReason != nil {
		data, err := json.Marshal(d.FailureReason)
		if err != nil {
			return errors.NewDecisionLogFailedError(d.OrderID, err)
		}
		failure = data
	}

	_, err = s.db.ExecContext(ctx, insertDecisionQuery,
		d.ID, d.OrderID, d.Status, d.Attempts,
		selections, groups, weights, failure, d.CreatedAt,
	)
	if err != nil {
		return errors.NewDecisionLogFailedError(d.OrderID, err)
	}

	s.mirror(ctx, d)
	return nil
}

func (s *DecisionStore) mirror(ctx context.Context, d models.RoutingDecision) {
	if s.es == nil {
		return
	}

	doc, err := json.Marshal(d)
	if err != nil {
		return
	}

	res, err := s.es.Index(
		s.index,
		bytes.NewReader(doc),
		s.es.Index.WithDocumentID(d.ID),
		s.es.Index.WithContext(ctx),
	)
	if err != nil {
		s.logger.Warn("decision mirror write failed", map[string]interface{}{
			"decisionId": d.ID,
			"orderId":    d.OrderID,
			"error":      err.Error(),
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("decision mirror write rejected", map[string]interface{}{
			"decisionId": d.ID,
			"orderId":    d.OrderID,
			"status":     res.Status(),
		})
	}
}
