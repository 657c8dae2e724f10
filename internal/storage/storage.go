package storage

import "oraclescope/internal/model"

// Storage defines a sink for question snapshots.
type Storage interface {
	PutQuestionBatch(questions []*model.Question) error
}
