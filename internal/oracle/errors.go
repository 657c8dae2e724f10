package oracle

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotFound marks a question id with no creation event on chain.
var ErrNotFound = errors.New("question not found")

// DuplicateQuestionError reports more than one creation event for a single
// question id, which a healthy chain never produces.
type DuplicateQuestionError struct {
	ID    common.Hash
	Count int
}

func (e *DuplicateQuestionError) Error() string {
	return fmt.Sprintf("question %s has %d creation events, expected 1", e.ID.Hex(), e.Count)
}
