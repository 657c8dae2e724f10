package storage

import (
	"bufio"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclescope/internal/model"
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "questions.jsonl")
	sink := NewJsonlStorage(path)

	q := &model.Question{
		QuestionIdentity: model.QuestionIdentity{
			ID:        common.HexToHash("0x01"),
			CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		QuestionLiveState: model.QuestionLiveState{
			Bounty: big.NewInt(100),
			Bond:   big.NewInt(0),
		},
		State: model.StateOpen,
	}

	require.NoError(t, sink.PutQuestionBatch([]*model.Question{q}))
	require.NoError(t, sink.PutQuestionBatch([]*model.Question{q, q}))
	require.NoError(t, sink.PutQuestionBatch(nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		assert.Contains(t, scanner.Text(), `"state":"OPEN"`)
		lines++
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, 3, lines)
}
