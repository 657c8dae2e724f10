package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclescope/internal/model"
)

type fakeContract struct {
	creations     []model.NewQuestionEvent
	creationFails int
	answers       []model.NewAnswerEvent
	live          model.QuestionLiveState
	fee           *big.Int
	feeErr        error
}

func (f *fakeContract) NewQuestionEventsByID(_ context.Context, _ uint64, _ common.Hash) ([]model.NewQuestionEvent, error) {
	if f.creationFails > 0 {
		f.creationFails--
		return nil, errors.New("transient rpc failure")
	}
	return f.creations, nil
}

func (f *fakeContract) AnswerEventsByID(_ context.Context, _ uint64, _ common.Hash) ([]model.NewAnswerEvent, error) {
	return f.answers, nil
}

func (f *fakeContract) QuestionRecord(_ context.Context, _ common.Hash) (model.QuestionLiveState, error) {
	return f.live, nil
}

func (f *fakeContract) DisputeFee(_ context.Context, _ common.Address, _ common.Hash) (*big.Int, error) {
	return f.fee, f.feeErr
}

func creationEvent(id common.Hash) model.NewQuestionEvent {
	return model.NewQuestionEvent{
		EventMeta: model.EventMeta{
			BlockNumber: 6600000,
			LogIndex:    2,
		},
		QuestionID:  id,
		User:        common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TemplateID:  0,
		Question:    "Did it rain today?␟weather␟en_US",
		ContentHash: common.HexToHash("0xc0"),
		Arbitrator:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Timeout:     24 * time.Hour,
		OpeningAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Nonce:       big.NewInt(7),
		CreatedAt:   time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC),
	}
}

func testReconstructor(contract ContractReader) *Reconstructor {
	return NewReconstructor(contract, 100, ReconstructorConfig{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	}, nil)
}

func TestReconstructAssemblesQuestion(t *testing.T) {
	id := common.HexToHash("0xaa")
	finalized := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	base := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	contract := &fakeContract{
		creations: []model.NewQuestionEvent{creationEvent(id)},
		answers: []model.NewAnswerEvent{
			{
				EventMeta:  model.EventMeta{BlockNumber: 6600100, LogIndex: 1},
				QuestionID: id,
				Answer:     common.HexToHash("0x01"),
				User:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
				Bond:       big.NewInt(20),
				AnsweredAt: base.Add(time.Hour),
			},
			{
				EventMeta:  model.EventMeta{BlockNumber: 6600050, LogIndex: 4},
				QuestionID: id,
				Answer:     common.HexToHash("0x00"),
				User:       common.HexToAddress("0x4444444444444444444444444444444444444444"),
				Bond:       big.NewInt(10),
				AnsweredAt: base,
			},
		},
		live: model.QuestionLiveState{
			Timeout:     24 * time.Hour,
			FinalizedAt: &finalized,
			Bounty:      big.NewInt(100),
			BestAnswer:  common.HexToHash("0x01"),
			HistoryHash: common.HexToHash("0xbeef"),
			Bond:        big.NewInt(20),
		},
		fee: big.NewInt(5),
	}

	r := testReconstructor(contract)
	r.now = func() time.Time { return finalized.Add(time.Hour) }

	q, err := r.Reconstruct(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, q.ID)
	assert.Equal(t, uint64(6600000), q.CreatedAtBlock)
	assert.Equal(t, model.TypeBinary, q.Type)
	assert.Equal(t, "Did it rain today?", q.Title)
	assert.Equal(t, "weather", q.Category)
	assert.Equal(t, "en_US", q.Language)
	assert.Equal(t, big.NewInt(5), q.DisputeFee)
	assert.Equal(t, model.StateFinalized, q.State)

	require.Len(t, q.Answers, 2)
	assert.Equal(t, big.NewInt(10), q.Answers[0].Bond)
	assert.Equal(t, big.NewInt(20), q.Answers[1].Bond)
	assert.Equal(t, q.BestAnswer, q.Answers[len(q.Answers)-1].Value)
}

func TestReconstructIsIdempotent(t *testing.T) {
	id := common.HexToHash("0xaa")
	finalized := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	contract := &fakeContract{
		creations: []model.NewQuestionEvent{creationEvent(id)},
		answers: []model.NewAnswerEvent{
			{
				EventMeta:  model.EventMeta{BlockNumber: 6600100, LogIndex: 1},
				QuestionID: id,
				Answer:     common.HexToHash("0x01"),
				User:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
				Bond:       big.NewInt(20),
				AnsweredAt: time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
			},
		},
		live: model.QuestionLiveState{
			Timeout:     24 * time.Hour,
			FinalizedAt: &finalized,
			Bounty:      big.NewInt(100),
			BestAnswer:  common.HexToHash("0x01"),
			HistoryHash: common.HexToHash("0xbeef"),
			Bond:        big.NewInt(20),
		},
		fee: big.NewInt(5),
	}

	r := testReconstructor(contract)
	r.now = func() time.Time { return finalized.Add(time.Hour) }

	first, err := r.Reconstruct(context.Background(), id)
	require.NoError(t, err)
	second, err := r.Reconstruct(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconstructNotFound(t *testing.T) {
	r := testReconstructor(&fakeContract{})

	_, err := r.Reconstruct(context.Background(), common.HexToHash("0xaa"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReconstructDuplicateCreation(t *testing.T) {
	id := common.HexToHash("0xaa")
	contract := &fakeContract{
		creations: []model.NewQuestionEvent{creationEvent(id), creationEvent(id)},
	}
	r := testReconstructor(contract)

	_, err := r.Reconstruct(context.Background(), id)

	var dupErr *DuplicateQuestionError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, id, dupErr.ID)
	assert.Equal(t, 2, dupErr.Count)
}

func TestReconstructRetriesTransientFailure(t *testing.T) {
	id := common.HexToHash("0xaa")
	contract := &fakeContract{
		creations:     []model.NewQuestionEvent{creationEvent(id)},
		creationFails: 2,
		live: model.QuestionLiveState{
			Bounty: big.NewInt(0),
			Bond:   big.NewInt(0),
		},
	}
	r := testReconstructor(contract)

	q, err := r.Reconstruct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, q.ID)
}

func TestReconstructToleratesDisputeFeeFailure(t *testing.T) {
	id := common.HexToHash("0xaa")
	contract := &fakeContract{
		creations: []model.NewQuestionEvent{creationEvent(id)},
		live: model.QuestionLiveState{
			Bounty: big.NewInt(0),
			Bond:   big.NewInt(0),
		},
		feeErr: errors.New("arbitrator without fee interface"),
	}
	r := testReconstructor(contract)

	q, err := r.Reconstruct(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, q.DisputeFee)
}

func TestReconstructUnrecognizedTemplateType(t *testing.T) {
	id := common.HexToHash("0xaa")
	creation := creationEvent(id)
	creation.TemplateID = 99
	contract := &fakeContract{
		creations: []model.NewQuestionEvent{creation},
		live: model.QuestionLiveState{
			Bounty: big.NewInt(0),
			Bond:   big.NewInt(0),
		},
	}
	r := testReconstructor(contract)

	_, err := r.Reconstruct(context.Background(), id)
	require.Error(t, err)
}
