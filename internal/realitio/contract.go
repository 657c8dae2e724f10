package realitio

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"oraclescope/internal/chain"
	"oraclescope/internal/model"
)

// unansweredSentinel is the highest finalize_ts value the contract uses to
// mean "no answer yet".
const unansweredSentinel = 1

// Contract queries one deployed oracle contract: event history over
// eth_getLogs and live question records over eth_call.
type Contract struct {
	client  *chain.Client
	address common.Address
	decoder *EventDecoder
	logger  *zap.Logger

	oracleABI     abi.ABI
	arbitratorABI abi.ABI
}

// NewContract creates a query surface for the oracle contract at the given
// address.
func NewContract(client *chain.Client, address common.Address, logger *zap.Logger) (*Contract, error) {
	decoder, err := NewEventDecoder()
	if err != nil {
		return nil, err
	}
	oracleABI, err := RealitioABI()
	if err != nil {
		return nil, err
	}
	arbitratorABI, err := ArbitratorABI()
	if err != nil {
		return nil, err
	}

	return &Contract{
		client:        client,
		address:       address,
		decoder:       decoder,
		logger:        logger,
		oracleABI:     oracleABI,
		arbitratorABI: arbitratorABI,
	}, nil
}

// Address returns the oracle contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// NewQuestionEventsByID returns every LogNewQuestion for the question id. A
// healthy chain yields exactly one; callers decide how to treat zero or many.
func (c *Contract) NewQuestionEventsByID(ctx context.Context, fromBlock uint64, id common.Hash) ([]model.NewQuestionEvent, error) {
	logs, err := c.filter(ctx, fromBlock, 0, [][]common.Hash{
		{c.decoder.Topic0(model.KindNewQuestion)},
		{id},
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.NewQuestionEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.DecodeNewQuestion(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// AnswerEventsByID returns every LogNewAnswer for the question id, in ledger
// order.
func (c *Contract) AnswerEventsByID(ctx context.Context, fromBlock uint64, id common.Hash) ([]model.NewAnswerEvent, error) {
	logs, err := c.filter(ctx, fromBlock, 0, [][]common.Hash{
		{c.decoder.Topic0(model.KindNewAnswer)},
		{id},
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.NewAnswerEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.DecodeNewAnswer(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// QuestionEventsInRange returns the LogNewQuestion events in [fromBlock,
// toBlock], newest first.
func (c *Contract) QuestionEventsInRange(ctx context.Context, fromBlock, toBlock uint64) ([]model.NewQuestionEvent, error) {
	logs, err := c.filter(ctx, fromBlock, toBlock, [][]common.Hash{
		{c.decoder.Topic0(model.KindNewQuestion)},
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.NewQuestionEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.DecodeNewQuestion(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
	return events, nil
}

// QuestionEventsByUser returns the LogNewQuestion events created by the user.
func (c *Contract) QuestionEventsByUser(ctx context.Context, fromBlock uint64, user common.Address) ([]model.NewQuestionEvent, error) {
	logs, err := c.filter(ctx, fromBlock, 0, [][]common.Hash{
		{c.decoder.Topic0(model.KindNewQuestion)},
		nil,
		{addressTopic(user)},
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.NewQuestionEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.DecodeNewQuestion(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// AnswerEventsByUser returns the LogNewAnswer events submitted by the user.
func (c *Contract) AnswerEventsByUser(ctx context.Context, fromBlock uint64, user common.Address) ([]model.NewAnswerEvent, error) {
	logs, err := c.filter(ctx, fromBlock, 0, [][]common.Hash{
		{c.decoder.Topic0(model.KindNewAnswer)},
		nil,
		{addressTopic(user)},
	})
	if err != nil {
		return nil, err
	}

	events := make([]model.NewAnswerEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.DecodeNewAnswer(record)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// AllEvents returns every oracle event in [fromBlock, latest], decoded and
// ordered newest first. Block timestamps are resolved so downstream consumers
// see calendar time on every event.
func (c *Contract) AllEvents(ctx context.Context, fromBlock uint64) ([]model.OracleEvent, error) {
	topic0 := make([]common.Hash, 0, len(c.decoder.topicToKind))
	for _, kind := range []model.EventKind{
		model.KindNewQuestion,
		model.KindNewAnswer,
		model.KindAnswerReveal,
		model.KindFundAnswerBounty,
		model.KindArbitrationRequest,
		model.KindFinalize,
		model.KindClaim,
		model.KindSetQuestionFee,
		model.KindNewTemplate,
	} {
		topic0 = append(topic0, c.decoder.Topic0(kind))
	}

	logs, err := c.filter(ctx, fromBlock, 0, [][]common.Hash{topic0})
	if err != nil {
		return nil, err
	}

	events := make([]model.OracleEvent, 0, len(logs))
	for _, record := range logs {
		event, err := c.decoder.Decode(record)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
	return events, nil
}

// QuestionRecord reads the question's live contract record at the latest
// block. A finalize_ts at or below the sentinel maps to a nil FinalizedAt.
func (c *Contract) QuestionRecord(ctx context.Context, id common.Hash) (model.QuestionLiveState, error) {
	data, err := c.oracleABI.Pack("questions", [32]byte(id))
	if err != nil {
		return model.QuestionLiveState{}, fmt.Errorf("pack questions: %w", err)
	}

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return model.QuestionLiveState{}, fmt.Errorf("call questions: %w", err)
	}

	values, err := c.oracleABI.Unpack("questions", output)
	if err != nil {
		return model.QuestionLiveState{}, fmt.Errorf("unpack questions: %w", err)
	}
	if len(values) != 10 {
		return model.QuestionLiveState{}, fmt.Errorf("unexpected questions values: %d", len(values))
	}

	timeout, err := asBigInt(values[3])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	finalizeTS, err := asBigInt(values[4])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	pending, err := asBool(values[5])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	bounty, err := asBigInt(values[6])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	bestAnswer, err := asHash(values[7])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	historyHash, err := asHash(values[8])
	if err != nil {
		return model.QuestionLiveState{}, err
	}
	bond, err := asBigInt(values[9])
	if err != nil {
		return model.QuestionLiveState{}, err
	}

	state := model.QuestionLiveState{
		Timeout:            toDuration(timeout),
		PendingArbitration: pending,
		Bounty:             bounty,
		BestAnswer:         bestAnswer,
		HistoryHash:        historyHash,
		Bond:               bond,
	}
	if finalizeTS.Uint64() > unansweredSentinel {
		t := toTime(finalizeTS)
		state.FinalizedAt = &t
	}
	return state, nil
}

// DisputeFee reads the arbitrator's dispute fee for the question. Some
// arbitrators do not implement the fee interface; those calls fail and the
// caller treats the fee as unknown.
func (c *Contract) DisputeFee(ctx context.Context, arbitrator common.Address, id common.Hash) (*big.Int, error) {
	data, err := c.arbitratorABI.Pack("getDisputeFee", [32]byte(id))
	if err != nil {
		return nil, fmt.Errorf("pack getDisputeFee: %w", err)
	}

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &arbitrator, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call getDisputeFee: %w", err)
	}

	values, err := c.arbitratorABI.Unpack("getDisputeFee", output)
	if err != nil {
		return nil, fmt.Errorf("unpack getDisputeFee: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected getDisputeFee values: %d", len(values))
	}
	return asBigInt(values[0])
}

// filter fetches logs, resolves their block timestamps and normalizes them
// into records the decoder accepts.
func (c *Contract) filter(ctx context.Context, fromBlock, toBlock uint64, topics [][]common.Hash) ([]model.LogRecord, error) {
	logs, err := c.client.FilterLogs(ctx, fromBlock, toBlock, c.address, topics)
	if err != nil {
		return nil, fmt.Errorf("filter logs: %w", err)
	}
	c.logger.Debug("filter logs",
		zap.Uint64("from", fromBlock),
		zap.Uint64("to", toBlock),
		zap.Int("logs", len(logs)))

	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		ts, err := c.client.BlockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}
		records = append(records, toLogRecord(log, ts))
	}
	return records, nil
}

// addressTopic left-pads a 20-byte address into the 32-byte topic slot the log
// filter expects.
func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func toLogRecord(log types.Log, timestamp uint64) model.LogRecord {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		TxIndex:     uint64(log.TxIndex),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(log.Data),
		Removed:     log.Removed,
		Timestamp:   timestamp,
	}
}
