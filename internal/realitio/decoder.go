package realitio

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"oraclescope/internal/model"
)

// EventDecoder maps raw oracle contract logs into typed event records. Pure
// mapping, no I/O.
type EventDecoder struct {
	oracleABI   abi.ABI
	topicToKind map[string]model.EventKind
}

// NewEventDecoder builds a decoder for all oracle event kinds.
func NewEventDecoder() (*EventDecoder, error) {
	oracleABI, err := RealitioABI()
	if err != nil {
		return nil, err
	}

	topicToKind := make(map[string]model.EventKind)
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
		event, ok := oracleABI.Events[string(kind)]
		if !ok {
			return nil, fmt.Errorf("event %s missing from abi", kind)
		}
		topicToKind[strings.ToLower(event.ID.Hex())] = kind
	}

	return &EventDecoder{
		oracleABI:   oracleABI,
		topicToKind: topicToKind,
	}, nil
}

// Kind resolves the event kind for a topic0 hash.
func (d *EventDecoder) Kind(topic0 string) (model.EventKind, bool) {
	kind, ok := d.topicToKind[strings.ToLower(topic0)]
	return kind, ok
}

// CanDecode checks if the topic0 is a known oracle event.
func (d *EventDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.Kind(topic0)
	return ok
}

// Topic0 returns the signature hash for an event kind.
func (d *EventDecoder) Topic0(kind model.EventKind) common.Hash {
	return d.oracleABI.Events[string(kind)].ID
}

// Decode converts a LogRecord into a typed OracleEvent. An unrecognized
// topic0 is a programming error, not a transient condition.
func (d *EventDecoder) Decode(log model.LogRecord) (*model.OracleEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	kind, ok := d.Kind(log.Topics[0])
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	meta := eventMeta(log)

	var payload interface{}
	var err error
	switch kind {
	case model.KindNewQuestion:
		payload, err = d.decodeNewQuestion(log, meta)
	case model.KindNewAnswer:
		payload, err = d.decodeNewAnswer(log, meta)
	case model.KindAnswerReveal:
		payload, err = d.decodeAnswerReveal(log, meta)
	case model.KindFundAnswerBounty:
		payload, err = d.decodeFundAnswerBounty(log, meta)
	case model.KindArbitrationRequest:
		payload, err = d.decodeArbitrationRequest(log, meta)
	case model.KindFinalize:
		payload, err = d.decodeFinalize(log, meta)
	case model.KindClaim:
		payload, err = d.decodeClaim(log, meta)
	case model.KindSetQuestionFee:
		payload, err = d.decodeSetQuestionFee(log, meta)
	case model.KindNewTemplate:
		payload, err = d.decodeNewTemplate(log, meta)
	default:
		return nil, fmt.Errorf("unsupported event kind: %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	return &model.OracleEvent{
		Kind:      kind,
		EventMeta: meta,
		Payload:   payload,
	}, nil
}

// DecodeNewQuestion decodes a LogNewQuestion record directly.
func (d *EventDecoder) DecodeNewQuestion(log model.LogRecord) (model.NewQuestionEvent, error) {
	return d.decodeNewQuestion(log, eventMeta(log))
}

// DecodeNewAnswer decodes a LogNewAnswer record directly.
func (d *EventDecoder) DecodeNewAnswer(log model.LogRecord) (model.NewAnswerEvent, error) {
	return d.decodeNewAnswer(log, eventMeta(log))
}

func (d *EventDecoder) decodeNewQuestion(log model.LogRecord, meta model.EventMeta) (model.NewQuestionEvent, error) {
	event := d.oracleABI.Events[string(model.KindNewQuestion)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.NewQuestionEvent{}, err
	}

	var indexed struct {
		QuestionId  common.Hash
		User        common.Address
		ContentHash common.Hash
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.NewQuestionEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	if len(values) != 7 {
		return model.NewQuestionEvent{}, fmt.Errorf("unexpected new question values: %d", len(values))
	}

	templateID, err := asBigInt(values[0])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	question, err := asString(values[1])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	arbitrator, err := asAddress(values[2])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	timeout, err := asBigInt(values[3])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	openingTS, err := asBigInt(values[4])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	nonce, err := asBigInt(values[5])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}
	created, err := asBigInt(values[6])
	if err != nil {
		return model.NewQuestionEvent{}, err
	}

	return model.NewQuestionEvent{
		EventMeta:   meta,
		QuestionID:  indexed.QuestionId,
		User:        indexed.User,
		TemplateID:  templateID.Int64(),
		Question:    question,
		ContentHash: indexed.ContentHash,
		Arbitrator:  arbitrator,
		Timeout:     toDuration(timeout),
		OpeningAt:   toTime(openingTS),
		Nonce:       nonce,
		CreatedAt:   toTime(created),
	}, nil
}

func (d *EventDecoder) decodeNewAnswer(log model.LogRecord, meta model.EventMeta) (model.NewAnswerEvent, error) {
	event := d.oracleABI.Events[string(model.KindNewAnswer)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.NewAnswerEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		User       common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.NewAnswerEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.NewAnswerEvent{}, err
	}
	if len(values) != 5 {
		return model.NewAnswerEvent{}, fmt.Errorf("unexpected new answer values: %d", len(values))
	}

	answer, err := asHash(values[0])
	if err != nil {
		return model.NewAnswerEvent{}, err
	}
	historyHash, err := asHash(values[1])
	if err != nil {
		return model.NewAnswerEvent{}, err
	}
	bond, err := asBigInt(values[2])
	if err != nil {
		return model.NewAnswerEvent{}, err
	}
	ts, err := asBigInt(values[3])
	if err != nil {
		return model.NewAnswerEvent{}, err
	}
	isCommitment, err := asBool(values[4])
	if err != nil {
		return model.NewAnswerEvent{}, err
	}

	return model.NewAnswerEvent{
		EventMeta:    meta,
		QuestionID:   indexed.QuestionId,
		Answer:       answer,
		HistoryHash:  historyHash,
		User:         indexed.User,
		Bond:         bond,
		AnsweredAt:   toTime(ts),
		IsCommitment: isCommitment,
	}, nil
}

func (d *EventDecoder) decodeAnswerReveal(log model.LogRecord, meta model.EventMeta) (model.AnswerRevealEvent, error) {
	event := d.oracleABI.Events[string(model.KindAnswerReveal)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.AnswerRevealEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		User       common.Address
		AnswerHash common.Hash
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.AnswerRevealEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.AnswerRevealEvent{}, err
	}
	if len(values) != 3 {
		return model.AnswerRevealEvent{}, fmt.Errorf("unexpected answer reveal values: %d", len(values))
	}

	answer, err := asHash(values[0])
	if err != nil {
		return model.AnswerRevealEvent{}, err
	}
	nonce, err := asBigInt(values[1])
	if err != nil {
		return model.AnswerRevealEvent{}, err
	}
	bond, err := asBigInt(values[2])
	if err != nil {
		return model.AnswerRevealEvent{}, err
	}

	return model.AnswerRevealEvent{
		EventMeta:  meta,
		QuestionID: indexed.QuestionId,
		User:       indexed.User,
		AnswerHash: indexed.AnswerHash,
		Answer:     answer,
		Nonce:      nonce,
		Bond:       bond,
	}, nil
}

func (d *EventDecoder) decodeFundAnswerBounty(log model.LogRecord, meta model.EventMeta) (model.FundAnswerBountyEvent, error) {
	event := d.oracleABI.Events[string(model.KindFundAnswerBounty)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.FundAnswerBountyEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		User       common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.FundAnswerBountyEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.FundAnswerBountyEvent{}, err
	}
	if len(values) != 2 {
		return model.FundAnswerBountyEvent{}, fmt.Errorf("unexpected bounty values: %d", len(values))
	}

	bountyAdded, err := asBigInt(values[0])
	if err != nil {
		return model.FundAnswerBountyEvent{}, err
	}
	bounty, err := asBigInt(values[1])
	if err != nil {
		return model.FundAnswerBountyEvent{}, err
	}

	return model.FundAnswerBountyEvent{
		EventMeta:   meta,
		QuestionID:  indexed.QuestionId,
		BountyAdded: bountyAdded,
		Bounty:      bounty,
		User:        indexed.User,
	}, nil
}

func (d *EventDecoder) decodeArbitrationRequest(log model.LogRecord, meta model.EventMeta) (model.ArbitrationRequestEvent, error) {
	event := d.oracleABI.Events[string(model.KindArbitrationRequest)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.ArbitrationRequestEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		User       common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.ArbitrationRequestEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.ArbitrationRequestEvent{
		EventMeta:  meta,
		QuestionID: indexed.QuestionId,
		User:       indexed.User,
	}, nil
}

func (d *EventDecoder) decodeFinalize(log model.LogRecord, meta model.EventMeta) (model.FinalizeEvent, error) {
	event := d.oracleABI.Events[string(model.KindFinalize)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.FinalizeEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		Answer     common.Hash
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.FinalizeEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.FinalizeEvent{
		EventMeta:  meta,
		QuestionID: indexed.QuestionId,
		Answer:     indexed.Answer,
	}, nil
}

func (d *EventDecoder) decodeClaim(log model.LogRecord, meta model.EventMeta) (model.ClaimEvent, error) {
	event := d.oracleABI.Events[string(model.KindClaim)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.ClaimEvent{}, err
	}

	var indexed struct {
		QuestionId common.Hash
		User       common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.ClaimEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.ClaimEvent{}, err
	}
	if len(values) != 1 {
		return model.ClaimEvent{}, fmt.Errorf("unexpected claim values: %d", len(values))
	}

	amount, err := asBigInt(values[0])
	if err != nil {
		return model.ClaimEvent{}, err
	}

	return model.ClaimEvent{
		EventMeta:  meta,
		QuestionID: indexed.QuestionId,
		User:       indexed.User,
		Amount:     amount,
	}, nil
}

func (d *EventDecoder) decodeSetQuestionFee(log model.LogRecord, meta model.EventMeta) (model.SetQuestionFeeEvent, error) {
	event := d.oracleABI.Events[string(model.KindSetQuestionFee)]
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.SetQuestionFeeEvent{}, err
	}
	if len(values) != 2 {
		return model.SetQuestionFeeEvent{}, fmt.Errorf("unexpected fee values: %d", len(values))
	}

	arbitrator, err := asAddress(values[0])
	if err != nil {
		return model.SetQuestionFeeEvent{}, err
	}
	amount, err := asBigInt(values[1])
	if err != nil {
		return model.SetQuestionFeeEvent{}, err
	}

	return model.SetQuestionFeeEvent{
		EventMeta:  meta,
		Arbitrator: arbitrator,
		Amount:     amount,
	}, nil
}

func (d *EventDecoder) decodeNewTemplate(log model.LogRecord, meta model.EventMeta) (model.NewTemplateEvent, error) {
	event := d.oracleABI.Events[string(model.KindNewTemplate)]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.NewTemplateEvent{}, err
	}

	var indexed struct {
		TemplateId *big.Int
		User       common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.NewTemplateEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.NewTemplateEvent{}, err
	}
	if len(values) != 1 {
		return model.NewTemplateEvent{}, fmt.Errorf("unexpected template values: %d", len(values))
	}

	text, err := asString(values[0])
	if err != nil {
		return model.NewTemplateEvent{}, err
	}

	return model.NewTemplateEvent{
		EventMeta:    meta,
		TemplateID:   indexed.TemplateId.Int64(),
		User:         indexed.User,
		QuestionText: text,
	}, nil
}

func eventMeta(log model.LogRecord) model.EventMeta {
	meta := model.EventMeta{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
	}
	if log.Timestamp > 0 {
		meta.BlockTime = time.Unix(int64(log.Timestamp), 0).UTC()
	}
	return meta
}

// toTime converts a seconds-since-epoch value to calendar time. Timestamps
// are the only numeric fields safe to narrow out of big integers.
func toTime(value *big.Int) time.Time {
	return time.Unix(value.Int64(), 0).UTC()
}

func toDuration(seconds *big.Int) time.Duration {
	return time.Duration(seconds.Int64()) * time.Second
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asHash(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Hash:
		return v, nil
	case [32]byte:
		return common.BytesToHash(v[:]), nil
	case []byte:
		return common.BytesToHash(v), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported hash type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}

func asString(value interface{}) (string, error) {
	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unsupported string type %T", value)
	}
	return v, nil
}
