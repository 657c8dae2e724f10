package realitio

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const realitioABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "address", "name": "arbitrator", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "LogSetQuestionFee",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint256", "name": "template_id", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "string", "name": "question_text", "type": "string"}
    ],
    "name": "LogNewTemplate",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "template_id", "type": "uint256"},
      {"indexed": false, "internalType": "string", "name": "question", "type": "string"},
      {"indexed": true, "internalType": "bytes32", "name": "content_hash", "type": "bytes32"},
      {"indexed": false, "internalType": "address", "name": "arbitrator", "type": "address"},
      {"indexed": false, "internalType": "uint32", "name": "timeout", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "opening_ts", "type": "uint32"},
      {"indexed": false, "internalType": "uint256", "name": "nonce", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "created", "type": "uint256"}
    ],
    "name": "LogNewQuestion",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "bounty_added", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bounty", "type": "uint256"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"}
    ],
    "name": "LogFundAnswerBounty",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "bytes32", "name": "answer", "type": "bytes32"},
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "history_hash", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "bond", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "ts", "type": "uint256"},
      {"indexed": false, "internalType": "bool", "name": "is_commitment", "type": "bool"}
    ],
    "name": "LogNewAnswer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": true, "internalType": "bytes32", "name": "answer_hash", "type": "bytes32"},
      {"indexed": false, "internalType": "bytes32", "name": "answer", "type": "bytes32"},
      {"indexed": false, "internalType": "uint256", "name": "nonce", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "bond", "type": "uint256"}
    ],
    "name": "LogAnswerReveal",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"}
    ],
    "name": "LogNotifyOfArbitrationRequest",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": true, "internalType": "bytes32", "name": "answer", "type": "bytes32"}
    ],
    "name": "LogFinalize",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "question_id", "type": "bytes32"},
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "LogClaim",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
    "name": "questions",
    "outputs": [
      {"internalType": "bytes32", "name": "content_hash", "type": "bytes32"},
      {"internalType": "address", "name": "arbitrator", "type": "address"},
      {"internalType": "uint32", "name": "opening_ts", "type": "uint32"},
      {"internalType": "uint32", "name": "timeout", "type": "uint32"},
      {"internalType": "uint32", "name": "finalize_ts", "type": "uint32"},
      {"internalType": "bool", "name": "is_pending_arbitration", "type": "bool"},
      {"internalType": "uint256", "name": "bounty", "type": "uint256"},
      {"internalType": "bytes32", "name": "best_answer", "type": "bytes32"},
      {"internalType": "bytes32", "name": "history_hash", "type": "bytes32"},
      {"internalType": "uint256", "name": "bond", "type": "uint256"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

const arbitratorABIJSON = `[
  {
    "inputs": [{"internalType": "bytes32", "name": "question_id", "type": "bytes32"}],
    "name": "getDisputeFee",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	realitioABI       abi.ABI
	realitioABIOnce   sync.Once
	realitioABIErr    error
	arbitratorABI     abi.ABI
	arbitratorABIOnce sync.Once
	arbitratorABIErr  error
)

// RealitioABI returns the parsed oracle contract ABI.
func RealitioABI() (abi.ABI, error) {
	realitioABIOnce.Do(func() {
		realitioABI, realitioABIErr = abi.JSON(strings.NewReader(realitioABIJSON))
	})
	return realitioABI, realitioABIErr
}

// ArbitratorABI returns the parsed arbitrator contract ABI.
func ArbitratorABI() (abi.ABI, error) {
	arbitratorABIOnce.Do(func() {
		arbitratorABI, arbitratorABIErr = abi.JSON(strings.NewReader(arbitratorABIJSON))
	})
	return arbitratorABI, arbitratorABIErr
}
