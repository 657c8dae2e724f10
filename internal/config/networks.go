package config

// initialBlocks maps a chain id to the block at which the oracle contract was
// deployed there. Scanning earlier blocks can never find oracle events.
var initialBlocks = map[uint64]uint64{
	1:    6531147,
	3:    0,
	4:    3175028,
	42:   10350865,
	1337: 0,
}

// InitialBlock returns the deployment block for the chain id, if known.
func InitialBlock(chainID uint64) (uint64, bool) {
	block, ok := initialBlocks[chainID]
	return block, ok
}
