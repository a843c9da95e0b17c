package ethereum

// ExecutorABI is the execution contract entry point. params is
// abi.encode(address firstTarget, bytes firstData, address secondTarget, bytes secondData, uint256 minProfit).
const ExecutorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "bytes", "name": "params", "type": "bytes"}
		],
		"name": "executeArbitrage",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const executeMethod = "executeArbitrage"
