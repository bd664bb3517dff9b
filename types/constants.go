package types

// Ethereum Sepolia deployment used by the testnet bridge.
const (
	SepoliaChainID = 11155111

	// Circle's testnet USDC on Sepolia.
	USDCSepolia = "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238"

	// xReserve bridge proxy on Sepolia.
	XReserveSepolia = "0x008888878fcb3dfea7756fc3c1b0cd6fe44444a2"

	// Mainnet xReserve proxy, for reference.
	XReserveMainnet = "0x888888888fcb3dfea7756fc3c1b0cd6fe444443c"
)

// USDCx token principals on Stacks.
const (
	USDCxTestnet = "ST3JDZQZXCQNXKKS31BDGPEW0ESEV1RCQ19R5MZTM.usdcx-v1"
	USDCxMainnet = "ST2C2YFP12AJZB4MABJBAJ55XECVS7E4PMMZ89YZR.usdcx-v1"
)

// xReserve bridge parameters.
const (
	// Remote domain identifier for Stacks in depositToRemote.
	StacksRemoteDomain uint32 = 10003

	// USDC uses 6 decimals.
	USDCDecimals = 6

	// Minimum deposit in whole USDC.
	MinDepositUSDC = 1

	// Bound on the merchant memo.
	MemoMaxLength = 256

	// Estimated testnet peg-in and peg-out durations, in minutes.
	EstimatedPegInMinutes  = 15
	EstimatedPegOutMinutes = 25

	// Minimum peg-out in USDCx.
	MinPegOutUSDCx = 4.8
)

// Explorer base URLs.
const (
	SepoliaExplorerURL = "https://sepolia.etherscan.io"
	StacksExplorerURL  = "https://explorer.hiro.so"
	StacksTestnetAPI   = "https://api.testnet.hiro.so"
)
