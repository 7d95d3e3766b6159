package contract

// Function selectors:
//
//	name()              → 0x06fdde03
//	symbol()            → 0x95d89b41
//	decimals()          → 0x313ce567
//	totalSupply()       → 0x18160ddd
//	balanceOf(address)  → 0x70a08231
//	allowance(a,a)      → 0xdd62ed3e
//	transfer(a,u256)    → 0xa9059cbb
//	approve(a,u256)     → 0x095ea7b3
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          "erc20",
		Name:        "ERC-20 Standard Token",
		Description: "Standard ERC-20 interface (EIP-20): WETH, reward and paired tokens.",
		ABI:         erc20ABI,
	})
}

var erc20ABI = []ABIEntry{
	view("name", "string"),
	view("symbol", "string"),
	view("decimals", "uint8"),
	view("totalSupply", "uint256"),
	view("balanceOf", "uint256", "address"),
	view("allowance", "uint256", "address", "address"),
	write("transfer", "address", "uint256"),
	write("approve", "address", "uint256"),
	write("transferFrom", "address", "address", "uint256"),
	event("Transfer", "address", "address", "uint256"),
	event("Approval", "address", "address", "uint256"),
}
