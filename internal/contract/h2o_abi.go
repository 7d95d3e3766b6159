package contract

func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          "h2o",
		Name:        "H2O Tax Token",
		Description: "First generation H2O with built-in swap-back and dividend distributor.",
		ABI:         h2oABI,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "h2o-v2",
		Name:        "H2O v2 Token",
		Description: "Second generation H2O with timelocked liquidity and distributor plugins.",
		ABI:         h2oV2ABI,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "airdrop",
		Name:        "H2O Airdrop",
		Description: "Time-boxed claim registry funded with H2O.",
		ABI:         airdropABI,
	})
	RegisterBuiltin(BuiltinKind{
		ID:          "migrator",
		Name:        "LP Migrator",
		Description: "Owner of the protocol liquidity with a timelocked router upgrade.",
		ABI:         migratorABI,
	})
}

var ownableABI = []ABIEntry{
	view("owner", "address"),
	write("transferOwnership", "address"),
}

var h2oABI = concat(erc20ABI, ownableABI, []ABIEntry{
	view("router", "address"),
	view("pair", "address"),
	view("distributor", "address"),
	view("distributorGas", "uint256"),
	view("swapEnabled", "bool"),
	view("swapThreshold", "uint256"),
	view("targetLiquidity", "uint256"),
	view("targetLiquidityDenominator", "uint256"),
	view("autoLiquidityReceiver", "address"),
	view("treasuryFeeReceiver", "address"),
	view("getCirculatingSupply", "uint256"),
	view("getLiquidityBacking", "uint256", "uint256"),
	view("isOverLiquified", "bool", "uint256", "uint256"),
	write("setSwapBackSettings", "bool", "uint256"),
	write("setTargetLiquidity", "uint256", "uint256"),
	write("setDistributionCriteria", "uint256", "uint256"),
	write("setDistributorSettings", "uint256"),
	write("setIsFeeExempt", "address", "bool"),
	write("setIsDividendExempt", "address", "bool"),
	write("setIsWalletLimitExempt", "address", "bool"),
	write("setMaxWallet", "uint256", "uint256"),
	event("AutoLiquify", "uint256", "uint256"),
})

var h2oV2ABI = concat(erc20ABI, ownableABI, []ABIEntry{
	view("pair", "address"),
	view("plugin", "address", "uint8"),
	view("pluginCandidates", "address", "uint8"),
	view("approvalDelay", "uint256"),
	view("proposedApprovalDelay", "uint256"),
	write("setupPlugin", "uint8", "address"),
	write("proposePlugin", "uint8", "address"),
	write("upgradePlugin", "uint8"),
	write("proposeApprovalDelay", "uint256"),
	write("upgradeApprovalDelay"),
	write("swapBackAll"),
})

var airdropABI = concat(ownableABI, []ABIEntry{
	view("token", "address"),
	view("duration", "uint256"),
	view("startTime", "uint256"),
	view("totalPending", "uint256"),
	write("start"),
	write("claim", "uint256"),
	write("claimAll"),
	write("update", "address", "uint256"),
	write("massUpdate", "address[]", "uint256[]"),
	write("withdraw", "address"),
})

var migratorABI = concat(ownableABI, []ABIEntry{
	view("token", "address"),
	view("initialized", "bool"),
	view("routerAddress", "address"),
	view("routerCandidate", "address"),
	view("approvalDelay", "uint256"),
	write("proposeRouter", "address", "address", "address[]", "address[]"),
	write("upgradeRouter"),
	write("increaseApprovalDelayTo", "uint256"),
})

func concat(parts ...[]ABIEntry) []ABIEntry {
	var out []ABIEntry
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
