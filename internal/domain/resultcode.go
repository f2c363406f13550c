package domain

// ResultCode is the fixed enumeration of lending-protocol result codes
// returned by the protocol adapter. Zero means success; every other value is
// a rejection that must be surfaced, never swallowed.
type ResultCode uint16

const (
	CodeNoError ResultCode = iota
	CodeUnauthorized
	CodeInsufficientLiquidity
	CodeInsufficientShortfall
	CodeMarketNotListed
	CodeTokenInsufficientAllowance
	CodeTokenInsufficientCash
	CodeTokenInsufficientBalance
	CodeTooMuchRepay
	CodePriceError
)

var resultCodeNames = map[ResultCode]string{
	CodeNoError:                    "NO_ERROR",
	CodeUnauthorized:               "UNAUTHORIZED",
	CodeInsufficientLiquidity:      "INSUFFICIENT_LIQUIDITY",
	CodeInsufficientShortfall:      "INSUFFICIENT_SHORTFALL",
	CodeMarketNotListed:            "MARKET_NOT_LISTED",
	CodeTokenInsufficientAllowance: "TOKEN_INSUFFICIENT_ALLOWANCE",
	CodeTokenInsufficientCash:      "TOKEN_INSUFFICIENT_CASH",
	CodeTokenInsufficientBalance:   "TOKEN_INSUFFICIENT_BALANCE",
	CodeTooMuchRepay:               "TOO_MUCH_REPAY",
	CodePriceError:                 "PRICE_ERROR",
}

// String returns the decoded reason string for the code.
func (c ResultCode) String() string {
	if name, ok := resultCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN_ERROR"
}

// OK reports whether the code denotes success.
func (c ResultCode) OK() bool {
	return c == CodeNoError
}
