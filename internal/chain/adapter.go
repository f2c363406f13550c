package chain

import (
	"math/big"

	"amm-attack-lab/internal/domain"
	"amm-attack-lab/internal/lending"
)

// ProtocolAdapter is the lending-protocol surface the simulation consumes.
// Entry points are thin pass-throughs returning protocol result codes; the
// caller maps nonzero codes to errors via AsError and never swallows them.
type ProtocolAdapter interface {
	Supply(account, asset string, amount *big.Int) domain.ResultCode
	Borrow(account, asset string, amount *big.Int) domain.ResultCode
	Repay(account, asset string, amount *big.Int) domain.ResultCode
	Redeem(account, asset string, amount *big.Int) domain.ResultCode
	Liquidate(borrower, repayAsset string, repayAmount *big.Int, collateralAsset string) domain.ResultCode
	AccountLiquidity(account string) (liquidity, shortfall *big.Int, code domain.ResultCode)
	Market(name string) (domain.Market, bool)
}

// AsError maps a nonzero result code to a ProtocolRejectionError.
func AsError(code domain.ResultCode) error {
	if code.OK() {
		return nil
	}
	return &ProtocolRejectionError{Code: code}
}

// SimProtocol implements ProtocolAdapter over in-process lending positions.
// Markets are declared at construction as explicit tagged variants; the
// adapter never infers a market kind from a failed lookup.
type SimProtocol struct {
	markets   map[string]domain.Market
	positions map[string]*lending.Position
}

var _ ProtocolAdapter = (*SimProtocol)(nil)

// NewSimProtocol creates an adapter over the given markets.
func NewSimProtocol(markets map[string]domain.Market) *SimProtocol {
	sp := &SimProtocol{
		markets:   make(map[string]domain.Market, len(markets)),
		positions: make(map[string]*lending.Position),
	}
	for name, market := range markets {
		sp.markets[name] = market
	}
	return sp
}

// Register attaches an account's position to the adapter.
func (sp *SimProtocol) Register(account string, position *lending.Position) {
	sp.positions[account] = position
}

// Market returns the tagged market variant for a name.
func (sp *SimProtocol) Market(name string) (domain.Market, bool) {
	market, ok := sp.markets[name]
	return market, ok
}

func (sp *SimProtocol) listed(asset string) bool {
	for _, market := range sp.markets {
		if underlying, ok := market.UnderlyingAsset(); ok && underlying == asset {
			return true
		}
	}
	return false
}

// Supply adds collateral to the account's position.
func (sp *SimProtocol) Supply(account, asset string, amount *big.Int) domain.ResultCode {
	p, ok := sp.positions[account]
	if !ok {
		return domain.CodeUnauthorized
	}
	if !sp.listed(asset) {
		return domain.CodeMarketNotListed
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.CodeTokenInsufficientBalance
	}
	if price, ok := p.Prices[asset]; !ok || price.Sign() == 0 {
		return domain.CodePriceError
	}

	if bal, ok := p.Collateral[asset]; ok {
		bal.Add(bal, amount)
	} else {
		p.Collateral[asset] = new(big.Int).Set(amount)
	}
	return domain.CodeNoError
}

// Borrow draws the asset against the account's liquidity.
func (sp *SimProtocol) Borrow(account, asset string, amount *big.Int) domain.ResultCode {
	p, ok := sp.positions[account]
	if !ok {
		return domain.CodeUnauthorized
	}
	if !sp.listed(asset) {
		return domain.CodeMarketNotListed
	}
	if amount == nil || amount.Sign() <= 0 {
		return domain.CodeTokenInsufficientBalance
	}
	price, ok := p.Prices[asset]
	if !ok || price.Sign() == 0 {
		return domain.CodePriceError
	}

	liquidity, _ := p.AccountLiquidity()
	borrowValue := new(big.Int).Mul(amount, price)
	borrowValue.Quo(borrowValue, lending.Wad)
	if borrowValue.Cmp(liquidity) > 0 {
		return domain.CodeInsufficientLiquidity
	}

	if bal, ok := p.Borrows[asset]; ok {
		bal.Add(bal, amount)
	} else {
		p.Borrows[asset] = new(big.Int).Set(amount)
	}
	return domain.CodeNoError
}

// Repay pays down an outstanding borrow.
func (sp *SimProtocol) Repay(account, asset string, amount *big.Int) domain.ResultCode {
	p, ok := sp.positions[account]
	if !ok {
		return domain.CodeUnauthorized
	}
	borrow, ok := p.Borrows[asset]
	if !ok || amount == nil || amount.Sign() <= 0 {
		return domain.CodeTokenInsufficientBalance
	}
	if amount.Cmp(borrow) > 0 {
		return domain.CodeTooMuchRepay
	}
	borrow.Sub(borrow, amount)
	return domain.CodeNoError
}

// Redeem withdraws collateral if the position stays solvent afterwards.
func (sp *SimProtocol) Redeem(account, asset string, amount *big.Int) domain.ResultCode {
	p, ok := sp.positions[account]
	if !ok {
		return domain.CodeUnauthorized
	}
	bal, ok := p.Collateral[asset]
	if !ok || amount == nil || amount.Sign() <= 0 || amount.Cmp(bal) > 0 {
		return domain.CodeTokenInsufficientBalance
	}

	bal.Sub(bal, amount)
	if _, shortfall := p.AccountLiquidity(); shortfall.Sign() > 0 {
		bal.Add(bal, amount)
		return domain.CodeInsufficientLiquidity
	}
	return domain.CodeNoError
}

// Liquidate repays part of the borrower's debt and seizes collateral with
// the position's liquidation incentive applied.
func (sp *SimProtocol) Liquidate(borrower, repayAsset string, repayAmount *big.Int, collateralAsset string) domain.ResultCode {
	p, ok := sp.positions[borrower]
	if !ok {
		return domain.CodeUnauthorized
	}
	if !p.IsLiquidatable() {
		return domain.CodeInsufficientShortfall
	}
	if repayAmount == nil || repayAmount.Sign() <= 0 {
		return domain.CodeTokenInsufficientBalance
	}
	if repayAmount.Cmp(p.MaxLiquidatable(repayAsset)) > 0 {
		return domain.CodeTooMuchRepay
	}

	seize, err := p.SeizeAmount(repayAmount, repayAsset, collateralAsset)
	if err != nil {
		return domain.CodePriceError
	}
	collateral, ok := p.Collateral[collateralAsset]
	if !ok || seize.Cmp(collateral) > 0 {
		return domain.CodeTokenInsufficientCash
	}

	p.Borrows[repayAsset].Sub(p.Borrows[repayAsset], repayAmount)
	collateral.Sub(collateral, seize)
	return domain.CodeNoError
}

// AccountLiquidity returns the account's (liquidity, shortfall).
func (sp *SimProtocol) AccountLiquidity(account string) (*big.Int, *big.Int, domain.ResultCode) {
	p, ok := sp.positions[account]
	if !ok {
		return nil, nil, domain.CodeUnauthorized
	}
	liquidity, shortfall := p.AccountLiquidity()
	return liquidity, shortfall, domain.CodeNoError
}
