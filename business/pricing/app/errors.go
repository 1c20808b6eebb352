package app

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnknownSymbol is returned by a feed that does not quote the symbol.
var ErrUnknownSymbol = errors.New("pricing: symbol not quoted by feed")

var decimalOne = decimal.NewFromInt(1)
