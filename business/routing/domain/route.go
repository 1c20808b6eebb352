// Package domain contains the core domain types for the routing context.
package domain

import (
	"github.com/fd1az/paybridge/internal/asset"
)

// Route is what a provider is asked to price: a source and destination asset
// pair plus the addresses on each side.
type Route struct {
	From        *asset.Asset
	To          *asset.Asset
	FromAddress string
	ToAddress   string
}

// FromChain returns the source chain id.
func (r Route) FromChain() uint64 { return r.From.ChainID() }

// ToChain returns the destination chain id.
func (r Route) ToChain() uint64 { return r.To.ChainID() }

// CrossChain reports whether the route leaves the source chain.
func (r Route) CrossChain() bool { return r.FromChain() != r.ToChain() }

// RouteRequest is the caller's quote request after validation.
type RouteRequest struct {
	Route
	// ToAmount is the amount the merchant must receive at least.
	ToAmount        asset.Amount
	Provider        string
	MerchantAddress string
	MerchantWebhook string
}
