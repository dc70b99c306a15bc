package trade

import "strings"

// SplitSymbol splits a unified "BASE/QUOTE" pair into its two assets.
// The base asset is the one being bought or sold; the quote asset is the
// one prices are denominated in. Buy-side balance checks inspect the quote
// asset, sell-side checks the base asset.
func SplitSymbol(symbol string) (base, quote string) {
	parts := strings.SplitN(symbol, "/", 2)
	if len(parts) != 2 {
		return symbol, ""
	}
	return parts[0], parts[1]
}
