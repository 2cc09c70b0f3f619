package models

import "github.com/shopspring/decimal"

func init() {
	// Prices travel as JSON numbers, both on the API and in the flat-file store.
	decimal.MarshalJSONWithoutQuotes = true
}
