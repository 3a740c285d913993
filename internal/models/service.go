package models

import "github.com/shopspring/decimal"

// Service is a bookable treatment in the clinic catalog.
type Service struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Active      bool
}
