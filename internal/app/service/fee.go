package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ikkim/homestay-backend/internal/app/model"
)

// annualFees holds the yearly registration fee in rupees per category and local body type
var annualFees = map[model.Category]map[model.LocationType]int64{
	model.CategoryDiamond: {model.LocationMC: 18000, model.LocationTCP: 12000, model.LocationGP: 10000},
	model.CategoryGold:    {model.LocationMC: 12000, model.LocationTCP: 8000, model.LocationGP: 6000},
	model.CategorySilver:  {model.LocationMC: 8000, model.LocationTCP: 5000, model.LocationGP: 3000},
}

var (
	// registrations paid up front for three years get a discount
	multiYearDiscount = decimal.RequireFromString("0.10")
	// room amendments pay a share of one annual fee
	amendmentShare = decimal.RequireFromString("0.25")
)

// FeeQuote is a computed fee; Total is always a whole rupee amount
type FeeQuote struct {
	AnnualFee     int64 `json:"annual_fee"`
	ValidityYears int   `json:"validity_years"`
	Discount      int64 `json:"discount"`
	Total         int64 `json:"total"`
}

type FeeSchedule struct {
	defaultValidity int
}

func NewFeeSchedule(defaultValidity int) *FeeSchedule {
	if defaultValidity <= 0 {
		defaultValidity = 1
	}
	return &FeeSchedule{defaultValidity: defaultValidity}
}

// Quote prices an application. Cancellation requests are free.
func (f *FeeSchedule) Quote(app *model.Application) (*FeeQuote, error) {
	if app.Kind == model.KindCancelCertificate {
		return &FeeQuote{}, nil
	}

	byLocation, ok := annualFees[app.Category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, app.Category)
	}
	annual, ok := byLocation[app.LocationType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown location type %q", ErrInvalidInput, app.LocationType)
	}

	years := app.ValidityYears
	if years <= 0 {
		years = f.defaultValidity
	}

	annualDec := decimal.NewFromInt(annual)
	quote := &FeeQuote{AnnualFee: annual, ValidityYears: years}

	switch app.Kind {
	case model.KindAddRooms, model.KindDeleteRooms:
		quote.ValidityYears = 0
		quote.Total = annualDec.Mul(amendmentShare).Round(0).IntPart()
	default:
		gross := annualDec.Mul(decimal.NewFromInt(int64(years)))
		discount := decimal.Zero
		if years >= 3 {
			discount = gross.Mul(multiYearDiscount).Round(0)
		}
		quote.Discount = discount.IntPart()
		quote.Total = gross.Sub(discount).IntPart()
	}
	return quote, nil
}
