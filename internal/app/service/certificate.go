package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/homestay-backend/internal/app/model"
	"github.com/ikkim/homestay-backend/internal/app/workflow"
)

// districtAbbreviations is ordered; the first entry that matches a label wins
var districtAbbreviations = []struct {
	name string
	abbr string
}{
	{"bilaspur", "BLP"},
	{"chamba", "CHM"},
	{"hamirpur", "HMR"},
	{"kangra", "KGR"},
	{"kinnaur", "KNR"},
	{"kullu", "KLU"},
	{"lahaul and spiti", "LHS"},
	{"mandi", "MND"},
	{"shimla", "SML"},
	{"sirmaur", "SMR"},
	{"solan", "SOL"},
	{"una", "UNA"},
}

// DistrictAbbreviation returns the three letter code used in certificate numbers.
// An exact canonical match is preferred over a partial one.
func DistrictAbbreviation(district string) string {
	canonical := workflow.CanonicalDistrict(district)
	for _, d := range districtAbbreviations {
		if canonical == d.name {
			return d.abbr
		}
	}
	for _, d := range districtAbbreviations {
		if workflow.DistrictMatches(district, d.name) {
			return d.abbr
		}
	}
	letters := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, district)
	letters = strings.ToUpper(letters)
	if len(letters) >= 3 {
		return letters[:3]
	}
	return "GEN"
}

// issueCertificate computes the certificate an approved payment grants.
// Renewals extend from the later of the old expiry and now; room amendments keep
// the parent's expiry.
func issueCertificate(app *model.Application, now time.Time, defaultValidity int) *workflow.Certificate {
	years := app.ValidityYears
	if years <= 0 {
		years = defaultValidity
	}

	expires := now.AddDate(years, 0, 0)
	if inherited := app.ServiceRequest.InheritedExpiry; inherited != nil {
		switch app.Kind {
		case model.KindRenewal:
			base := now
			if inherited.After(now) {
				base = *inherited
			}
			expires = base.AddDate(years, 0, 0)
		case model.KindAddRooms, model.KindDeleteRooms:
			expires = *inherited
		}
	}

	return &workflow.Certificate{
		Number:    fmt.Sprintf("HSC/%s/%d/%06d", DistrictAbbreviation(app.District), now.Year(), app.ID),
		IssuedAt:  now,
		ExpiresAt: expires,
	}
}
