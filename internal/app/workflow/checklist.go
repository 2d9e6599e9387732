package workflow

import "github.com/ikkim/homestay-backend/internal/app/model"

// MandatoryChecklistItems must all be true before an inspection can be approved
var MandatoryChecklistItems = []string{
	"owner_resides_on_premises",
	"rooms_match_application",
	"clean_bedding_linen",
	"attached_or_shared_toilets",
	"running_hot_cold_water",
	"electricity_supply",
	"fire_extinguisher",
	"first_aid_kit",
	"waste_disposal",
	"safe_drinking_water",
	"kitchen_hygiene",
	"guest_register_maintained",
	"tariff_displayed",
	"emergency_contacts_displayed",
	"adequate_ventilation",
	"parking_or_access",
	"building_structurally_safe",
	"signage_displayed",
}

// MissingChecklistItems returns the mandatory keys that are absent or false, in order
func MissingChecklistItems(c model.Checklist) []string {
	var missing []string
	for _, key := range MandatoryChecklistItems {
		if !c[key] {
			missing = append(missing, key)
		}
	}
	return missing
}

// FullChecklist returns a checklist with every mandatory item set to true
func FullChecklist() model.Checklist {
	c := make(model.Checklist, len(MandatoryChecklistItems))
	for _, key := range MandatoryChecklistItems {
		c[key] = true
	}
	return c
}
