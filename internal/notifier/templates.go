package notifier

import (
	"fmt"
	"strings"
)

// Audience says who receives an event
type Audience string

const (
	AudienceOwner   Audience = "owner"
	AudienceDA      Audience = "dealing_assistant"
	AudienceDTDO    Audience = "dtdo"
	AudienceUnknown Audience = ""
)

type template struct {
	audience Audience
	text     string
}

var templates = map[string]template{
	"application_submitted":       {AudienceDA, "New homestay application {application_number} ({property_name}) submitted for scrutiny."},
	"legacy_rc_submitted":         {AudienceDTDO, "Existing certificate {rc_number} submitted for verification under application {application_number}."},
	"application_resubmitted":     {AudienceDA, "Application {application_number} resubmitted with corrections (attempt {correction_count})."},
	"scrutiny_started":            {AudienceOwner, "Dear {owner_name}, your application {application_number} is under scrutiny."},
	"sent_back_for_corrections":   {AudienceOwner, "Dear {owner_name}, application {application_number} needs corrections: {reason}"},
	"forwarded_to_dtdo":           {AudienceDTDO, "Application {application_number} ({property_name}) forwarded for your review."},
	"dtdo_review_started":         {AudienceOwner, "Dear {owner_name}, application {application_number} is under district review."},
	"dtdo_revert":                 {AudienceDA, "Application {application_number} reverted by DTDO: {reason}"},
	"dtdo_revert_to_applicant":    {AudienceOwner, "Dear {owner_name}, application {application_number} was returned to you: {reason}"},
	"inspection_scheduled":        {AudienceOwner, "Dear {owner_name}, inspection of {property_name} is scheduled on {inspection_date}."},
	"inspection_report_submitted": {AudienceDTDO, "Inspection report submitted for application {application_number}."},
	"verified_for_payment":        {AudienceOwner, "Dear {owner_name}, application {application_number} is approved for payment of Rs {total_fee}."},
	"certificate_cancelled":       {AudienceOwner, "Dear {owner_name}, certificate {parent_certificate_number} has been cancelled."},
	"dtdo_objection":              {AudienceOwner, "Dear {owner_name}, objections raised on application {application_number}: {reason}"},
	"legacy_rc_approved":          {AudienceOwner, "Dear {owner_name}, existing certificate {rc_number} has been verified."},
	"application_rejected":        {AudienceOwner, "Dear {owner_name}, application {application_number} was rejected: {reason}"},
	"payment_initiated":           {AudienceOwner, "Payment of Rs {amount} initiated for application {application_number}."},
	"payment_confirmed":           {AudienceOwner, "Dear {owner_name}, payment received. Certificate {certificate_number} issued, valid till {certificate_expiry}."},
}

// Render interpolates {key} placeholders from vars. Unknown events get a generic text.
func Render(eventID string, vars map[string]string) (string, Audience) {
	tpl, ok := templates[eventID]
	if !ok {
		return fmt.Sprintf("Application %s: %s", vars["application_number"], eventID), AudienceUnknown
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl.text), tpl.audience
}

// HasTemplate reports whether an event id has a registered template
func HasTemplate(eventID string) bool {
	_, ok := templates[eventID]
	return ok
}
