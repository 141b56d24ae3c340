package validation

import (
	"fmt"

	"github.com/spec-kit/locate-service/internal/domain"
)

var fieldLabels = map[domain.FieldName]string{
	domain.FieldCompany:                "excavating company name",
	domain.FieldContactName:            "name of the on-site contact",
	domain.FieldPhone:                  "contact phone number",
	domain.FieldEmail:                  "contact email address",
	domain.FieldTypeOfWork:             "type of work being performed",
	domain.FieldWorkFor:                "name of the party the work is done for",
	domain.FieldTicketType:             "ticket type",
	domain.FieldEmergencyJustification: "emergency justification",
	domain.FieldCounty:                 "county of the work site",
	domain.FieldCity:                   "city or nearest town of the work site",
	domain.FieldAddress:                "street address of the work site",
	domain.FieldCrossStreet:            "nearest cross street",
	domain.FieldWorkAreaDescription:    "description of the area to be marked",
	domain.FieldGPS:                    "GPS coordinates of the work site",
	domain.FieldGeometry:               "work site location",
}

// Label returns the human name of a field.
func Label(field domain.FieldName) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return string(field)
}

// Prompt renders the question a conversational agent should ask to
// close a gap.
func Prompt(field domain.FieldName, problem domain.ProblemCode) string {
	label := Label(field)
	switch problem {
	case domain.ProblemFieldMissing:
		return fmt.Sprintf("What is the %s?", label)
	case domain.ProblemAddressOrGPSRequired:
		return "What is the street address of the work site, or its GPS coordinates?"
	case domain.ProblemJustificationRequired:
		return "Why does this work qualify as an emergency? Describe the hazard or outage that requires immediate digging."
	case domain.ProblemInvalidFormat:
		if field == domain.FieldPhone {
			return "What is the full 10-digit contact phone number, including area code?"
		}
		return fmt.Sprintf("Can you provide a valid %s?", label)
	case domain.ProblemOutOfRegion:
		return "Can you confirm the GPS coordinates? They fall outside the service area."
	case domain.ProblemLowConfidence:
		return "Can you confirm the work site location? The geocoded position has low confidence."
	default:
		return fmt.Sprintf("Can you check the %s?", label)
	}
}
