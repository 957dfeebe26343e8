package provider

import "encoding/xml"

// PlanListXML is the root of the upstream catalog document. Unknown
// attributes/elements are ignored automatically by encoding/xml's
// tag-matching decode — no explicit ignore-unknown directive is needed,
// unlike the Jackson `@JsonIgnoreProperties(ignoreUnknown = true)` the
// original relies on.
type PlanListXML struct {
	XMLName xml.Name  `xml:"planList"`
	Version string    `xml:"version,attr"`
	Output  OutputXML `xml:"output"`
}

// OutputXML wraps the list of base plans.
type OutputXML struct {
	BasePlans []BasePlanXML `xml:"base_plan"`
}

// BasePlanXML is a single upstream plan family, shared across every Plan it contains.
type BasePlanXML struct {
	BasePlanID         string    `xml:"base_plan_id,attr"`
	SellMode           string    `xml:"sell_mode,attr"`
	Title              string    `xml:"title,attr"`
	OrganizerCompanyID string    `xml:"organizer_company_id,attr"`
	Plans              []PlanXML `xml:"plan"`
}

// PlanXML is a single scheduled occurrence of a BasePlan.
type PlanXML struct {
	PlanID    string    `xml:"plan_id,attr"`
	StartDate string    `xml:"plan_start_date,attr"`
	EndDate   string    `xml:"plan_end_date,attr"`
	SellFrom  string    `xml:"sell_from,attr"`
	SellTo    string    `xml:"sell_to,attr"`
	SoldOut   bool      `xml:"sold_out,attr"`
	Zones     []ZoneXML `xml:"zone"`
}

// ZoneXML is a single pricing/capacity tier within a Plan.
type ZoneXML struct {
	ZoneID   string  `xml:"zone_id,attr"`
	Capacity int     `xml:"capacity,attr"`
	Price    float64 `xml:"price,attr"`
	Name     string  `xml:"name,attr"`
	Numbered bool    `xml:"numbered,attr"`
}
