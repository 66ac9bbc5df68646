package nextech

// FHIR Resource models for Nextech API (FHIR STU 3 / 3.0.1)

// FHIRBundle represents a FHIR Bundle resource (search results container)
type FHIRBundle struct {
	ResourceType string `json:"resourceType"`
	Type         string `json:"type"` // "searchset", "collection", etc.
	Total        int    `json:"total"`
	Entry        []struct {
		Resource interface{} `json:"resource"`
	} `json:"entry"`
}

// FHIRSlot represents a FHIR Slot resource
type FHIRSlot struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id"`
	Schedule     FHIRReference `json:"schedule"` // Reference to Schedule resource
	Status       string        `json:"status"`   // free, busy, busy-unavailable, busy-tentative
	Start        string        `json:"start"`    // RFC3339 datetime
	End          string        `json:"end"`      // RFC3339 datetime
	ServiceType  []FHIRCoding  `json:"serviceType,omitempty"`
}

// FHIRSchedule represents a FHIR Schedule resource
type FHIRSchedule struct {
	ResourceType    string          `json:"resourceType"`
	ID              string          `json:"id"`
	Actor           []FHIRReference `json:"actor"`
	PlanningHorizon *FHIRPeriod     `json:"planningHorizon,omitempty"`
}

// FHIRPeriod is a start/end datetime pair
type FHIRPeriod struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// FHIRReference represents a reference to another FHIR resource
type FHIRReference struct {
	Reference string `json:"reference"` // e.g., "Practitioner/123"
	Display   string `json:"display,omitempty"`
}

// FHIRCoding represents a coded value
type FHIRCoding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}
