package model

// TenderInfo is the metadata subset of a procurement process that the
// workflow feeds to agents. It is fetched from the portal collaborator and
// degrades to a placeholder when the fetch fails.
type TenderInfo struct {
	TenderID     string `json:"tender_id"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	PublishDate  string `json:"publish_date"`
	CloseDate    string `json:"close_date"`
	// Bases carries the general tender specification text assembled from
	// the fetched documents.
	Bases string `json:"bases"`
	// BasesTecnicas carries the technical specification text, when a
	// distinct technical document exists.
	BasesTecnicas string `json:"bases_tecnicas"`
}

// PlaceholderTender is the degraded-but-usable input substituted when the
// portal fetch fails, so downstream stages still execute.
func PlaceholderTender(tenderID string, fetchErr error) TenderInfo {
	t := TenderInfo{
		TenderID:      tenderID,
		Name:          "Tender " + tenderID,
		PublishDate:   "Unknown",
		Bases:         "Error fetching tender data",
		BasesTecnicas: "Error fetching tender data",
	}
	if fetchErr != nil {
		t.Bases += ": " + fetchErr.Error()
	}
	return t
}

// TenderDocument is one attachment row of a tender as listed by the portal.
type TenderDocument struct {
	RowID int    `json:"row_id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	// Text holds the extracted page text once the document has been
	// fetched and OCR'd; empty until then.
	Text string `json:"text,omitempty"`
}
