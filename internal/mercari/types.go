package mercari

// searchAPIRequest is the JSON body sent to the entities:search endpoint.
type searchAPIRequest struct {
	PageSize        int             `json:"pageSize"`
	PageToken       string          `json:"pageToken,omitempty"`
	SearchCondition searchCondition `json:"searchCondition"`
}

type searchCondition struct {
	Keyword string `json:"keyword"`
	Sort    string `json:"sort"`
	Order   string `json:"order"`
}

// searchAPIResponse is the JSON body returned by the entities:search endpoint.
type searchAPIResponse struct {
	Items         []ItemSummary `json:"items"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

// ItemSummary represents a single item from the Mercari search response.
// Numeric fields arrive as decimal strings.
type ItemSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Price      string   `json:"price"`
	Status     string   `json:"status"`
	Created    string   `json:"created"` // unix seconds
	Updated    string   `json:"updated"` // unix seconds
	Thumbnails []string `json:"thumbnails,omitempty"`
}
