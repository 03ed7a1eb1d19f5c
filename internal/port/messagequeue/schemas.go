package messagequeue

// DraftEventPayload is the schema for drafts.* messages.
type DraftEventPayload struct {
	DraftID    string   `json:"draft_id"`
	ReviewID   string   `json:"review_id"`
	Status     string   `json:"status"`
	Fallback   bool     `json:"fallback"`
	Blocked    bool     `json:"blocked"`
	Violations []string `json:"violations"`
}

// ReplyEventPayload is the schema for replies.* messages.
type ReplyEventPayload struct {
	DraftID         string `json:"draft_id"`
	ReviewID        string `json:"review_id"`
	Platform        string `json:"platform"`
	ProviderReplyID string `json:"provider_reply_id,omitempty"`
	Error           string `json:"error,omitempty"`
}

// ReviewsSyncedPayload is the schema for reviews.synced messages.
type ReviewsSyncedPayload struct {
	LocationID string `json:"location_id"`
	Platform   string `json:"platform"`
	Fetched    int    `json:"fetched"`
	Upserted   int    `json:"upserted"`
}
