package types

// TicketContext holds the text of the work item a context window is built for
type TicketContext struct {
	Key                string `json:"key,omitempty"`
	Summary            string `json:"summary"`
	Description        string `json:"description"`
	AcceptanceCriteria string `json:"acceptanceCriteria"`
}

// ContextBudget is the outcome of packing chunks into a character budget
type ContextBudget struct {
	Chunks     []CodeChunk `json:"chunks"`
	TotalChars int         `json:"totalChars"`
	Truncated  bool        `json:"truncated"`
}
