package searchindex

// Settings is the subset of index settings the pipeline manages.
type Settings struct {
	SearchableAttributes  []string `json:"searchableAttributes,omitempty"`
	AttributesForFaceting []string `json:"attributesForFaceting,omitempty"`
	CustomRanking         []string `json:"customRanking,omitempty"`
	AttributesToRetrieve  []string `json:"attributesToRetrieve,omitempty"`
	HighlightPreTag       string   `json:"highlightPreTag,omitempty"`
	HighlightPostTag      string   `json:"highlightPostTag,omitempty"`
}

// Synonym types.
const (
	SynonymTypeSynonym       = "synonym"
	SynonymTypeOneWaySynonym = "oneWaySynonym"
)

// Synonym is one synonym rule.
type Synonym struct {
	ObjectID string   `json:"objectID"`
	Type     string   `json:"type"`
	Synonyms []string `json:"synonyms,omitempty"`
	Input    string   `json:"input,omitempty"`
}

// Batch actions.
const (
	ActionUpdateObject = "updateObject"
	ActionDeleteObject = "deleteObject"
)

// BatchOperation is one write inside a batch request.
type BatchOperation struct {
	Action string `json:"action"`
	Body   any    `json:"body"`
}

// BatchRequest is the body of the batch endpoint.
type BatchRequest struct {
	Requests []BatchOperation `json:"requests"`
}

// BatchResponse acknowledges a batch write.
type BatchResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs"`
}

// TaskResponse acknowledges an asynchronous write.
type TaskResponse struct {
	TaskID    int64  `json:"taskID"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Task states.
const (
	TaskPublished    = "published"
	TaskNotPublished = "notPublished"
)

// TaskStatus is the state of an asynchronous write.
type TaskStatus struct {
	Status      string `json:"status"`
	PendingTask bool   `json:"pendingTask"`
}

// IndexInfo describes one index in the application.
type IndexInfo struct {
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	DataSize  int64  `json:"dataSize"`
	FileSize  int64  `json:"fileSize"`
	UpdatedAt string `json:"updatedAt"`
}

// ListIndicesResponse is the body of the index listing endpoint.
type ListIndicesResponse struct {
	Items   []IndexInfo `json:"items"`
	NbPages int         `json:"nbPages"`
}
