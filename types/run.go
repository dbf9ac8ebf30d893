package types

const (
	RUN_STATUS_UPLOADED   = "UPLOADED"
	RUN_STATUS_PROCESSING = "PROCESSING"
	RUN_STATUS_COMPLETED  = "COMPLETED"
	RUN_STATUS_ERROR      = "ERROR"
)

// ProcessingRun tracks one upload through the chunk -> extract -> resolve
// pipeline. One run per uploaded document; the document id doubles as the
// run key.
type ProcessingRun struct {
	DocumentID string       `json:"document_id" bson:"_id"`
	FileName   string       `json:"file_name" bson:"file_name"`
	StorageURL string       `json:"storage_url" bson:"storage_url"`
	Status     string       `json:"status" bson:"status"`
	Timestamp  string       `json:"timestamp" bson:"timestamp"` // ISO-8601
	Username   string       `json:"username" bson:"username"`
	Metadata   *RunMetadata `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// RunMetadata is the per-run bookkeeping blob. Either the chunk/answer
// counters or the error message is set, never both.
type RunMetadata struct {
	ChunksProcessed int    `json:"chunks_processed,omitempty" bson:"chunks_processed,omitempty"`
	TotalChunks     int    `json:"total_chunks,omitempty" bson:"total_chunks,omitempty"`
	AnswersFound    int    `json:"answers_found,omitempty" bson:"answers_found,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty" bson:"error_message,omitempty"`
}

// IsTerminal reports whether the run reached COMPLETED or ERROR. Terminal
// runs never transition again.
func (r *ProcessingRun) IsTerminal() bool {
	return r.Status == RUN_STATUS_COMPLETED || r.Status == RUN_STATUS_ERROR
}

// RunContext carries one run's accumulated state through the pipeline
// stages instead of ambient session state.
type RunContext struct {
	Run             *ProcessingRun
	Records         []AnswerRecord
	ChunksProcessed int
	TotalChunks     int
}
