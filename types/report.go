package types

// AnswerRecord is one resolved sub-question. Answer may be empty (the
// knowledge base reported a negative result) or the error marker (the
// retrieval call failed). Citation holds the first retrieved reference's
// source locator if any.
type AnswerRecord struct {
	Question string `json:"question" bson:"question"`
	Answer   string `json:"answer" bson:"answer"`
	Citation string `json:"citation,omitempty" bson:"citation,omitempty"`
}

// Report is the ordered result of one run, records in
// chunk-then-sub-question order.
type Report struct {
	DocumentID string         `json:"document_id" bson:"_id"`
	Records    []AnswerRecord `json:"records" bson:"records"`
	CreatedAt  int64          `json:"created_at" bson:"created_at"`
}
