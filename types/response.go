package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type UploadResponse struct {
	DocumentID   string `json:"document_id"`
	OriginalName string `json:"original_name,omitempty"`
}

type PaginateResponse struct {
	Total    int64       `json:"total"`
	Elements interface{} `json:"elements"`
	Page     int64       `json:"page"`
	Limit    int64       `json:"limit"`
}

type RunReportResponse struct {
	Run    *ProcessingRun `json:"run"`
	Report *Report        `json:"report,omitempty"`
}

// ProcessingDocumentStatus is pushed to clients while a run is in flight,
// over SSE on the upload request and over the progress websocket.
type ProcessingDocumentStatus struct {
	DocumentID      string  `json:"document_id"`
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	Progress        float64 `json:"progress"`
	TotalChunks     int     `json:"total_chunks"`
	ProcessedChunks int     `json:"processed_chunks"`
	AnswersFound    int     `json:"answers_found"`
}
