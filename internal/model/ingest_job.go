package model

// IngestJob is the retry-queue payload for a document whose indexing failed
// on a downstream dependency.
type IngestJob struct {
	DocumentID  string `json:"document_id"`
	IndexHandle string `json:"index_handle"`
	Text        string `json:"text"`
	Attempt     int    `json:"attempt"`
}
