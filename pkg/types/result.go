package types

// IndexStats counts the outcome of one indexing invocation. It is reset at
// the start of each run and mutated only by the indexer.
type IndexStats struct {
	TotalFiles   int `json:"total_files"`
	IndexedFiles int `json:"indexed_files"`
	FailedFiles  int `json:"failed_files"`
	TotalChunks  int `json:"total_chunks"`
}

// CodeReference points at one retrieved chunk: where it lives, what it said,
// and how relevant the store judged it.
type CodeReference struct {
	FilePath       string  `json:"file_path"`
	LineStart      int     `json:"line_start"`
	LineEnd        int     `json:"line_end"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float32 `json:"relevance_score"`
}

// QueryResponse is the answer to a natural-language question plus one
// reference per retrieved chunk that carried complete location metadata.
type QueryResponse struct {
	Answer     string          `json:"answer"`
	References []CodeReference `json:"references"`
}
