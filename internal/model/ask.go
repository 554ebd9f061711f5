package model

// AskResult is the answer object returned for every question. It is always
// well-formed: internal failures map to the fixed no-information answer with
// confidence 0, never to a raw error.
type AskResult struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
	AIPowered  bool     `json:"ai_powered"`
}

// AskRequest is the body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// DocumentInfo describes one raw document visible to the store.
type DocumentInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}
