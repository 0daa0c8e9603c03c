package httpserver

// Error response bodies of /findPaperCitations.

type errorResponse struct {
	Error string `json:"error"`
}

type validationErrorResponse struct {
	Error   string `json:"error"`
	Example string `json:"example"`
}

type upstreamErrorResponse struct {
	Error    string `json:"error"`
	Details  string `json:"details"`
	Response string `json:"response"`
}

type serverErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}
