package api

type censorRequest struct {
	Text string `json:"text"`
	// FullWords overrides the service default when set.
	FullWords *bool `json:"full_words,omitempty"`
}

type checkResponse struct {
	Allowed bool     `json:"allowed"`
	Clean   string   `json:"clean,omitempty"`
	Matched []string `json:"matched,omitempty"`
}

type termErrorResponse struct {
	Error string `json:"error"`
	Index int    `json:"index"`
	Term  string `json:"term"`
}

type fillRequest struct {
	Fill string `json:"fill"`
}
