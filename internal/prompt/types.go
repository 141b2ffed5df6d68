package prompt

// FollowUpQuestion is one clarifying question with its answer options.
type FollowUpQuestion struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Answer is the caller's answer to the question with the same ID.
type Answer struct {
	ID     int    `json:"id"`
	Answer string `json:"answer"`
}

// FinalPromptRequest carries everything needed to synthesize the final
// prompt. No state is kept between AnalyzeQuery and GenerateFinalPrompt.
type FinalPromptRequest struct {
	Query   string   `json:"query"`
	Answers []Answer `json:"answers"`
}

// FinalPrompt is the synthesized system prompt and the sources that informed it.
type FinalPrompt struct {
	FinalPrompt      string   `json:"final_prompt"`
	RetrievedSources []string `json:"retrieved_sources"`
}
