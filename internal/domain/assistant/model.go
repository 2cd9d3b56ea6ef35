package assistant

// ChatRequest carries one farmer question.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// SpeechRequest selects text to synthesize.
type SpeechRequest struct {
	Text string `json:"text"`
}

// Config wires runtime settings for the assistant domain.
type Config struct {
	Model    string
	TTSModel string
	Voice    string
	Persona  string
}
