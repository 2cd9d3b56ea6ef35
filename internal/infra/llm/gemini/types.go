package gemini

// Request is the generateContent payload shared by text, vision and speech
// calls.
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content groups the parts of a single turn.
type Content struct {
	Parts []Part `json:"parts"`
}

// Part is either prompt text or inline binary data.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData carries base64 payloads such as uploaded photos or synthesized
// audio.
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GenerationConfig tunes the response format.
type GenerationConfig struct {
	ResponseMIMEType   string        `json:"responseMimeType,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesized voice.
type SpeechConfig struct {
	VoiceConfig VoiceConfig `json:"voiceConfig"`
}

// VoiceConfig wraps the prebuilt voice selector.
type VoiceConfig struct {
	PrebuiltVoiceConfig PrebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

// PrebuiltVoiceConfig names one of the fixed upstream voices.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// Response is the generateContent envelope.
type Response struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate holds one generated answer.
type Candidate struct {
	Content Content `json:"content"`
}

// UsageMetadata reports token accounting for the call.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Text returns the first candidate's text part, or the empty string.
func (r Response) Text() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// InlineAudio returns the base64 audio payload of the first candidate, or the
// empty string when the response carries no audio.
func (r Response) InlineAudio() string {
	for _, cand := range r.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData.Data
			}
		}
	}
	return ""
}

// NewTextRequest builds a single-turn text prompt.
func NewTextRequest(prompt string) Request {
	return Request{Contents: []Content{{Parts: []Part{{Text: prompt}}}}}
}

// NewVisionRequest pairs an instruction with inline image bytes and requests
// a JSON-typed reply.
func NewVisionRequest(prompt, mimeType, imageBase64 string) Request {
	return Request{
		Contents: []Content{{Parts: []Part{
			{Text: prompt},
			{InlineData: &InlineData{MimeType: mimeType, Data: imageBase64}},
		}}},
		GenerationConfig: &GenerationConfig{ResponseMIMEType: "application/json"},
	}
}

// NewSpeechRequest asks for an audio-modality response with a named voice.
func NewSpeechRequest(text, voice string) Request {
	return Request{
		Contents: []Content{{Parts: []Part{{Text: text}}}},
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &SpeechConfig{
				VoiceConfig: VoiceConfig{
					PrebuiltVoiceConfig: PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		},
	}
}
