package ai

// Model names used across the pipeline.
const (
	ModelText      = "gemini-2.5-flash"
	ModelLite      = "gemini-2.5-flash-lite"
	ModelImage     = "gemini-2.5-flash-image"
	ModelVideo     = "veo-3.1-fast-generate-preview"
	ModelChat      = "gemini-3-pro-preview"
	ModelLiveAudio = "gemini-2.5-flash-native-audio-preview-09-2025"
)

const MIMEJSON = "application/json"

// Tool enables a grounding tool on a generation call.
type Tool string

const (
	ToolGoogleSearch Tool = "google_search"
	ToolGoogleMaps   Tool = "google_maps"
)

// Blob is inline binary content tagged with a MIME type.
type Blob struct {
	Data     []byte
	MIMEType string
}

// Part is one element of a multimodal prompt; exactly one field is set.
type Part struct {
	Text string
	Blob *Blob
}

type GenerateRequest struct {
	Model string
	// Prompt is used when Parts is empty.
	Prompt             string
	Parts              []Part
	SystemInstruction  string
	Temperature        *float32
	Tools              []Tool
	ResponseMIMEType   string
	Schema             *Schema
	ResponseModalities []string
}

type CitationKind string

const (
	CitationWeb  CitationKind = "web"
	CitationMaps CitationKind = "maps"
)

type Citation struct {
	Kind  CitationKind
	URI   string
	Title string
}

// GenerateResponse is the typed view of a provider answer.
type GenerateResponse struct {
	Text      string
	Blobs     []Blob
	Citations []Citation
}

// FirstBlob returns the first inline payload, or nil.
func (r *GenerateResponse) FirstBlob() *Blob {
	if r == nil {
		return nil
	}
	for i := range r.Blobs {
		if len(r.Blobs[i].Data) > 0 {
			return &r.Blobs[i]
		}
	}
	return nil
}

type VideoRequest struct {
	Model          string
	Prompt         string
	NumberOfVideos int32
	Resolution     string
	AspectRatio    string
}

// VideoOperation is a snapshot of a long-running video job.
type VideoOperation struct {
	Name      string
	Done      bool
	VideoURIs []string
	// Failure is the provider's error payload for a finished-but-failed job.
	Failure string
	// Handle is the provider-specific operation needed for the next poll.
	Handle any
}

type ChatConfig struct {
	Model             string
	SystemInstruction string
}

type LiveConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// LiveEvent is one server message of a live session.
type LiveEvent struct {
	Audio        []Blob
	Text         string
	Interrupted  bool
	TurnComplete bool
}

// Float32 is a convenience for optional temperatures.
func Float32(v float32) *float32 { return &v }
