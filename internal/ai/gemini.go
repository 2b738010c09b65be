package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiFactory opens google.golang.org/genai clients against the Gemini API.
type GeminiFactory struct {
	HTTPClient *http.Client
}

func (f GeminiFactory) NewClient(ctx context.Context, credential string) (Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: f.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &geminiClient{client: client}, nil
}

type geminiClient struct {
	client *genai.Client
}

// apiStatusError exposes genai's HTTP status through StatusCoder.
type apiStatusError struct {
	code int
	err  error
}

func (e *apiStatusError) Error() string   { return e.err.Error() }
func (e *apiStatusError) Unwrap() error   { return e.err }
func (e *apiStatusError) StatusCode() int { return e.code }

func wrapAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &apiStatusError{code: apiErr.Code, err: err}
	}
	return err
}

func (g *geminiClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:        req.Temperature,
		ResponseMIMEType:   req.ResponseMIMEType,
		ResponseModalities: req.ResponseModalities,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	for _, t := range req.Tools {
		switch t {
		case ToolGoogleSearch:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		case ToolGoogleMaps:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		}
	}
	if req.Schema != nil {
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, toContents(req), cfg)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return fromGenaiResponse(resp), nil
}

func toContents(req *GenerateRequest) []*genai.Content {
	if len(req.Parts) == 0 {
		return genai.Text(req.Prompt)
	}
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Blob != nil {
			parts = append(parts, genai.NewPartFromBytes(p.Blob.Data, p.Blob.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) *GenerateResponse {
	out := &GenerateResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	out.Text = resp.Text()
	cand := resp.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out.Blobs = append(out.Blobs, Blob{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType})
		}
	}
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil {
				continue
			}
			if chunk.Web != nil {
				out.Citations = append(out.Citations, Citation{Kind: CitationWeb, URI: chunk.Web.URI, Title: chunk.Web.Title})
			}
			if chunk.Maps != nil {
				out.Citations = append(out.Citations, Citation{Kind: CitationMaps, URI: chunk.Maps.URI, Title: chunk.Maps.Title})
			}
		}
	}
	return out
}

func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGenaiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGenaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}

func toGenaiType(t SchemaType) genai.Type {
	switch t {
	case TypeObject:
		return genai.TypeObject
	case TypeArray:
		return genai.TypeArray
	case TypeInteger:
		return genai.TypeInteger
	case TypeNumber:
		return genai.TypeNumber
	case TypeBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func (g *geminiClient) GenerateVideos(ctx context.Context, req *VideoRequest) (*VideoOperation, error) {
	op, err := g.client.Models.GenerateVideos(ctx, req.Model, req.Prompt, nil, &genai.GenerateVideosConfig{
		NumberOfVideos: req.NumberOfVideos,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	})
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return fromVideoOperation(op), nil
}

func (g *geminiClient) PollVideos(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	raw, ok := op.Handle.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("poll videos: unexpected operation handle %T", op.Handle)
	}
	next, err := g.client.Operations.GetVideosOperation(ctx, raw, nil)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return fromVideoOperation(next), nil
}

func fromVideoOperation(op *genai.GenerateVideosOperation) *VideoOperation {
	out := &VideoOperation{Name: op.Name, Done: op.Done, Handle: op}
	if op.Error != nil {
		out.Failure = fmt.Sprint(op.Error)
	}
	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v != nil && v.Video != nil && v.Video.URI != "" {
				out.VideoURIs = append(out.VideoURIs, v.Video.URI)
			}
		}
	}
	return out
}

func (g *geminiClient) StartChat(ctx context.Context, cfg ChatConfig) (ChatSession, error) {
	var gc *genai.GenerateContentConfig
	if cfg.SystemInstruction != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser),
		}
	}
	chat, err := g.client.Chats.Create(ctx, cfg.Model, gc, nil)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &geminiChat{chat: chat}, nil
}

type geminiChat struct {
	chat *genai.Chat
}

func (c *geminiChat) Send(ctx context.Context, message string) (string, error) {
	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", wrapAPIError(err)
	}
	return resp.Text(), nil
}

func (g *geminiClient) ConnectLive(ctx context.Context, cfg LiveConfig) (LiveSession, error) {
	lc := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
	}
	if cfg.Voice != "" {
		lc.SpeechConfig = &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		lc.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	session, err := g.client.Live.Connect(ctx, cfg.Model, lc)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	return &geminiLive{session: session}, nil
}

type geminiLive struct {
	session *genai.Session
}

func (l *geminiLive) SendAudio(_ context.Context, chunk Blob) error {
	return l.session.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{Data: chunk.Data, MIMEType: chunk.MIMEType},
	})
}

// Receive ignores ctx; the underlying websocket read unblocks on Close.
func (l *geminiLive) Receive(_ context.Context) (*LiveEvent, error) {
	msg, err := l.session.Receive()
	if err != nil {
		return nil, err
	}
	ev := &LiveEvent{}
	sc := msg.ServerContent
	if sc == nil {
		return ev, nil
	}
	ev.Interrupted = sc.Interrupted
	ev.TurnComplete = sc.TurnComplete
	if sc.ModelTurn != nil {
		for _, part := range sc.ModelTurn.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				ev.Audio = append(ev.Audio, Blob{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType})
			}
			ev.Text += part.Text
		}
	}
	return ev, nil
}

func (l *geminiLive) Close() error {
	return l.session.Close()
}
