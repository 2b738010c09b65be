// README: Grounded query service answers free-text questions with web and maps grounding and sorts the citations.
package grounding

import (
	"context"
	"strings"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

const op = "answer_grounded"

// NoInformation is returned as the answer text when the model says nothing.
const NoInformation = "No information found."

type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type Answer struct {
	Text       string   `json:"text"`
	WebSources []Source `json:"web_sources"`
	MapSources []Source `json:"map_sources"`
}

var mapHosts = []string{"maps.google", "google.com/maps"}

// IsMapURI reports whether uri looks like a map provider link.
func IsMapURI(uri string) bool {
	for _, h := range mapHosts {
		if strings.Contains(uri, h) {
			return true
		}
	}
	return false
}

// Classify splits citations into web and map sources. A web citation whose
// URI points at a map provider lands in both lists.
func Classify(citations []ai.Citation) (web, maps []Source) {
	web, maps = []Source{}, []Source{}
	for _, c := range citations {
		if c.URI == "" {
			continue
		}
		src := Source{URI: c.URI, Title: c.Title}
		switch c.Kind {
		case ai.CitationMaps:
			maps = append(maps, src)
		default:
			web = append(web, src)
			if IsMapURI(c.URI) {
				maps = append(maps, src)
			}
		}
	}
	return web, maps
}

type Service struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	log     logger.Logger
}

func NewService(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{creds: creds, factory: factory, log: log}
}

func (s *Service) AnswerGrounded(ctx context.Context, query string) (ans *Answer, err error) {
	start := time.Now()
	defer func() { metrics.ObserveAI(op, start, err) }()

	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		return nil, err
	}
	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model:  ai.ModelText,
		Prompt: query,
		Tools:  []ai.Tool{ai.ToolGoogleSearch, ai.ToolGoogleMaps},
	})
	if err != nil {
		return nil, &ai.ProviderError{Op: op, Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = NoInformation
	}
	web, maps := Classify(resp.Citations)
	s.log.Debug("grounded answer", map[string]interface{}{"web_sources": len(web), "map_sources": len(maps)})
	return &Answer{Text: text, WebSources: web, MapSources: maps}, nil
}

// InDestination scopes a query to a trip's destination.
func InDestination(query, destination string) string {
	if strings.TrimSpace(destination) == "" {
		return query
	}
	return query + " in " + destination
}
