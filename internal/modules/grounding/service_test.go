package grounding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nest/internal/ai"
	"nest/internal/ai/aitest"
	"nest/internal/logger"
)

func TestClassifyCitations(t *testing.T) {
	web, maps := Classify([]ai.Citation{
		{Kind: ai.CitationWeb, URI: "https://www.japan-guide.com/e/e3902.html", Title: "Kinkakuji"},
		{Kind: ai.CitationWeb, URI: "https://maps.google.com/?cid=123", Title: "Kinkakuji map"},
		{Kind: ai.CitationWeb, URI: "https://www.google.com/maps/place/Kinkaku-ji", Title: "Place"},
		{Kind: ai.CitationMaps, URI: "https://goo.gl/maps/abc", Title: "Maps chunk"},
		{Kind: ai.CitationWeb, URI: "", Title: "dropped"},
	})

	require.Len(t, web, 3)
	require.Len(t, maps, 3)
	assert.Equal(t, "Kinkakuji map", maps[0].Title)
	assert.Equal(t, "Place", maps[1].Title)
	assert.Equal(t, "Maps chunk", maps[2].Title)
	// a web citation pointing at maps is in both sets
	assert.Equal(t, web[1], maps[0])
}

func TestAnswerGrounded(t *testing.T) {
	client := &aitest.Client{GenerateFunc: func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return &ai.GenerateResponse{
			Text:      "Kinkaku-ji opens at 9:00.",
			Citations: []ai.Citation{{Kind: ai.CitationWeb, URI: "https://www.google.com/maps/place/x", Title: "x"}},
		}, nil
	}}
	svc := NewService(aitest.Creds("k"), &aitest.Factory{Client: client}, logger.NewTestLogger(t))

	ans, err := svc.AnswerGrounded(context.Background(), InDestination("When does the golden temple open?", "Kyoto"))
	require.NoError(t, err)
	assert.Equal(t, "Kinkaku-ji opens at 9:00.", ans.Text)
	assert.Len(t, ans.WebSources, 1)
	assert.Len(t, ans.MapSources, 1)

	req := client.Requests()[0]
	assert.ElementsMatch(t, []ai.Tool{ai.ToolGoogleSearch, ai.ToolGoogleMaps}, req.Tools)
	assert.Equal(t, "When does the golden temple open? in Kyoto", req.Prompt)
}

func TestAnswerGroundedEmptyAndErrors(t *testing.T) {
	client := &aitest.Client{GenerateFunc: func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return aitest.Text(""), nil
	}}
	ans, err := NewService(aitest.Creds("k"), &aitest.Factory{Client: client}, nil).AnswerGrounded(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, NoInformation, ans.Text)
	assert.NotNil(t, ans.WebSources)

	_, err = NewService(aitest.Creds(""), &aitest.Factory{}, nil).AnswerGrounded(context.Background(), "q")
	assert.ErrorIs(t, err, ai.ErrNotConfigured)

	boom := errors.New("network down")
	client.GenerateFunc = func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) { return nil, boom }
	_, err = NewService(aitest.Creds("k"), &aitest.Factory{Client: client}, nil).AnswerGrounded(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
}

func TestInDestination(t *testing.T) {
	assert.Equal(t, "q", InDestination("q", " "))
	assert.Equal(t, "q in Oslo", InDestination("q", "Oslo"))
}
