package discover

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-farino/RiskAi-sub010/config"
	"github.com/anna-farino/RiskAi-sub010/models"
)

type reveal struct {
	links    []Link
	triggers []models.DynamicTrigger
	err      error
}

type fakeSurface struct {
	url       string
	links     []Link
	triggers  []models.DynamicTrigger
	reveals   map[string]reveal
	activated []models.DynamicTrigger
	detects   int
}

func (s *fakeSurface) URL(context.Context) string { return s.url }

func (s *fakeSurface) DetectTriggers(context.Context) ([]models.DynamicTrigger, error) {
	s.detects++
	return append([]models.DynamicTrigger(nil), s.triggers...), nil
}

func (s *fakeSurface) Activate(_ context.Context, t models.DynamicTrigger) error {
	s.activated = append(s.activated, t)
	r := s.reveals[t.SelectorPath]
	if r.err != nil {
		return r.err
	}
	s.links = append(s.links, r.links...)
	s.triggers = append(s.triggers, r.triggers...)
	return nil
}

func (s *fakeSurface) Links(context.Context) ([]Link, error) {
	return append([]Link(nil), s.links...), nil
}

func testDiscoverConfig() config.DiscoverConfig {
	return config.DiscoverConfig{
		MaxContainerTriggers: 5,
		MaxTotalTriggers:     50,
		PaginationThreshold:  20,
		ThrottleEvery:        10,
		ThrottlePause:        time.Millisecond,
		MaxLinks:             200,
	}
}

func externalLinks(prefix string, n int) []Link {
	out := make([]Link, n)
	for i := range out {
		out[i] = Link{URL: fmt.Sprintf("https://%s%d.example.org/story/%d", prefix, i, i), Text: fmt.Sprintf("Story %d", i)}
	}
	return out
}

func trigger(path string, text, endpoint string) models.DynamicTrigger {
	return models.DynamicTrigger{SelectorPath: path, Text: text, Endpoint: endpoint, TriggerEvent: "click"}
}

// A container whose activation reveals ten external links yields exactly
// those ten, with duplicates and same-host links dropped.
func TestResolve_ContainerRevealsExternalLinks(t *testing.T) {
	revealed := externalLinks("site", 10)
	revealed = append(revealed,
		revealed[3],
		Link{URL: revealed[5].URL + "#comments"},
		Link{URL: "/about"},
		Link{URL: "https://www.news.example.com/internal"},
		Link{URL: "https://twitter.com/intent/tweet?url=x"},
	)
	s := &fakeSurface{
		url:      "https://news.example.com/",
		links:    []Link{{URL: "/home"}, {URL: "https://news.example.com/contact"}},
		triggers: []models.DynamicTrigger{trigger("#load", "Load more", "/feed/latest")},
		reveals:  map[string]reveal{"#load": {links: revealed}},
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, URLs(externalLinks("site", 10)), URLs(res.Links))
	assert.Equal(t, 1, res.Activated)
	require.Len(t, res.Attributions, 1)
	assert.Equal(t, 10, res.Attributions[0].NewLinks)
}

func TestResolve_ProcessesClassesInOrder(t *testing.T) {
	s := &fakeSurface{
		url: "https://news.example.com/",
		triggers: []models.DynamicTrigger{
			trigger("#filter", "Filter", "?category=apt"),
			trigger("#next", "Next", "/page/2"),
			trigger("#item", "", "/api/story/98765"),
			trigger("#more", "Show more", "/feed"),
		},
		reveals: map[string]reveal{},
	}

	_, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)

	var order []string
	for _, a := range s.activated {
		order = append(order, a.SelectorPath)
	}
	assert.Equal(t, []string{"#more", "#item", "#next", "#filter"}, order)
}

func TestResolve_ContainerBudget(t *testing.T) {
	s := &fakeSurface{url: "https://news.example.com/", reveals: map[string]reveal{}}
	for i := range 8 {
		s.triggers = append(s.triggers, trigger(fmt.Sprintf("#c%d", i), "Load more", ""))
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Activated)
}

func TestResolve_TotalBudget(t *testing.T) {
	s := &fakeSurface{url: "https://news.example.com/", reveals: map[string]reveal{}}
	for i := range 70 {
		s.triggers = append(s.triggers, trigger(fmt.Sprintf("#i%d", i), "", fmt.Sprintf("/api/item/%d", 1000+i)))
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Activated)
	assert.Len(t, s.activated, 50)
}

func TestResolve_PaginationOnlyWhileLinksScarce(t *testing.T) {
	newSurface := func(initial int) *fakeSurface {
		return &fakeSurface{
			url:      "https://news.example.com/",
			links:    externalLinks("x", initial),
			triggers: []models.DynamicTrigger{trigger("#next", "Next", "/page/2")},
			reveals:  map[string]reveal{"#next": {links: externalLinks("p", 5)}},
		}
	}

	rich := newSurface(25)
	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), rich)
	require.NoError(t, err)
	assert.Empty(t, rich.activated)
	assert.Len(t, res.Links, 25)

	sparse := newSurface(3)
	res, err = NewResolver(testDiscoverConfig()).Resolve(context.Background(), sparse)
	require.NoError(t, err)
	assert.Len(t, sparse.activated, 1)
	assert.Len(t, res.Links, 8)
}

func TestResolve_RedetectsExactlyOnce(t *testing.T) {
	s := &fakeSurface{
		url:      "https://news.example.com/",
		triggers: []models.DynamicTrigger{trigger("#more", "Load more", "/feed")},
		reveals: map[string]reveal{
			"#more": {triggers: []models.DynamicTrigger{trigger("#item", "", "/api/story/123456")}},
			"#item": {
				links:    externalLinks("deep", 2),
				triggers: []models.DynamicTrigger{trigger("#nested", "Load more", "/feed/nested")},
			},
		},
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 2, s.detects)
	assert.Equal(t, 2, res.Activated)
	for _, a := range s.activated {
		assert.NotEqual(t, "#nested", a.SelectorPath)
	}
	assert.Len(t, res.Links, 2)
}

func TestResolve_ActivationFailureIsSkipped(t *testing.T) {
	s := &fakeSurface{
		url: "https://news.example.com/",
		triggers: []models.DynamicTrigger{
			trigger("#broken", "Load more", "/feed/a"),
			trigger("#ok", "Show more", "/feed/b"),
		},
		reveals: map[string]reveal{
			"#broken": {err: errors.New("element detached")},
			"#ok":     {links: externalLinks("ok", 3)},
		},
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, res.Links, 3)
	require.Len(t, res.Attributions, 2)
	assert.NotEmpty(t, res.Attributions[0].Err)
}

func TestResolve_IdempotentOnStaticPage(t *testing.T) {
	newSurface := func() *fakeSurface {
		return &fakeSurface{
			url:     "https://news.example.com/",
			links:   append(externalLinks("a", 6), externalLinks("a", 6)...),
			reveals: map[string]reveal{},
		}
	}
	r := NewResolver(testDiscoverConfig())

	first, err := r.Resolve(context.Background(), newSurface())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), newSurface())
	require.NoError(t, err)

	assert.Equal(t, URLs(first.Links), URLs(second.Links))
	assert.Len(t, first.Links, 6)
}

// Failed container activations still count against the container cap,
// and a round with no successful activation skips the re-detect pass.
func TestResolve_FailingContainersCountTowardCap(t *testing.T) {
	s := &fakeSurface{url: "https://news.example.com/", reveals: map[string]reveal{}}
	for i := range 12 {
		path := fmt.Sprintf("#c%d", i)
		s.triggers = append(s.triggers, trigger(path, "Load more", "/feed"))
		s.reveals[path] = reveal{err: errors.New("element not interactable")}
	}

	res, err := NewResolver(testDiscoverConfig()).Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Len(t, s.activated, 5)
	assert.Equal(t, 5, res.Activated)
	assert.Len(t, res.Attributions, 5)
	assert.Equal(t, 1, s.detects)
	for _, a := range res.Attributions {
		assert.NotEmpty(t, a.Err)
	}
}
