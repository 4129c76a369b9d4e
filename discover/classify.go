package discover

import (
	"regexp"
	"sort"
	"strings"

	"github.com/anna-farino/RiskAi-sub010/models"
)

type field int

const (
	fieldEndpoint field = iota
	fieldText
	fieldEvent
)

// rule adds weight to a class when its pattern matches a trigger field.
type rule struct {
	class  models.TriggerClass
	field  field
	re     *regexp.Regexp
	weight int
}

var rules = []rule{
	// Containers: list/feed endpoints, load-more wording, lazy regions.
	{models.TriggerContainer, fieldEndpoint, regexp.MustCompile(`(?i)(^|[/_\-?&=])(list|lists|feed|feeds|latest|news|articles|stories|posts|stream|items|results|more|load|widget|partials?|fragments?)([/_\-?&=.]|$)`), 2},
	{models.TriggerContainer, fieldText, regexp.MustCompile(`(?i)\b(load|show|view|see)\s+more\b|\bmore\s+(stories|articles|news|posts|results)\b|^\s*more\s*$`), 3},
	{models.TriggerContainer, fieldEvent, regexp.MustCompile(`(?i)\b(load|revealed|intersect)\b`), 3},

	// Items: endpoints addressing a single record.
	{models.TriggerItem, fieldEndpoint, regexp.MustCompile(`(?i)/\d{3,}(/|$|\?)|[?&](id|article_id|post_id|item)=\w+|/[0-9a-f]{8}-[0-9a-f]{4}-|/(article|story|post|item|entry)s?/[^/?]+/?$`), 3},
	{models.TriggerItem, fieldText, regexp.MustCompile(`(?i)\b(read\s+more|continue\s+reading|full\s+story|expand)\b`), 2},

	// Pagination.
	{models.TriggerPagination, fieldEndpoint, regexp.MustCompile(`(?i)[?&](page|p|pg|offset|start)=\d+|/page/\d+`), 4},
	{models.TriggerPagination, fieldText, regexp.MustCompile(`(?i)^\s*(next|older|previous|prev|\d{1,3}|›|»|>|>>)\s*$|\b(next|older)\s+(page|posts|entries|articles)\b`), 4},

	// Filters.
	{models.TriggerFilter, fieldEndpoint, regexp.MustCompile(`(?i)[?&](filter|category|cat|tag|topic|sort|order|q|search)=|/(filter|category|tag|topic|search)/`), 5},
	{models.TriggerFilter, fieldText, regexp.MustCompile(`(?i)\b(filter|category|categories|sort\s+by|search|all\s+news|topics?)\b`), 3},
}

// basePriority puts every class in its own band; the highest band belongs
// to containers.
var basePriority = map[models.TriggerClass]int{
	models.TriggerContainer:  400,
	models.TriggerItem:       300,
	models.TriggerPagination: 200,
	models.TriggerFilter:     100,
}

// ClassifyTrigger assigns Class and Priority to t. The class with the
// highest total rule weight wins; ties go to the lower-ranked class. A
// trigger no rule matches is an item.
func ClassifyTrigger(t models.DynamicTrigger) models.DynamicTrigger {
	scores := make(map[models.TriggerClass]int, 4)
	for _, r := range rules {
		var v string
		switch r.field {
		case fieldEndpoint:
			v = t.Endpoint
		case fieldText:
			v = t.Text
		case fieldEvent:
			v = t.TriggerEvent
		}
		if v != "" && r.re.MatchString(v) {
			scores[r.class] += r.weight
		}
	}

	best, bestScore := models.TriggerItem, 0
	for _, c := range []models.TriggerClass{models.TriggerContainer, models.TriggerItem, models.TriggerPagination, models.TriggerFilter} {
		if scores[c] > bestScore {
			best, bestScore = c, scores[c]
		}
	}

	t.Class = best
	t.Priority = basePriority[best] + bestScore
	return t
}

// SortTriggers orders triggers by class rank, then by descending priority.
// Document order breaks remaining ties.
func SortTriggers(ts []models.DynamicTrigger) {
	sort.SliceStable(ts, func(i, j int) bool {
		ri, rj := ts[i].Class.Rank(), ts[j].Class.Rank()
		if ri != rj {
			return ri < rj
		}
		return ts[i].Priority > ts[j].Priority
	})
}

// classifyAll classifies, de-duplicates by selector path and sorts.
func classifyAll(raw []models.DynamicTrigger) []models.DynamicTrigger {
	out := make([]models.DynamicTrigger, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		key := strings.TrimSpace(t.SelectorPath)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ClassifyTrigger(t))
	}
	SortTriggers(out)
	return out
}
