package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"graphmind/backend/internal/graph"
	"graphmind/backend/pkg/logger"
	"graphmind/backend/pkg/metrics"
)

const dissolveReason = "No active relationships after negation"

// Engine maintains the process-wide community snapshot. Communities
// are connected components over the active-relationship subgraph,
// size > 1 required. Rebuilds replace the snapshot wholesale and
// concurrent rebuild requests are coalesced.
type Engine struct {
	repo   *graph.Repository
	logger *zap.Logger

	mu      sync.RWMutex
	current *graph.CommunityGraph

	rebuilds singleflight.Group
}

func NewEngine(repo *graph.Repository) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger.Named("community"),
	}
}

// Current returns the latest snapshot, nil before the first rebuild.
func (e *Engine) Current() *graph.CommunityGraph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Rebuild recomputes the full community graph and swaps the snapshot.
// Overlapping callers share one computation.
func (e *Engine) Rebuild(ctx context.Context) *graph.CommunityGraph {
	v, _, _ := e.rebuilds.Do("rebuild", func() (interface{}, error) {
		return e.rebuild(ctx), nil
	})
	cg, _ := v.(*graph.CommunityGraph)
	return cg
}

func (e *Engine) rebuild(ctx context.Context) *graph.CommunityGraph {
	timer := prometheus.NewTimer(metrics.CommunityRebuildDuration)
	defer timer.ObserveDuration()

	nodes, edges := e.repo.FetchActiveGraph(ctx)
	communities := detectCommunities(nodes, edges)

	now := time.Now().UTC()
	cg := &graph.CommunityGraph{
		ID:                          uuid.New().String(),
		Communities:                 communities,
		InterCommunityRelationships: interCommunityEdges(communities, edges),
		CreatedAt:                   now,
		UpdatedAt:                   now,
	}

	e.repo.StoreCommunityGraph(ctx, cg)

	e.mu.Lock()
	e.current = cg
	e.mu.Unlock()

	metrics.CommunityCount.Set(float64(len(communities)))
	e.logger.Debug("community graph rebuilt",
		zap.Int("communities", len(communities)),
		zap.Int("inter_community_edges", len(cg.InterCommunityRelationships)),
	)
	return cg
}

// detectCommunities runs a union-find pass over the active edges.
// Only components with more than one member qualify; naming and
// description come from the first three member names.
func detectCommunities(nodes []graph.ActiveNode, edges []graph.ActiveEdge) []graph.Community {
	parent := make(map[string]string, len(nodes))
	names := make(map[string]string, len(nodes))
	for _, n := range nodes {
		parent[n.ID] = n.ID
		names[n.ID] = n.Name
	}

	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, edge := range edges {
		if _, ok := parent[edge.SourceEntityID]; !ok {
			continue
		}
		if _, ok := parent[edge.TargetEntityID]; !ok {
			continue
		}
		union(edge.SourceEntityID, edge.TargetEntityID)
	}

	members := make(map[string][]string)
	for _, n := range nodes {
		root := find(n.ID)
		members[root] = append(members[root], n.ID)
	}

	roots := make([]string, 0, len(members))
	for root, ids := range members {
		if len(ids) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Strings(roots)

	now := time.Now().UTC()
	communities := make([]graph.Community, 0, len(roots))
	for _, root := range roots {
		ids := members[root]
		sort.Strings(ids)

		memberNames := make([]string, 0, 3)
		for _, id := range ids {
			if name := names[id]; name != "" && len(memberNames) < 3 {
				memberNames = append(memberNames, name)
			}
		}
		label := root
		if len(memberNames) > 0 {
			label = memberNames[0]
		}
		if len(label) > 20 {
			label = label[:20]
		}

		communities = append(communities, graph.Community{
			ID:              uuid.New().String(),
			Name:            fmt.Sprintf("Community_%s", label),
			Description:     fmt.Sprintf("Community centered around %s", strings.Join(memberNames, ", ")),
			EntityIDs:       mapset.NewSet(ids...),
			CentralEntities: []string{root},
			Properties: map[string]interface{}{
				"size":        len(ids),
				"detected_at": now.Format(time.RFC3339),
			},
			CreatedAt:  now,
			UpdatedAt:  now,
			Confidence: 1.0,
		})
	}
	return communities
}

// interCommunityEdges counts active edges crossing each unordered pair
// of communities. Pairs with no crossing edges are omitted.
func interCommunityEdges(communities []graph.Community, edges []graph.ActiveEdge) []graph.InterCommunityRelationship {
	owner := make(map[string]int)
	for i, c := range communities {
		for id := range c.EntityIDs.Iter() {
			owner[id] = i
		}
	}

	type crossing struct {
		count int64
		types mapset.Set[string]
	}
	crossings := make(map[[2]int]*crossing)

	for _, edge := range edges {
		src, okSrc := owner[edge.SourceEntityID]
		dst, okDst := owner[edge.TargetEntityID]
		if !okSrc || !okDst || src == dst {
			continue
		}
		pair := [2]int{src, dst}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		c, ok := crossings[pair]
		if !ok {
			c = &crossing{types: mapset.NewSet[string]()}
			crossings[pair] = c
		}
		c.count++
		c.types.Add(string(edge.Type))
	}

	pairs := make([][2]int, 0, len(crossings))
	for pair := range crossings {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	out := make([]graph.InterCommunityRelationship, 0, len(pairs))
	for _, pair := range pairs {
		c := crossings[pair]
		types := c.types.ToSlice()
		sort.Strings(types)
		out = append(out, graph.InterCommunityRelationship{
			SourceCommunityID: communities[pair[0]].ID,
			TargetCommunityID: communities[pair[1]].ID,
			RelationshipCount: c.count,
			RelationshipTypes: types,
		})
	}
	return out
}

// HandleNegation updates communities touched by a negated relationship:
// a community left with zero active edges among its members is marked
// dissolved, otherwise its confidence decays by 0.9. Any affected
// community triggers a full rebuild.
//
// Published snapshots are immutable; maintenance works on a copy and
// swaps it in, so readers holding the old pointer never see writes.
func (e *Engine) HandleNegation(ctx context.Context, sourceEntityID, targetEntityID string) []string {
	e.mu.Lock()
	var affected []string

	if e.current != nil {
		_, edges := e.repo.FetchActiveGraph(ctx)
		now := time.Now().UTC()

		next := copySnapshot(e.current)
		affected = dissolveOrDecay(next.Communities, sourceEntityID, targetEntityID, edges, now)
		for _, id := range affected {
			e.logger.Info("community affected by negation", zap.String("community_id", id))
		}

		if len(affected) > 0 {
			next.UpdatedAt = now
			e.repo.StoreCommunityGraph(ctx, next)
			e.current = next
		}
	}
	e.mu.Unlock()

	if len(affected) > 0 {
		e.Rebuild(ctx)
	}
	return affected
}

// copySnapshot duplicates the graph struct and its Communities slice.
// Member sets, central-entity lists and property maps are shared; they
// are never written after a snapshot is built.
func copySnapshot(cg *graph.CommunityGraph) *graph.CommunityGraph {
	next := *cg
	next.Communities = make([]graph.Community, len(cg.Communities))
	copy(next.Communities, cg.Communities)
	return &next
}

// dissolveOrDecay applies negation maintenance to every community
// holding either endpoint: zero remaining active internal edges marks
// it dissolved, otherwise its confidence decays by 0.9. Returns the
// ids of affected communities. Already-dissolved communities are
// skipped.
func dissolveOrDecay(communities []graph.Community, sourceEntityID, targetEntityID string, edges []graph.ActiveEdge, now time.Time) []string {
	var affected []string
	for i := range communities {
		c := &communities[i]
		if c.Dissolved() {
			continue
		}
		if !c.EntityIDs.Contains(sourceEntityID) && !c.EntityIDs.Contains(targetEntityID) {
			continue
		}
		affected = append(affected, c.ID)

		if activeEdgesWithin(c, edges) == 0 {
			dissolvedAt := now
			c.DissolvedAt = &dissolvedAt
			c.DissolvedReason = dissolveReason
		} else {
			c.Confidence = graph.ClampConfidence(c.Confidence * 0.9)
			c.UpdatedAt = now
		}
	}
	return affected
}

// activeEdgesWithin counts active edges whose endpoints are both
// community members.
func activeEdgesWithin(c *graph.Community, edges []graph.ActiveEdge) int {
	n := 0
	for _, edge := range edges {
		if c.EntityIDs.Contains(edge.SourceEntityID) && c.EntityIDs.Contains(edge.TargetEntityID) {
			n++
		}
	}
	return n
}
