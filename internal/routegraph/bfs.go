package routegraph

import (
	"errors"

	"github.com/Rhujeraphorn/web-evana/internal/label"
	"github.com/Rhujeraphorn/web-evana/internal/model"
)

var ErrNoPathFound = errors.New("no path found")

type hop struct {
	prev string
	seg  *model.Segment
}

// ShortestPath finds a path with the fewest segments between two normalised
// keys. Among equally short paths the first discovered wins, so the result
// depends on adjacency order, which is source load order.
func (g *Graph) ShortestPath(start, end string) (model.PathResult, error) {
	if start == end {
		return model.PathResult{Path: []*model.Segment{}}, nil
	}

	prev := map[string]hop{}
	visited := map[string]bool{start: true}
	queue := []string{start}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if u == end {
			break
		}
		for _, s := range g.adj[u] {
			v := label.Normalize(s.To)
			if v == "" || visited[v] {
				continue
			}
			visited[v] = true
			prev[v] = hop{prev: u, seg: s}
			queue = append(queue, v)
		}
	}
	if _, ok := prev[end]; !ok {
		return model.PathResult{}, ErrNoPathFound
	}

	var path []*model.Segment
	for cur := end; cur != start; {
		h := prev[cur]
		path = append(path, h.seg)
		cur = h.prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return summarize(path), nil
}

func summarize(path []*model.Segment) model.PathResult {
	res := model.PathResult{Path: path}
	for _, s := range path {
		res.TotalDist += value(s.DistanceKm)
		res.TotalTime += value(s.TravelTimeMin)
		res.TotalEnergy += value(s.EnergyKWh)
		res.TotalCost += value(s.EVCostTHB)
	}
	return res
}

func value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Search resolves both endpoints with Match and returns the shortest path.
func (g *Graph) Search(fromText, toText string) (model.PathResult, error) {
	start, err := g.Match(fromText)
	if err != nil {
		return model.PathResult{}, err
	}
	end, err := g.Match(toText)
	if err != nil {
		return model.PathResult{}, err
	}
	return g.ShortestPath(start, end)
}
