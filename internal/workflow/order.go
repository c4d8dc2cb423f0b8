package workflow

import (
	"fmt"
	"slices"
	"strings"
)

// Order groups jobs into levels: every job's requirements sit in earlier levels,
// so jobs within one level can run concurrently. Declaration order is kept inside
// a level. A requirement cycle is an error.
func (c *Config) Order() ([][]*Job, error) {
	nodes := make([]node, len(c.Jobs))
	for i := range c.Jobs {
		nodes[i] = node{name: c.Jobs[i].Name, deps: c.Jobs[i].Requires}
	}
	levels, err := levelize(nodes)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: jobs: %w", c.Name, err)
	}
	out := make([][]*Job, len(levels))
	for l, idx := range levels {
		for _, i := range idx {
			out[l] = append(out[l], &c.Jobs[i])
		}
	}
	return out, nil
}

// DockerOrder returns images so that each comes after the images it depends on.
func (c *Config) DockerOrder() ([]*Docker, error) {
	nodes := make([]node, len(c.Dockers))
	for i := range c.Dockers {
		nodes[i] = node{name: c.Dockers[i].Name, deps: c.Dockers[i].DependsOn}
	}
	levels, err := levelize(nodes)
	if err != nil {
		return nil, fmt.Errorf("workflow %q: dockers: %w", c.Name, err)
	}
	var out []*Docker
	for _, idx := range levels {
		for _, i := range idx {
			out = append(out, &c.Dockers[i])
		}
	}
	return out, nil
}

type node struct {
	name string
	deps []string
}

// levelize is Kahn's algorithm emitting one level per round. Unknown
// dependencies are ignored here; Validate reports them.
func levelize(nodes []node) ([][]int, error) {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.name] = i
	}
	indegree := make([]int, len(nodes))
	dependents := make([][]int, len(nodes))
	for i, n := range nodes {
		for _, d := range n.deps {
			j, ok := index[d]
			if !ok {
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var levels [][]int
	var current []int
	for i := range nodes {
		if indegree[i] == 0 {
			current = append(current, i)
		}
	}
	seen := 0
	for len(current) > 0 {
		levels = append(levels, current)
		seen += len(current)
		var next []int
		for _, i := range current {
			for _, d := range dependents[i] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		slices.Sort(next)
		current = next
	}
	if seen != len(nodes) {
		var stuck []string
		for i, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, nodes[i].name)
			}
		}
		return nil, fmt.Errorf("dependency cycle among %s", strings.Join(stuck, ", "))
	}
	return levels, nil
}
