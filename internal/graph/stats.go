package graph

import (
	"fmt"
	"log/slog"
)

// Statistics is the result of one metrics batch. A metric that could not be computed holds its
// sentinel (-1 or an empty collection) and its reason is kept in Errors.
type Statistics struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	Degrees    []NodeValue `json:"degrees"`
	InDegrees  []NodeValue `json:"in_degrees"`
	OutDegrees []NodeValue `json:"out_degrees"`
	CallCounts []NodeValue `json:"call_counts"`

	DegreeAssortativity       float64             `json:"degree_assortativity"`
	AverageNeighborDegree     map[string]float64  `json:"average_neighbor_degree"`
	AverageDegreeConnectivity map[int]float64     `json:"average_degree_connectivity"`
	DegreeMixing              map[int]map[int]int `json:"degree_mixing"`

	ConnectedComponents        [][]string `json:"connected_components"`
	NumberConnectedComponents  int        `json:"number_connected_components"`
	AttractingComponents       [][]string `json:"attracting_components"`
	NumberAttractingComponents int        `json:"number_attracting_components"`

	SimpleCycles          [][]string `json:"simple_cycles"`
	RecursiveSimpleCycles [][]string `json:"recursive_simple_cycles"`
	FindCycle             []Edge     `json:"find_cycle"`
	IsDirectedAcyclic     bool       `json:"is_directed_acyclic"`

	Center    []string `json:"center"`
	Diameter  int      `json:"diameter"`
	Periphery []string `json:"periphery"`
	Radius    int      `json:"radius"`

	ShortestPaths map[string]map[string][]string `json:"shortest_paths"`
	FloydWarshall map[string]map[string]int64    `json:"floyd_warshall"`

	Errors map[string]string `json:"errors,omitempty"`
}

// ComputeStatistics runs every metric on g. Each metric runs in isolation: an error or a panic in
// one is logged and recorded, and the others still run.
func ComputeStatistics(g *Graph, logger *slog.Logger) Statistics {
	if logger == nil {
		logger = slog.Default()
	}
	s := Statistics{
		Nodes:                      g.NumberOfNodes(),
		Edges:                      g.NumberOfEdges(),
		Degrees:                    []NodeValue{},
		InDegrees:                  []NodeValue{},
		OutDegrees:                 []NodeValue{},
		CallCounts:                 []NodeValue{},
		DegreeAssortativity:        -1,
		AverageNeighborDegree:      map[string]float64{},
		AverageDegreeConnectivity:  map[int]float64{},
		DegreeMixing:               map[int]map[int]int{},
		ConnectedComponents:        [][]string{},
		NumberConnectedComponents:  -1,
		AttractingComponents:       [][]string{},
		NumberAttractingComponents: -1,
		SimpleCycles:               [][]string{},
		RecursiveSimpleCycles:      [][]string{},
		FindCycle:                  []Edge{},
		Center:                     []string{},
		Diameter:                   -1,
		Periphery:                  []string{},
		Radius:                     -1,
		ShortestPaths:              map[string]map[string][]string{},
		FloydWarshall:              map[string]map[string]int64{},
		Errors:                     map[string]string{},
	}

	run := func(metric string, fn func() error) {
		err := isolate(fn)
		if err == nil {
			return
		}
		s.Errors[metric] = err.Error()
		logger.Warn("Graph metric not computed", "graph", g.Name(), "metric", metric, "reason", err)
	}

	run("degrees", func() error {
		s.Degrees = g.Degrees(true)
		s.InDegrees = g.InDegrees(true)
		s.OutDegrees = g.OutDegrees(true)
		s.CallCounts = g.CallCounts("", true)
		return nil
	})
	run("degree_assortativity", func() error {
		v, err := g.DegreeAssortativity()
		if err != nil {
			return err
		}
		s.DegreeAssortativity = v
		return nil
	})
	run("average_neighbor_degree", func() error {
		s.AverageNeighborDegree = g.AverageNeighborDegree()
		return nil
	})
	run("average_degree_connectivity", func() error {
		s.AverageDegreeConnectivity = g.AverageDegreeConnectivity()
		return nil
	})
	run("degree_mixing", func() error {
		s.DegreeMixing = g.DegreeMixing()
		return nil
	})
	run("connected_components", func() error {
		comps := g.ConnectedComponents()
		s.ConnectedComponents = comps
		s.NumberConnectedComponents = len(comps)
		return nil
	})
	run("attracting_components", func() error {
		comps := g.AttractingComponents()
		s.AttractingComponents = comps
		s.NumberAttractingComponents = len(comps)
		return nil
	})
	run("simple_cycles", func() error {
		s.SimpleCycles = g.SimpleCycles()
		return nil
	})
	run("recursive_simple_cycles", func() error {
		cycles, err := g.RecursiveSimpleCycles(DefaultRecursionLimit)
		if err != nil {
			return err
		}
		s.RecursiveSimpleCycles = cycles
		return nil
	})
	run("find_cycle", func() error {
		cycle, err := g.FindCycle()
		s.IsDirectedAcyclic = err != nil
		if err != nil {
			return err
		}
		s.FindCycle = cycle
		return nil
	})
	run("center", func() error {
		c, err := g.Center()
		if err != nil {
			return err
		}
		s.Center = c
		return nil
	})
	run("diameter", func() error {
		d, err := g.Diameter()
		if err != nil {
			return err
		}
		s.Diameter = d
		return nil
	})
	run("periphery", func() error {
		p, err := g.Periphery()
		if err != nil {
			return err
		}
		s.Periphery = p
		return nil
	})
	run("radius", func() error {
		r, err := g.Radius()
		if err != nil {
			return err
		}
		s.Radius = r
		return nil
	})
	run("shortest_paths", func() error {
		s.ShortestPaths = g.ShortestPaths()
		return nil
	})
	run("floyd_warshall", func() error {
		fw, err := g.FloydWarshall()
		if err != nil {
			return err
		}
		s.FloydWarshall = fw
		return nil
	})

	return s
}

func isolate(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
