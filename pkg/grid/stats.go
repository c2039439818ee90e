package grid

import (
	"gonum.org/v1/gonum/stat"
)

// Utilization summarizes demand/supply ratios over every unblocked unit edge
// with positive supply. Edges leading off the grid are skipped.
type Utilization struct {
	Mean          float64 `json:"mean" bson:"mean"`
	StdDev        float64 `json:"std_dev" bson:"std_dev"`
	Max           float64 `json:"max" bson:"max"`
	OverflowEdges int     `json:"overflow_edges" bson:"overflow_edges"`
	TotalOverflow int     `json:"total_overflow" bson:"total_overflow"`
}

// Utilization computes usage statistics for the current demand.
func (g *Graph) Utilization() Utilization {
	var ratios []float64
	var u Utilization
	for z := 0; z < g.nz; z++ {
		for y := 0; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				for d := Dir(0); d < planarDirs; d++ {
					if (d == East && x == g.nx-1) || (d == North && y == g.ny-1) {
						continue
					}
					if over := g.Overflow(x, y, z, d); over > 0 {
						u.OverflowEdges++
						u.TotalOverflow += over
					}
					supply := g.RawSupply(x, y, z, d)
					if supply <= 0 || g.Blocked(x, y, z, d) {
						continue
					}
					r := float64(g.RawDemand(x, y, z, d)) / float64(supply)
					ratios = append(ratios, r)
					u.Max = max(u.Max, r)
				}
			}
		}
	}
	switch {
	case len(ratios) > 1:
		u.Mean, u.StdDev = stat.MeanStdDev(ratios, nil)
	case len(ratios) == 1:
		u.Mean = ratios[0]
	}
	return u
}
