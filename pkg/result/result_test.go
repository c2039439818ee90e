package result

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/gridroute/pkg/router"
)

func TestIterations(t *testing.T) {
	p00 := router.Report{Worker: "p0.0", Iterations: []router.IterationStats{
		{Iteration: 1, Rerouted: 2, TotalOverflow: 3, Wirelength: 10, Duration: time.Millisecond},
		{Iteration: 2, Rerouted: 1, Wirelength: 11, Duration: time.Millisecond},
	}}
	p11 := router.Report{Worker: "p1.1", Iterations: []router.IterationStats{
		{Iteration: 1, Rerouted: 1, OverflowEdges: 1, TotalOverflow: 1, Vias: 2, Duration: 3 * time.Millisecond},
	}}
	global := router.Report{Worker: GlobalWorker, Iterations: []router.IterationStats{
		{Iteration: 1, Rerouted: 4, Wirelength: 30},
	}}

	tests := []struct {
		name    string
		workers []router.Report
		want    []router.IterationStats
	}{
		{"no workers", nil, nil},
		{"global worker wins", []router.Report{p00, p11, global}, global.Iterations},
		{"partitions only are merged", []router.Report{p00, p11}, []router.IterationStats{
			{Iteration: 1, Rerouted: 3, OverflowEdges: 1, TotalOverflow: 4, Wirelength: 10, Vias: 2, Duration: 3 * time.Millisecond},
			{Iteration: 2, Rerouted: 1, Wirelength: 11, Duration: time.Millisecond},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Result{Workers: tt.workers}
			if diff := cmp.Diff(tt.want, r.Iterations()); diff != "" {
				t.Errorf("Iterations() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOK(t *testing.T) {
	assert.True(t, (&Result{}).OK())
	assert.False(t, (&Result{Failed: []string{"clk"}}).OK())
}
