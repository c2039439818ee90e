package router

import "time"

// IterationStats summarizes one negotiation round.
type IterationStats struct {
	Iteration     int           `json:"iteration" bson:"iteration"`
	Rerouted      int           `json:"rerouted" bson:"rerouted"`
	Failed        int           `json:"failed" bson:"failed"`
	OverflowEdges int           `json:"overflow_edges" bson:"overflow_edges"`
	TotalOverflow int           `json:"total_overflow" bson:"total_overflow"`
	Wirelength    int           `json:"wirelength" bson:"wirelength"`
	Vias          int           `json:"vias" bson:"vias"`
	Duration      time.Duration `json:"duration_ns" bson:"duration_ns"`
}

// Report is the outcome of Worker.Run.
type Report struct {
	Worker     string           `json:"worker" bson:"worker"`
	Mode       Mode             `json:"mode" bson:"mode"`
	Iterations []IterationStats `json:"iterations" bson:"iterations"`

	// Failed lists the nets left with unconnected terminals.
	Failed []string `json:"failed,omitempty" bson:"failed,omitempty"`
}

func (r *Report) finish(w *Worker) {
	r.Failed = nil
	for _, ns := range w.nets {
		if !ns.net.Complete() {
			r.Failed = append(r.Failed, ns.net.Name())
		}
	}
}

// OK reports whether every net is fully connected.
func (r *Report) OK() bool { return len(r.Failed) == 0 }

// Last returns the stats of the final round, or zero stats if none ran.
func (r *Report) Last() IterationStats {
	if len(r.Iterations) == 0 {
		return IterationStats{}
	}
	return r.Iterations[len(r.Iterations)-1]
}
