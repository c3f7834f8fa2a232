package model

// ClusterSet is the result of one clustering run.
//
// Cluster ids are positions in Exemplars, which is sorted ascending by period
// index. Count[i] is the number of periods represented by Exemplars[i].
type ClusterSet struct {
	Count       []int `json:"count"`
	Exemplars   []int `json:"exemplars"`
	Assignments []int `json:"assignments"` // cluster id of every period
	Requested   int   `json:"requested"`   // n_cluster asked for before clamping
}

// Len returns the achieved number of clusters
func (c ClusterSet) Len() int {
	return len(c.Count)
}

// Clamped returns true if fewer clusters were produced than requested
func (c ClusterSet) Clamped() bool {
	return c.Len() < c.Requested
}

// Periods returns the total number of periods covered
func (c ClusterSet) Periods() int {
	return len(c.Assignments)
}

// Weights returns each cluster's share of all periods
func (c ClusterSet) Weights() []float64 {
	total := 0
	for _, n := range c.Count {
		total += n
	}
	weights := make([]float64, len(c.Count))
	if total == 0 {
		return weights
	}
	for i, n := range c.Count {
		weights[i] = float64(n) / float64(total)
	}
	return weights
}

// Members returns the period indices assigned to a cluster in ascending order
func (c ClusterSet) Members(clusterID int) []int {
	var members []int
	for p, id := range c.Assignments {
		if id == clusterID {
			members = append(members, p)
		}
	}
	return members
}

// ClusterOf returns the cluster id of the cluster whose exemplar is period p,
// or -1 if p is not an exemplar
func (c ClusterSet) ClusterOf(p int) int {
	for i, e := range c.Exemplars {
		if e == p {
			return i
		}
	}
	return -1
}
