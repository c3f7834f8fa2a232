package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// improvementTol is the minimum cost decrease a swap must achieve
const improvementTol = 1e-10

// distanceMatrix returns pairwise Euclidean distances between rows
func distanceMatrix(features *mat.Dense) *mat.SymDense {
	n, _ := features.Dims()
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		ri := features.RawRowView(i)
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, euclidean(ri, features.RawRowView(j)))
		}
	}
	return dist
}

// distinctRows counts rows that are not exact duplicates of an earlier row
func distinctRows(dist *mat.SymDense) int {
	n := dist.SymmetricDim()
	count := 0
	for i := 0; i < n; i++ {
		dup := false
		for j := 0; j < i; j++ {
			if dist.At(i, j) == 0 {
				dup = true
				break
			}
		}
		if !dup {
			count++
		}
	}
	return count
}

// pam runs Partitioning Around Medoids with a greedy BUILD phase followed by
// best-improvement SWAP passes. Ties always resolve to the lowest index, so
// the result depends only on the distance matrix.
func pam(dist *mat.SymDense, k, maxIter int) (medoids []int, iterations int) {
	n := dist.SymmetricDim()
	medoids = build(dist, k)

	nearest := make([]float64, n)
	second := make([]float64, n)
	owner := make([]int, n) // position in medoids of the nearest medoid

	for iterations = 0; iterations < maxIter; iterations++ {
		assignNearest(dist, medoids, nearest, second, owner)

		isMedoid := make([]bool, n)
		for _, m := range medoids {
			isMedoid[m] = true
		}

		bestDelta := -improvementTol
		bestSlot, bestCandidate := -1, -1
		for slot := range medoids {
			for o := 0; o < n; o++ {
				if isMedoid[o] {
					continue
				}
				delta := 0.0
				for j := 0; j < n; j++ {
					doj := dist.At(o, j)
					if owner[j] == slot {
						delta += math.Min(doj, second[j]) - nearest[j]
					} else if doj < nearest[j] {
						delta += doj - nearest[j]
					}
				}
				if delta < bestDelta {
					bestDelta = delta
					bestSlot, bestCandidate = slot, o
				}
			}
		}

		if bestSlot < 0 {
			break
		}
		medoids[bestSlot] = bestCandidate
	}

	return medoids, iterations
}

// build greedily picks k initial medoids
func build(dist *mat.SymDense, k int) []int {
	n := dist.SymmetricDim()
	medoids := make([]int, 0, k)
	chosen := make([]bool, n)

	// First medoid minimizes the total distance to all points
	first, bestCost := 0, math.Inf(1)
	for i := 0; i < n; i++ {
		cost := 0.0
		for j := 0; j < n; j++ {
			cost += dist.At(i, j)
		}
		if cost < bestCost {
			first, bestCost = i, cost
		}
	}
	medoids = append(medoids, first)
	chosen[first] = true

	nearest := make([]float64, n)
	for j := 0; j < n; j++ {
		nearest[j] = dist.At(first, j)
	}

	for len(medoids) < k {
		best, bestGain := -1, -1.0
		for i := 0; i < n; i++ {
			if chosen[i] {
				continue
			}
			gain := 0.0
			for j := 0; j < n; j++ {
				if d := dist.At(i, j); d < nearest[j] {
					gain += nearest[j] - d
				}
			}
			if gain > bestGain {
				best, bestGain = i, gain
			}
		}
		medoids = append(medoids, best)
		chosen[best] = true
		for j := 0; j < n; j++ {
			if d := dist.At(best, j); d < nearest[j] {
				nearest[j] = d
			}
		}
	}

	return medoids
}

// assignNearest fills the nearest and second nearest medoid distances and the
// owning medoid slot of every point. A medoid always owns itself.
func assignNearest(dist *mat.SymDense, medoids []int, nearest, second []float64, owner []int) {
	for j := range nearest {
		nearest[j], second[j] = math.Inf(1), math.Inf(1)
		owner[j] = -1
		for slot, m := range medoids {
			d := dist.At(m, j)
			if m == j {
				d = -1 // forces self ownership on exact duplicates
			}
			if d < nearest[j] {
				second[j] = nearest[j]
				nearest[j], owner[j] = d, slot
			} else if d < second[j] {
				second[j] = d
			}
		}
		if nearest[j] < 0 {
			nearest[j] = 0
		}
	}
}

// totalCost returns the sum of distances of every point to its medoid
func totalCost(dist *mat.SymDense, medoids []int) float64 {
	n := dist.SymmetricDim()
	nearest := make([]float64, n)
	second := make([]float64, n)
	owner := make([]int, n)
	assignNearest(dist, medoids, nearest, second, owner)
	return floats.Sum(nearest)
}

func euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}
