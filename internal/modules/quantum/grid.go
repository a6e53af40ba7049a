package quantum

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// GridSummary describes the spread of a correlation grid.
type GridSummary struct {
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Mean  float64  `json:"mean"`
	MaxAt GridCell `json:"max_at"`
}

// GridCell locates a grid entry by its polar angles.
type GridCell struct {
	ThetaA float64 `json:"theta_a"`
	ThetaB float64 `json:"theta_b"`
}

// CorrelationGrid samples E(a, b) over θA, θB ∈ [0, 2π) with the given
// azimuths. Row i holds θB = 2πi/resolution, column j holds θA = 2πj/resolution,
// matching a heatmap with A on the horizontal axis.
func CorrelationGrid(state Vector4, resolution int, phiA, phiB float64) *mat.Dense {
	grid := mat.NewDense(resolution, resolution, nil)
	step := 2 * math.Pi / float64(resolution)
	for i := 0; i < resolution; i++ {
		thetaB := float64(i) * step
		for j := 0; j < resolution; j++ {
			thetaA := float64(j) * step
			grid.Set(i, j, ExpectationValue(state, thetaA, phiA, thetaB, phiB))
		}
	}
	return grid
}

// SummarizeGrid returns min, max and mean of a square correlation grid.
func SummarizeGrid(grid *mat.Dense) GridSummary {
	rows, cols := grid.Dims()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		values = append(values, grid.RawRowView(i)...)
	}

	idx := floats.MaxIdx(values)
	step := 2 * math.Pi / float64(cols)
	return GridSummary{
		Min:  floats.Min(values),
		Max:  values[idx],
		Mean: stat.Mean(values, nil),
		MaxAt: GridCell{
			ThetaA: float64(idx%cols) * step,
			ThetaB: float64(idx/cols) * step,
		},
	}
}

// GridRows copies the grid into row-major slices for serialisation.
func GridRows(grid *mat.Dense) [][]float64 {
	rows, _ := grid.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = mat.Row(nil, i, grid)
	}
	return out
}
