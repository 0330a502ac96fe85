package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/aerodrift/constellation/internal/domain/model"
)

// binScaleKm is the geometric scale the bin width is chosen from.
var binScaleKm = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

const (
	maxBinsPerWidth = 40
	minBins         = 10
	maxBins         = 60
)

// Histogram is a pairwise-distance histogram plus its summary statistics.
type Histogram struct {
	Status   string  `json:"status"`
	Count    int     `json:"count"`
	MeanKm   float64 `json:"mean_km,omitempty"`
	MedianKm float64 `json:"median_km,omitempty"`
	BinKm    float64 `json:"bin_km,omitempty"`
	Bins     []int   `json:"bins,omitempty"`
}

// ChooseBinKm picks the smallest scale width such that maxKm spans at most
// 40 bins.
func ChooseBinKm(maxKm float64) float64 {
	for _, w := range binScaleKm {
		if maxKm/w <= maxBinsPerWidth {
			return w
		}
	}
	return binScaleKm[len(binScaleKm)-1]
}

// PairDistances computes the histogram of great-circle distances between
// every unordered pair of the latest in-viewport positions.
func (e *Engine) PairDistances(q Query) Histogram {
	if q.Viewport == nil {
		return Histogram{Status: StatusMapNotReady}
	}
	sel := e.Latest(q)
	if len(sel) == 0 {
		return Histogram{Status: StatusNoData}
	}

	var pts [][2]float64
	for _, r := range sel {
		if q.Viewport.Contains(r.Lat, r.Lon) {
			pts = append(pts, [2]float64{r.Lat, r.Lon})
		}
	}
	if len(pts) == 0 {
		return Histogram{Status: StatusNoPointsInViewport}
	}
	if len(pts) < 2 {
		return Histogram{Status: StatusTooFewPoints}
	}

	var dists []float64
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			dists = append(dists, Haversine(pts[i][0], pts[i][1], pts[j][0], pts[j][1]))
		}
	}
	return buildHistogram(dists)
}

// CrossDistances computes the histogram of distances between every latest
// in-viewport position and every position of an external set, e.g. live
// aircraft.
func (e *Engine) CrossDistances(q Query, others []model.Position) Histogram {
	if q.Viewport == nil {
		return Histogram{Status: StatusMapNotReady}
	}
	sel := e.Latest(q)
	if len(sel) == 0 {
		return Histogram{Status: StatusNoData}
	}

	var pts [][2]float64
	for _, r := range sel {
		if q.Viewport.Contains(r.Lat, r.Lon) {
			pts = append(pts, [2]float64{r.Lat, r.Lon})
		}
	}
	if len(pts) == 0 {
		return Histogram{Status: StatusNoPointsInViewport}
	}
	if len(others) == 0 {
		return Histogram{Status: StatusTooFewPoints}
	}

	var dists []float64
	for _, p := range pts {
		for _, o := range others {
			dists = append(dists, Haversine(p[0], p[1], o.Lat, o.Lon))
		}
	}
	return buildHistogram(dists)
}

func buildHistogram(dists []float64) Histogram {
	sort.Float64s(dists)
	maxKm := dists[len(dists)-1]

	width := ChooseBinKm(maxKm)
	n := int(math.Ceil(maxKm / width))
	if n < minBins {
		n = minBins
	}
	if n > maxBins {
		n = maxBins
	}

	bins := make([]int, n)
	for _, d := range dists {
		idx := int(d / width)
		if idx >= n {
			idx = n - 1
		}
		bins[idx]++
	}

	return Histogram{
		Status:   StatusOK,
		Count:    len(dists),
		MeanKm:   stat.Mean(dists, nil),
		MedianKm: Percentile(dists, 0.5),
		BinKm:    width,
		Bins:     bins,
	}
}
