package replay

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/pacechart/internal/adapters/metadata"
	"github.com/okian/pacechart/internal/domain/model"
)

// Random walk parameters, in doses per million per day.
const (
	walkStartMax = 2000.0
	walkStepMax  = 150.0
	walkDrift    = 8.0
)

// GenerateDataset builds a newest-first dataset of n countries taken from the
// embedded directory, each with days samples following a random walk. The
// same seed always yields the same dataset.
func GenerateDataset(seed uint64, n, days int) *model.RawSeriesMap {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	codes := metadata.Default().Codes()
	rng.Shuffle(len(codes), func(i, j int) { codes[i], codes[j] = codes[j], codes[i] })
	if n > len(codes) {
		n = len(codes)
	}

	raw := model.NewRawSeriesMap()
	for _, code := range codes[:n] {
		raw.Set(code, walk(rng, days))
	}
	return raw
}

// walk returns days samples, newest first.
func walk(rng *rand.Rand, days int) []float64 {
	out := make([]float64, days)
	v := rng.Float64() * walkStartMax
	for i := days - 1; i >= 0; i-- {
		out[i] = math.Round(v*10) / 10
		v = math.Max(0, v+walkDrift+(rng.Float64()*2-1)*walkStepMax)
	}
	return out
}

// GenerateUpdates builds count updates against countries of raw, each with a
// fresh update id and a prefix-extended series.
func GenerateUpdates(seed uint64, raw *model.RawSeriesMap, count int) []model.SeriesUpdate {
	codes := raw.Codes()
	if len(codes) == 0 || count <= 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed+1, seed))
	out := make([]model.SeriesUpdate, count)
	for i := range out {
		code := codes[rng.IntN(len(codes))]
		prev, _ := raw.Get(code)
		next := rng.Float64() * walkStartMax
		if len(prev) > 0 {
			next = math.Max(0, prev[0]+walkDrift+(rng.Float64()*2-1)*walkStepMax)
		}
		out[i] = model.SeriesUpdate{
			UpdateID: uuid.NewString(),
			Country:  code,
			Samples:  append([]float64{math.Round(next*10) / 10}, prev...),
		}
	}
	return out
}
