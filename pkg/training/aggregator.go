package training

import (
	"fmt"
	"math"
	"strings"

	"github.com/boristopalov/gridnav/pkg/core"
	"gonum.org/v1/gonum/stat"
)

// RecentWindow is the number of trailing episodes in Last50SuccessRate.
const RecentWindow = 50

// Summary reduces one batch-training response. Values are kept at full
// precision; use Rounded for display.
type Summary struct {
	EpisodesTrained   int
	SuccessRate       float64
	Last50SuccessRate float64
	AverageSteps      float64
	FinalEpsilon      float64
}

// Summarize computes the success rates and mean episode length of resp.
func Summarize(resp core.TrainResponse) Summary {
	sum := Summary{
		EpisodesTrained: resp.EpisodesTrained,
		FinalEpsilon:    resp.Epsilon,
	}
	if len(resp.Results) == 0 {
		return sum
	}

	steps := make([]float64, len(resp.Results))
	for i, r := range resp.Results {
		steps[i] = float64(r.Steps)
	}
	sum.SuccessRate = successRate(resp.Results)
	sum.Last50SuccessRate = successRate(tail(resp.Results, RecentWindow))
	sum.AverageSteps = stat.Mean(steps, nil)
	return sum
}

func successRate(results []core.EpisodeResult) float64 {
	if len(results) == 0 {
		return 0
	}
	reached := 0
	for _, r := range results {
		if r.ReachedTarget {
			reached++
		}
	}
	return float64(reached) / float64(len(results)) * 100
}

func tail(results []core.EpisodeResult, n int) []core.EpisodeResult {
	if len(results) <= n {
		return results
	}
	return results[len(results)-n:]
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// Rounded returns s with percentages and the average at one decimal place
// and epsilon at three.
func (s Summary) Rounded() Summary {
	return Summary{
		EpisodesTrained:   s.EpisodesTrained,
		SuccessRate:       Round(s.SuccessRate, 1),
		Last50SuccessRate: Round(s.Last50SuccessRate, 1),
		AverageSteps:      Round(s.AverageSteps, 1),
		FinalEpsilon:      Round(s.FinalEpsilon, 3),
	}
}

func (s Summary) String() string {
	r := s.Rounded()
	var b strings.Builder
	fmt.Fprintf(&b, "Episodes trained: %d\n", r.EpisodesTrained)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", r.SuccessRate)
	fmt.Fprintf(&b, "Last %d success rate: %.1f%%\n", RecentWindow, r.Last50SuccessRate)
	fmt.Fprintf(&b, "Average steps: %.1f\n", r.AverageSteps)
	fmt.Fprintf(&b, "Final epsilon: %.3f", r.FinalEpsilon)
	return b.String()
}
