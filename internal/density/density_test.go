package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbiir/gpxaudit/internal/errs"
)

func TestEstimateRejectsBandwidth(t *testing.T) {
	for _, h := range []float64{0, -0.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		res, err := Estimate([]float64{1, 2, 3}, h, 0)
		require.Error(t, err, "bandwidth %v", h)
		assert.ErrorIs(t, err, ErrInvalidBandwidth)
		assert.True(t, errs.IsValidation(err))
		assert.Empty(t, res.Curve)
	}
}

func TestEstimateRejectsGridSize(t *testing.T) {
	_, err := Estimate([]float64{1, 2, 3}, 0.5, -1)
	assert.ErrorIs(t, err, ErrInvalidGridSize)
	assert.True(t, errs.IsValidation(err))
}

func TestEstimateNoUsableValues(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"nil", nil},
		{"non-positive and non-finite", []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Estimate(tc.values, 0.3, 0)
			require.NoError(t, err)
			assert.True(t, res.Empty())
			assert.NotNil(t, res.Curve)
			assert.Empty(t, res.Curve)
			assert.Empty(t, res.Peaks)
		})
	}
}

func TestEstimateGrid(t *testing.T) {
	values := []float64{1, 10, 100, -5, 0}

	t.Run("default resolution", func(t *testing.T) {
		res, err := Estimate(values, 0.5, 0)
		require.NoError(t, err)
		assert.Len(t, res.Curve, DefaultGridSize)
		assert.Equal(t, 3, res.N)
	})

	t.Run("spans exactly the log range", func(t *testing.T) {
		res, err := Estimate(values, 0.5, 50)
		require.NoError(t, err)
		require.Len(t, res.Curve, 50)

		assert.Equal(t, 0.0, res.Curve[0].XLog)
		assert.InDelta(t, math.Log(100), res.Curve[49].XLog, 1e-12)

		step := res.Curve[1].XLog - res.Curve[0].XLog
		for i := 1; i < len(res.Curve); i++ {
			assert.GreaterOrEqual(t, res.Curve[i].XLog, res.Curve[i-1].XLog)
			assert.InDelta(t, step, res.Curve[i].XLog-res.Curve[i-1].XLog, 1e-12)
		}
		for _, p := range res.Curve {
			assert.InDelta(t, math.Exp(p.XLog), p.XLinear, 1e-9)
			assert.GreaterOrEqual(t, p.Y, 0.0)
		}
	})

	t.Run("single sample grid", func(t *testing.T) {
		res, err := Estimate(values, 0.5, 1)
		require.NoError(t, err)
		require.Len(t, res.Curve, 1)
		assert.Equal(t, 0.0, res.Curve[0].XLog)
		assert.Empty(t, res.Peaks)
	})
}

func TestEstimateSingleValue(t *testing.T) {
	const h = 0.4
	res, err := Estimate([]float64{250}, h, 10)
	require.NoError(t, err)
	require.Len(t, res.Curve, 10)

	want := 1 / (h * math.Sqrt(2*math.Pi))
	for _, p := range res.Curve {
		assert.Equal(t, math.Log(250), p.XLog)
		assert.InDelta(t, want, p.Y, 1e-12)
	}
	assert.Empty(t, res.Peaks, "a flat curve has no strict maxima")
}

func TestEstimateKernelSum(t *testing.T) {
	const h = 0.7
	values := []float64{math.E, math.Exp(2)}
	res, err := Estimate(values, h, 3)
	require.NoError(t, err)

	// the middle sample sits half way between ln values 1 and 2
	z := 0.5 / h
	want := 2 * math.Exp(-0.5*z*z) / (2 * h * math.Sqrt(2*math.Pi))
	assert.InDelta(t, 1.5, res.Curve[1].XLog, 1e-12)
	assert.InDelta(t, want, res.Curve[1].Y, 1e-12)
}

func TestEstimateBimodal(t *testing.T) {
	var values []float64
	for i := range 20 {
		values = append(values, 1+float64(i%5)*0.01, 100+float64(i%5))
	}

	res, err := Estimate(values, 0.2, 0)
	require.NoError(t, err)
	require.Len(t, res.Peaks, 2)
	assert.InDelta(t, 1.0, res.Peaks[0].XLinear, 0.2)
	assert.InDelta(t, 102, res.Peaks[1].XLinear, 10)

	for _, p := range res.Peaks {
		assert.Equal(t, res.Curve[p.Index], p.CurvePoint)
	}
}

func TestEstimateDefault(t *testing.T) {
	values := []float64{1000, 1000, 2000, 1000, 5000, 1000}
	res, err := EstimateDefault(values, 0)
	require.NoError(t, err)
	assert.InDelta(t, SilvermanBandwidth(values), res.Bandwidth, 1e-15)
	assert.Len(t, res.Curve, DefaultGridSize)
}

func TestSilvermanBandwidth(t *testing.T) {
	t.Run("log-space rule of thumb", func(t *testing.T) {
		values := []float64{math.Exp(1), math.Exp(2), math.Exp(3), math.Exp(4), math.Exp(5)}
		want := 1.06 * math.Sqrt(2.5) * math.Pow(5, -0.2)
		assert.InDelta(t, want, SilvermanBandwidth(values), 1e-9)
	})
	t.Run("ignores unusable values", func(t *testing.T) {
		clean := []float64{math.Exp(1), math.Exp(2), math.Exp(3)}
		dirty := append([]float64{0, -3, math.NaN()}, clean...)
		assert.InDelta(t, SilvermanBandwidth(clean), SilvermanBandwidth(dirty), 1e-12)
	})
	t.Run("fallbacks", func(t *testing.T) {
		assert.Equal(t, FallbackBandwidth, SilvermanBandwidth(nil))
		assert.Equal(t, FallbackBandwidth, SilvermanBandwidth([]float64{12}))
		assert.Equal(t, FallbackBandwidth, SilvermanBandwidth([]float64{0.1, 0.1, 0.1}))
		assert.Equal(t, FallbackBandwidth, SilvermanBandwidth([]float64{-1, 0, 4}))
	})
}
