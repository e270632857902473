package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/luma/internal/imu"
)

// stdEpsilon is the spread below which skew and kurtosis are reported as 0.
const stdEpsilon = 1e-6

// Extractor computes feature vectors. It owns per-series scratch space so
// repeated extraction does not allocate; it is not safe for concurrent use.
type Extractor struct {
	ax, ay, az, am [imu.WindowSize]float64
	gx, gy, gz, gm [imu.WindowSize]float64
	jerk           [imu.WindowSize - 1]float64
}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes the feature vector of a window snapshot, oldest sample
// first. Identical input always yields an identical vector. Fewer than two
// samples yields a zero vector.
func (e *Extractor) Extract(samples []imu.Sample) Vector {
	var v Vector
	if len(samples) > imu.WindowSize {
		samples = samples[len(samples)-imu.WindowSize:]
	}
	n := len(samples)
	if n < 2 {
		return v
	}

	ax, ay, az, am := e.ax[:n], e.ay[:n], e.az[:n], e.am[:n]
	gx, gy, gz, gm := e.gx[:n], e.gy[:n], e.gz[:n], e.gm[:n]
	for i, s := range samples {
		ax[i] = float64(s.AccelX)
		ay[i] = float64(s.AccelY)
		az[i] = float64(s.AccelZ)
		am[i] = float64(s.AccelMag)
		gx[i] = float64(s.GyroX)
		gy[i] = float64(s.GyroY)
		gz[i] = float64(s.GyroZ)
		gm[i] = math.Sqrt(gx[i]*gx[i] + gy[i]*gy[i] + gz[i]*gz[i])
	}

	jerk := e.jerk[:n-1]
	dt := 1.0 / imu.SampleRateHz
	for i := range jerk {
		jerk[i] = math.Abs(am[i+1]-am[i]) / dt
	}

	accelSeries(v[AccelXBase:AccelXBase+accelStats], ax)
	accelSeries(v[AccelYBase:AccelYBase+accelStats], ay)
	accelSeries(v[AccelZBase:AccelZBase+accelStats], az)
	accelSeries(v[AccelMagBase:AccelMagBase+accelStats], am)
	gyroSeries(v[GyroXBase:GyroXBase+gyroStats], gx)
	gyroSeries(v[GyroYBase:GyroYBase+gyroStats], gy)
	gyroSeries(v[GyroZBase:GyroZBase+gyroStats], gz)

	v[GyroMagMean] = stat.Mean(gm, nil)
	v[GyroMagMax] = floats.Max(gm)

	jm, js := stat.PopMeanStdDev(jerk, nil)
	v[JerkMean] = jm
	v[JerkMax] = floats.Max(jerk)
	v[JerkStd] = js

	v[AccelEnergy] = floats.Dot(am, am) / float64(n)
	v[GyroEnergy] = floats.Dot(gm, gm) / float64(n)

	v[GyroXZCR] = zeroCrossingRate(gx)
	v[GyroYZCR] = zeroCrossingRate(gy)
	v[GyroZZCR] = zeroCrossingRate(gz)

	v[PeakPos] = float64(floats.MaxIdx(am)) / float64(n)
	return v
}

func accelSeries(dst []float64, x []float64) {
	mean, std := stat.PopMeanStdDev(x, nil)
	hi, lo := floats.Max(x), floats.Min(x)
	dst[statMean] = mean
	dst[statStd] = std
	dst[statMax] = hi
	dst[statMin] = lo
	dst[statRange] = hi - lo
	dst[statMedian] = mean
	dst[statSkew], dst[statKurtosis] = standardMoments(x, mean, std)
}

func gyroSeries(dst []float64, x []float64) {
	mean, std := stat.PopMeanStdDev(x, nil)
	hi, lo := floats.Max(x), floats.Min(x)
	dst[statMean] = mean
	dst[statStd] = std
	dst[statMax] = hi
	dst[statMin] = lo
	dst[statRange] = hi - lo
	dst[statAbsMax] = max(math.Abs(hi), math.Abs(lo))
}

// standardMoments returns skewness and excess kurtosis from the population
// third and fourth standardized moments.
func standardMoments(x []float64, mean, std float64) (skew, kurt float64) {
	if std < stdEpsilon {
		return 0, 0
	}
	var m3, m4 float64
	for _, v := range x {
		z := (v - mean) / std
		z2 := z * z
		m3 += z2 * z
		m4 += z2 * z2
	}
	n := float64(len(x))
	return m3 / n, m4/n - 3
}

// zeroCrossingRate counts sign changes about the mean, divided by 2N.
func zeroCrossingRate(x []float64) float64 {
	mean := stat.Mean(x, nil)
	crossings := 0
	for i := 1; i < len(x); i++ {
		if (x[i]-mean)*(x[i-1]-mean) < 0 {
			crossings++
		}
	}
	return float64(crossings) / (2 * float64(len(x)))
}
