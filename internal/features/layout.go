// Package features turns a full IMU window into the fixed 61-entry vector the
// deployed decision tree was trained on.
package features

// Count is the feature vector length. It is part of the contract with the
// trained classifier.
const Count = 61

// Vector is one window's features, indexed by the constants below.
type Vector [Count]float64

// Per-series statistic offsets. Each accel series has 8 slots, each gyro axis 6.
const (
	statMean = iota
	statStd
	statMax
	statMin
	statRange
	statMedian // equals the mean; the tree was trained on it that way
	statSkew
	statKurtosis
	accelStats

	statAbsMax = statMedian // gyro axes carry abs-max in the sixth slot
	gyroStats  = 6
)

const (
	AccelXBase   = 0
	AccelYBase   = AccelXBase + accelStats
	AccelZBase   = AccelYBase + accelStats
	AccelMagBase = AccelZBase + accelStats
	GyroXBase    = AccelMagBase + accelStats
	GyroYBase    = GyroXBase + gyroStats
	GyroZBase    = GyroYBase + gyroStats

	GyroMagMean = GyroZBase + gyroStats
	GyroMagMax  = GyroMagMean + 1
	JerkMean    = GyroMagMax + 1
	JerkMax     = JerkMean + 1
	JerkStd     = JerkMax + 1
	AccelEnergy = JerkStd + 1
	GyroEnergy  = AccelEnergy + 1
	GyroXZCR    = GyroEnergy + 1
	GyroYZCR    = GyroXZCR + 1
	GyroZZCR    = GyroYZCR + 1
	PeakPos     = GyroZZCR + 1

	used = PeakPos + 1
)

// Indices the heuristic classifier reads.
const (
	AccelZStd   = AccelZBase + statStd
	AccelMagStd = AccelMagBase + statStd
	AccelMagMax = AccelMagBase + statMax
)

// Names labels each index for debug output and recorded vectors.
var Names = func() [Count]string {
	var n [Count]string
	accel := [accelStats]string{"mean", "std", "max", "min", "range", "median", "skew", "kurtosis"}
	gyro := [gyroStats]string{"mean", "std", "max", "min", "range", "abs_max"}
	for i, series := range []string{"accel_x", "accel_y", "accel_z", "accel_mag"} {
		for j, stat := range accel {
			n[AccelXBase+i*accelStats+j] = series + "_" + stat
		}
	}
	for i, axis := range []string{"gyro_x", "gyro_y", "gyro_z"} {
		for j, stat := range gyro {
			n[GyroXBase+i*gyroStats+j] = axis + "_" + stat
		}
	}
	n[GyroMagMean] = "gyro_mag_mean"
	n[GyroMagMax] = "gyro_mag_max"
	n[JerkMean] = "jerk_mean"
	n[JerkMax] = "jerk_max"
	n[JerkStd] = "jerk_std"
	n[AccelEnergy] = "accel_energy"
	n[GyroEnergy] = "gyro_energy"
	n[GyroXZCR] = "gyro_x_zcr"
	n[GyroYZCR] = "gyro_y_zcr"
	n[GyroZZCR] = "gyro_z_zcr"
	n[PeakPos] = "peak_position"
	for i := used; i < Count; i++ {
		n[i] = "pad"
	}
	return n
}()
