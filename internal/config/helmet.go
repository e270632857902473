package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical helmet defaults file.
const DefaultConfigPath = "config/helmet.defaults.json"

// Profile names. Each selects the parameter set of one deployed firmware
// build; explicit fields in the JSON file override the profile value.
const (
	ProfileLuma  = "luma"
	ProfileESP32 = "esp32"
)

// Command schemes accepted on the commands channel.
const (
	SchemeToken  = "token"
	SchemeOpcode = "opcode"
)

// Classifier models.
const (
	ModelHeuristic     = "heuristic"
	ModelGeneratedTree = "generated_tree"
)

// HelmetConfig is the root configuration for the detection pipeline and the
// LED strip. Every field is optional; Get* methods return the active
// profile's value for fields left unset.
type HelmetConfig struct {
	Profile *string `json:"profile,omitempty"`

	// Fast path
	CrashAccelThreshold  *float64 `json:"crash_accel_threshold,omitempty"`
	CrashJerkThreshold   *float64 `json:"crash_jerk_threshold,omitempty"`
	BrakeJerkThreshold   *float64 `json:"brake_jerk_threshold,omitempty"`
	BrakeAccelCeiling    *float64 `json:"brake_accel_ceiling,omitempty"`
	BrakeJerkConfidentAt *float64 `json:"brake_jerk_confident_at,omitempty"`
	CrashJerkConfidentAt *float64 `json:"crash_jerk_confident_at,omitempty"`
	CrashMagConfidentAt  *float64 `json:"crash_mag_confident_at,omitempty"`

	// Trigger gate and capture
	GateAccelThreshold *float64 `json:"gate_accel_threshold,omitempty"`
	GateJerkThreshold  *float64 `json:"gate_jerk_threshold,omitempty"`
	GateCooldown       *string  `json:"gate_cooldown,omitempty"` // duration string like "800ms"
	PostRollSamples    *int     `json:"post_roll_samples,omitempty"`

	// Arbiter
	FastBrakeCooldown       *string `json:"fast_brake_cooldown,omitempty"`
	FastCrashCooldown       *string `json:"fast_crash_cooldown,omitempty"`
	ClassifierBrakeCooldown *string `json:"classifier_brake_cooldown,omitempty"`
	ClassifierCrashCooldown *string `json:"classifier_crash_cooldown,omitempty"`
	FastBrakeHold           *string `json:"fast_brake_hold,omitempty"`
	ClassifierBrakeHold     *string `json:"classifier_brake_hold,omitempty"`

	// LEDs
	ConnectGrace      *string `json:"connect_grace,omitempty"`
	CrashConfirmation *string `json:"crash_confirmation,omitempty"`
	LEDCount          *int    `json:"led_count,omitempty"`
	LEDBrightness     *int    `json:"led_brightness,omitempty"`

	CommandScheme   *string `json:"command_scheme,omitempty"`
	ClassifierModel *string `json:"classifier_model,omitempty"`
}

// profileDefaults holds the values a profile supplies for unset fields.
type profileDefaults struct {
	gateCooldown            time.Duration
	fastBrakeCooldown       time.Duration
	fastCrashCooldown       time.Duration
	classifierBrakeCooldown time.Duration
	classifierCrashCooldown time.Duration
	connectGrace            time.Duration
	ledCount                int
}

var profiles = map[string]profileDefaults{
	ProfileLuma: {
		gateCooldown:            800 * time.Millisecond,
		fastBrakeCooldown:       400 * time.Millisecond,
		fastCrashCooldown:       3000 * time.Millisecond,
		classifierBrakeCooldown: 1500 * time.Millisecond,
		classifierCrashCooldown: 5000 * time.Millisecond,
		connectGrace:            3000 * time.Millisecond,
		ledCount:                12,
	},
	ProfileESP32: {
		gateCooldown:            600 * time.Millisecond,
		fastBrakeCooldown:       200 * time.Millisecond,
		fastCrashCooldown:       2500 * time.Millisecond,
		classifierBrakeCooldown: 250 * time.Millisecond,
		classifierCrashCooldown: 2500 * time.Millisecond,
		connectGrace:            900 * time.Millisecond,
		ledCount:                14,
	},
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyHelmetConfig returns a HelmetConfig with all fields set to nil, which
// behaves as the luma profile.
func EmptyHelmetConfig() *HelmetConfig {
	return &HelmetConfig{}
}

// ForProfile returns an otherwise empty config selecting the named profile.
func ForProfile(name string) *HelmetConfig {
	return &HelmetConfig{Profile: ptrString(name)}
}

// LoadConfig loads a HelmetConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to the profile values, so
// partial configs are safe.
func LoadConfig(path string) (*HelmetConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyHelmetConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *HelmetConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *HelmetConfig) Validate() error {
	if c.Profile != nil {
		if _, ok := profiles[*c.Profile]; !ok {
			return fmt.Errorf("unknown profile %q: expected %q or %q", *c.Profile, ProfileLuma, ProfileESP32)
		}
	}

	for name, v := range map[string]*float64{
		"crash_accel_threshold":   c.CrashAccelThreshold,
		"crash_jerk_threshold":    c.CrashJerkThreshold,
		"brake_jerk_threshold":    c.BrakeJerkThreshold,
		"brake_accel_ceiling":     c.BrakeAccelCeiling,
		"brake_jerk_confident_at": c.BrakeJerkConfidentAt,
		"crash_jerk_confident_at": c.CrashJerkConfidentAt,
		"crash_mag_confident_at":  c.CrashMagConfidentAt,
		"gate_accel_threshold":    c.GateAccelThreshold,
		"gate_jerk_threshold":     c.GateJerkThreshold,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	for name, v := range map[string]*string{
		"gate_cooldown":             c.GateCooldown,
		"fast_brake_cooldown":       c.FastBrakeCooldown,
		"fast_crash_cooldown":       c.FastCrashCooldown,
		"classifier_brake_cooldown": c.ClassifierBrakeCooldown,
		"classifier_crash_cooldown": c.ClassifierCrashCooldown,
		"fast_brake_hold":           c.FastBrakeHold,
		"classifier_brake_hold":     c.ClassifierBrakeHold,
		"connect_grace":             c.ConnectGrace,
		"crash_confirmation":        c.CrashConfirmation,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *v)
		}
	}

	if c.PostRollSamples != nil && (*c.PostRollSamples < 0 || *c.PostRollSamples > 150) {
		return fmt.Errorf("post_roll_samples must be between 0 and 150, got %d", *c.PostRollSamples)
	}
	if c.LEDCount != nil && (*c.LEDCount < 1 || *c.LEDCount > 256) {
		return fmt.Errorf("led_count must be between 1 and 256, got %d", *c.LEDCount)
	}
	if c.LEDBrightness != nil && (*c.LEDBrightness < 0 || *c.LEDBrightness > 255) {
		return fmt.Errorf("led_brightness must be between 0 and 255, got %d", *c.LEDBrightness)
	}
	if c.CommandScheme != nil && *c.CommandScheme != SchemeToken && *c.CommandScheme != SchemeOpcode {
		return fmt.Errorf("unsupported command_scheme %q: expected %q or %q", *c.CommandScheme, SchemeToken, SchemeOpcode)
	}
	if c.ClassifierModel != nil && *c.ClassifierModel != ModelHeuristic && *c.ClassifierModel != ModelGeneratedTree {
		return fmt.Errorf("unsupported classifier_model %q: expected %q or %q", *c.ClassifierModel, ModelHeuristic, ModelGeneratedTree)
	}

	return nil
}

// GetProfile returns the active profile name, luma by default.
func (c *HelmetConfig) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return ProfileLuma
	}
	if _, ok := profiles[*c.Profile]; !ok {
		return ProfileLuma
	}
	return *c.Profile
}

func (c *HelmetConfig) profile() profileDefaults {
	return profiles[c.GetProfile()]
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// GetCrashAccelThreshold returns the fast-path crash magnitude threshold in g.
func (c *HelmetConfig) GetCrashAccelThreshold() float64 {
	return floatOr(c.CrashAccelThreshold, 3.0)
}

// GetCrashJerkThreshold returns the fast-path crash jerk threshold in g/s.
func (c *HelmetConfig) GetCrashJerkThreshold() float64 {
	return floatOr(c.CrashJerkThreshold, 40.0)
}

// GetBrakeJerkThreshold returns the fast-path brake jerk threshold in g/s.
func (c *HelmetConfig) GetBrakeJerkThreshold() float64 {
	return floatOr(c.BrakeJerkThreshold, 14.0)
}

// GetBrakeAccelCeiling returns the magnitude above which a jerk is not a brake.
func (c *HelmetConfig) GetBrakeAccelCeiling() float64 {
	return floatOr(c.BrakeAccelCeiling, 2.2)
}

// GetBrakeJerkConfidentAt returns the jerk at which brake confidence saturates.
func (c *HelmetConfig) GetBrakeJerkConfidentAt() float64 {
	return floatOr(c.BrakeJerkConfidentAt, 30.0)
}

// GetCrashJerkConfidentAt returns the jerk at which crash confidence saturates.
func (c *HelmetConfig) GetCrashJerkConfidentAt() float64 {
	return floatOr(c.CrashJerkConfidentAt, 90.0)
}

// GetCrashMagConfidentAt returns the magnitude at which crash confidence saturates.
func (c *HelmetConfig) GetCrashMagConfidentAt() float64 {
	return floatOr(c.CrashMagConfidentAt, 5.0)
}

// GetGateAccelThreshold returns the classification gate magnitude threshold.
func (c *HelmetConfig) GetGateAccelThreshold() float64 {
	return floatOr(c.GateAccelThreshold, 1.6)
}

// GetGateJerkThreshold returns the classification gate jerk threshold.
func (c *HelmetConfig) GetGateJerkThreshold() float64 {
	return floatOr(c.GateJerkThreshold, 6.0)
}

// GetGateCooldown returns the minimum time between classification attempts.
func (c *HelmetConfig) GetGateCooldown() time.Duration {
	return durationOr(c.GateCooldown, c.profile().gateCooldown)
}

// GetPostRollSamples returns how many samples are captured after a trigger.
func (c *HelmetConfig) GetPostRollSamples() int {
	if c.PostRollSamples == nil {
		return 25
	}
	return *c.PostRollSamples
}

// GetFastBrakeCooldown returns the fast-path brake cooldown.
func (c *HelmetConfig) GetFastBrakeCooldown() time.Duration {
	return durationOr(c.FastBrakeCooldown, c.profile().fastBrakeCooldown)
}

// GetFastCrashCooldown returns the fast-path crash cooldown.
func (c *HelmetConfig) GetFastCrashCooldown() time.Duration {
	return durationOr(c.FastCrashCooldown, c.profile().fastCrashCooldown)
}

// GetClassifierBrakeCooldown returns the classifier-path brake cooldown.
func (c *HelmetConfig) GetClassifierBrakeCooldown() time.Duration {
	return durationOr(c.ClassifierBrakeCooldown, c.profile().classifierBrakeCooldown)
}

// GetClassifierCrashCooldown returns the classifier-path crash cooldown.
func (c *HelmetConfig) GetClassifierCrashCooldown() time.Duration {
	return durationOr(c.ClassifierCrashCooldown, c.profile().classifierCrashCooldown)
}

// GetFastBrakeHold returns how long a fast-path brake keeps the brake pattern lit.
func (c *HelmetConfig) GetFastBrakeHold() time.Duration {
	return durationOr(c.FastBrakeHold, 800*time.Millisecond)
}

// GetClassifierBrakeHold returns how long a classified brake keeps the brake pattern lit.
func (c *HelmetConfig) GetClassifierBrakeHold() time.Duration {
	return durationOr(c.ClassifierBrakeHold, 900*time.Millisecond)
}

// GetConnectGrace returns how long the connected-green pattern shows after attach.
func (c *HelmetConfig) GetConnectGrace() time.Duration {
	return durationOr(c.ConnectGrace, c.profile().connectGrace)
}

// DefaultCrashConfirmation is how long a crash may show undismissed before it
// is reported as unconfirmed.
const DefaultCrashConfirmation = 30 * time.Second

// GetCrashConfirmation returns the undismissed-crash reporting delay. Zero
// disables the report.
func (c *HelmetConfig) GetCrashConfirmation() time.Duration {
	return durationOr(c.CrashConfirmation, DefaultCrashConfirmation)
}

// GetLEDCount returns the number of pixels on the strip.
func (c *HelmetConfig) GetLEDCount() int {
	if c.LEDCount == nil {
		return c.profile().ledCount
	}
	return *c.LEDCount
}

// GetLEDBrightness returns the global strip brightness (0-255).
func (c *HelmetConfig) GetLEDBrightness() int {
	if c.LEDBrightness == nil {
		return 153
	}
	return *c.LEDBrightness
}

// GetCommandScheme returns the command encoding accepted on the commands channel.
func (c *HelmetConfig) GetCommandScheme() string {
	if c.CommandScheme == nil || *c.CommandScheme == "" {
		return SchemeToken
	}
	return *c.CommandScheme
}

// GetClassifierModel returns the classifier model name.
func (c *HelmetConfig) GetClassifierModel() string {
	if c.ClassifierModel == nil || *c.ClassifierModel == "" {
		return ModelHeuristic
	}
	return *c.ClassifierModel
}
