package gamepad

import "math"

// AxisMapping defines how a raw axis index maps to a motion axis.
type AxisMapping struct {
	Index     int32
	Target    Axis
	IsTrigger bool
	Invert    bool
	// For triggers: raw range. Some devices use -32768..32767, others 0..32767.
	RawMin int16
	RawMax int16
}

// ButtonMapping defines how a raw button index maps to a key code.
type ButtonMapping struct {
	Index  int32
	Target KeyCode
}

// DeviceMapping holds the complete mapping for a specific device type.
type DeviceMapping struct {
	Name    string
	Axes    []AxisMapping
	Buttons []ButtonMapping
	HasHat  bool
	// Twist is the axis that pushes the cursor nearer or further away.
	// AxisNone disables depth control.
	Twist Axis
	// Pedals marks devices whose brake and gas axes act as L2 and R2.
	Pedals bool
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// NormalizeTrigger converts a raw trigger value to 0.0..1.0.
func NormalizeTrigger(raw int16, rawMin, rawMax int16) float64 {
	if rawMax == rawMin {
		return 0
	}
	v := (float64(raw) - float64(rawMin)) / (float64(rawMax) - float64(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// ApplyDeadzone zeroes v when its magnitude is below threshold.
func ApplyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

var standardButtons = []ButtonMapping{
	{Index: 0, Target: KeyButtonA},
	{Index: 1, Target: KeyButtonB},
	{Index: 2, Target: KeyButtonX},
	{Index: 3, Target: KeyButtonY},
	{Index: 4, Target: KeyButtonL1},
	{Index: 5, Target: KeyButtonR1},
	{Index: 6, Target: KeyButtonSelect},
	{Index: 7, Target: KeyButtonStart},
	{Index: 8, Target: KeyButtonThumbL},
	{Index: 9, Target: KeyButtonThumbR},
	{Index: 10, Target: KeyButtonMode},
}

var xboxMapping = &DeviceMapping{
	Name: "xbox",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisRX},
		{Index: 3, Target: AxisRY},
		{Index: 4, Target: AxisBrake, IsTrigger: true, RawMin: -32768, RawMax: 32767},
		{Index: 5, Target: AxisGas, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	},
	Buttons: standardButtons,
	HasHat:  true,
	Twist:   AxisRY,
}

var playstationMapping = &DeviceMapping{
	Name: "playstation",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisZ},
		{Index: 3, Target: AxisRZ},
		{Index: 4, Target: AxisBrake, IsTrigger: true, RawMin: -32768, RawMax: 32767},
		{Index: 5, Target: AxisGas, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	},
	Buttons: []ButtonMapping{
		{Index: 0, Target: KeyButtonA},      // Cross
		{Index: 1, Target: KeyButtonB},      // Circle
		{Index: 2, Target: KeyButtonX},      // Square
		{Index: 3, Target: KeyButtonY},      // Triangle
		{Index: 4, Target: KeyButtonSelect}, // Share / Create
		{Index: 5, Target: KeyButtonMode},   // PS button
		{Index: 6, Target: KeyButtonStart},  // Options
		{Index: 7, Target: KeyButtonThumbL},
		{Index: 8, Target: KeyButtonThumbR},
		{Index: 9, Target: KeyButtonL1},
		{Index: 10, Target: KeyButtonR1},
	},
	HasHat: true,
	Twist:  AxisRZ,
}

var samsungMapping = &DeviceMapping{
	Name: "samsung",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisRX},
		{Index: 3, Target: AxisRY},
	},
	Buttons: standardButtons,
	HasHat:  true,
	Twist:   AxisRY,
}

var steelseriesMapping = &DeviceMapping{
	Name: "steelseries",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisZ},
		{Index: 3, Target: AxisRZ},
		{Index: 4, Target: AxisBrake, IsTrigger: true, RawMin: 0, RawMax: 32767},
		{Index: 5, Target: AxisGas, IsTrigger: true, RawMin: 0, RawMax: 32767},
	},
	Buttons: standardButtons,
	HasHat:  true,
	Twist:   AxisRZ,
	Pedals:  true,
}

var switchProMapping = &DeviceMapping{
	Name: "switch_pro",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisRX},
		{Index: 3, Target: AxisRY},
	},
	Buttons: standardButtons,
	HasHat:  true,
}

var genericMapping = &DeviceMapping{
	Name: "generic",
	Axes: []AxisMapping{
		{Index: 0, Target: AxisX},
		{Index: 1, Target: AxisY},
		{Index: 2, Target: AxisRX},
		{Index: 3, Target: AxisRY},
		{Index: 4, Target: AxisBrake, IsTrigger: true, RawMin: -32768, RawMax: 32767},
		{Index: 5, Target: AxisGas, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	},
	Buttons: standardButtons,
	HasHat:  true,
}

// Known vendor/product IDs.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	// Microsoft Xbox controllers
	{0x045E, 0x028E}: xboxMapping, // Xbox 360
	{0x045E, 0x02FF}: xboxMapping, // Xbox One
	{0x045E, 0x0B12}: xboxMapping, // Xbox Series X|S
	{0x045E, 0x0B13}: xboxMapping, // Xbox Series X|S (wireless)
	// Sony PlayStation controllers
	{0x054C, 0x0268}: playstationMapping, // DualShock 3
	{0x054C, 0x05C4}: playstationMapping, // DualShock 4 v1
	{0x054C, 0x09CC}: playstationMapping, // DualShock 4 v2
	{0x054C, 0x0CE6}: playstationMapping, // DualSense
	// Samsung EI-GP20
	{0x04E8, 0xA000}: samsungMapping,
	// SteelSeries Stratus
	{0x0111, 0x1420}: steelseriesMapping,
	// Nintendo Switch Pro Controller
	{0x057E, 0x2009}: switchProMapping,
}

// GetMapping returns the appropriate mapping for a device identified by vendor/product ID.
// Falls back to generic mapping if no specific mapping is found.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	key := deviceKey{VendorID: vendorID, ProductID: productID}
	if m, ok := knownDevices[key]; ok {
		return m
	}
	return genericMapping
}
