// Package withings implements the Withings vendor adapter: OAuth token
// lifecycle, measurement fetches and normalization into canonical readings.
package withings

import "sort"

// MeasureStatus says whether a vendor measure code is imported or not.
type MeasureStatus int

const (
	// MeasureActive codes are requested from the vendor and imported.
	MeasureActive MeasureStatus = iota
	// MeasureRetired codes are recognised vendor codes we deliberately do
	// not import. Keeping them in the catalog makes the coverage decision
	// explicit instead of leaving gaps in the code space.
	MeasureRetired
)

// Measure maps one vendor measure code to its canonical metric.
type Measure struct {
	Code   int
	Key    string
	Label  string
	Unit   string
	Status MeasureStatus
}

var catalog = map[int]Measure{
	1:   {Code: 1, Key: "weight", Label: "Weight (kg)", Unit: "kg", Status: MeasureActive},
	4:   {Code: 4, Key: "height", Label: "Height (meter)", Unit: "m", Status: MeasureActive},
	5:   {Code: 5, Key: "fat_free_mass", Label: "Fat Free Mass (kg)", Unit: "kg", Status: MeasureActive},
	6:   {Code: 6, Key: "fat_ratio_pct", Label: "Fat Ratio (%)", Unit: "%", Status: MeasureActive},
	8:   {Code: 8, Key: "fat_mass_weight", Label: "Fat Mass Weight (kg)", Unit: "kg", Status: MeasureActive},
	9:   {Code: 9, Key: "diastolic_bp", Label: "Diastolic Blood Pressure (mmHg)", Unit: "mmHg", Status: MeasureActive},
	10:  {Code: 10, Key: "systolic_bp", Label: "Systolic Blood Pressure (mmHg)", Unit: "mmHg", Status: MeasureActive},
	11:  {Code: 11, Key: "heart_pulse", Label: "Heart Pulse (bpm)", Unit: "bpm", Status: MeasureRetired},
	12:  {Code: 12, Key: "temperature", Label: "Temperature (celsius)", Unit: "°C", Status: MeasureRetired},
	54:  {Code: 54, Key: "spo2", Label: "SP02 (%)", Unit: "%", Status: MeasureRetired},
	71:  {Code: 71, Key: "body_temperature", Label: "Body Temperature (celsius)", Unit: "°C", Status: MeasureRetired},
	73:  {Code: 73, Key: "skin_temperature", Label: "Skin Temperature (celsius)", Unit: "°C", Status: MeasureRetired},
	76:  {Code: 76, Key: "muscle_mass", Label: "Muscle Mass (kg)", Unit: "kg", Status: MeasureActive},
	77:  {Code: 77, Key: "hydration", Label: "Hydration (kg)", Unit: "kg", Status: MeasureRetired},
	88:  {Code: 88, Key: "bone_mass", Label: "Bone Mass (kg)", Unit: "kg", Status: MeasureActive},
	91:  {Code: 91, Key: "pulse_wave_velocity", Label: "Pulse Wave Velocity (m/s)", Unit: "m/s", Status: MeasureActive},
	123: {Code: 123, Key: "vo2_max", Label: "VO2 Max (ml/min/kg)", Unit: "ml/min/kg", Status: MeasureRetired},
	130: {Code: 130, Key: "atrial_fibrillation_result", Label: "Atrial Fibrillation Result", Unit: "", Status: MeasureRetired},
	135: {Code: 135, Key: "qrs_interval_duration", Label: "QRS Interval Duration (ms)", Unit: "ms", Status: MeasureRetired},
	136: {Code: 136, Key: "pr_interval_duration", Label: "PR Interval Duration (ms)", Unit: "ms", Status: MeasureRetired},
	137: {Code: 137, Key: "qt_interval_duration", Label: "QT Interval Duration (ms)", Unit: "ms", Status: MeasureRetired},
	138: {Code: 138, Key: "qt_corrected_interval_duration", Label: "Corrected QT Interval Duration (ms)", Unit: "ms", Status: MeasureRetired},
	139: {Code: 139, Key: "atrial_fibrillation_ppg_result", Label: "Atrial Fibrillation Result from PPG", Unit: "", Status: MeasureRetired},
	155: {Code: 155, Key: "vascular_age", Label: "Vascular age", Unit: "years", Status: MeasureActive},
	167: {Code: 167, Key: "nerve_health_score_feet", Label: "Nerve Health Score Conductance 2 electrodes Feet", Unit: "", Status: MeasureActive},
	168: {Code: 168, Key: "extracellular_water", Label: "Extracellular Water (kg)", Unit: "kg", Status: MeasureRetired},
	169: {Code: 169, Key: "intracellular_water", Label: "Intracellular Water (kg)", Unit: "kg", Status: MeasureRetired},
	170: {Code: 170, Key: "visceral_fat", Label: "Visceral Fat (without unity)", Unit: "", Status: MeasureActive},
	173: {Code: 173, Key: "fat_free_mass_segments", Label: "Fat Free Mass for segments (kg)", Unit: "kg", Status: MeasureRetired},
	174: {Code: 174, Key: "fat_mass_segments", Label: "Fat Mass for segments (kg)", Unit: "kg", Status: MeasureRetired},
	175: {Code: 175, Key: "muscle_mass_segments", Label: "Muscle Mass for segments (kg)", Unit: "kg", Status: MeasureRetired},
	196: {Code: 196, Key: "electrodermal_activity_feet", Label: "Electrodermal Activity Feet", Unit: "", Status: MeasureRetired},
	226: {Code: 226, Key: "basal_metabolic_rate", Label: "Basal Metabolic Rate (kcal)", Unit: "kcal", Status: MeasureRetired},
	227: {Code: 227, Key: "metabolic_age", Label: "Metabolic Age (years)", Unit: "years", Status: MeasureRetired},
	229: {Code: 229, Key: "electrochemical_skin_conductance", Label: "Electrochemical Skin Conductance", Unit: "", Status: MeasureRetired},
}

// LookupMeasure resolves a vendor measure code against the catalog.
func LookupMeasure(code int) (Measure, bool) {
	m, ok := catalog[code]
	return m, ok
}

// ActiveCodes returns the sorted list of measure codes requested from the
// vendor measurement endpoint.
func ActiveCodes() []int {
	codes := make([]int, 0, len(catalog))
	for code, m := range catalog {
		if m.Status == MeasureActive {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// ActiveKeys returns the canonical type keys produced by this adapter, the
// allow-list the trend engine resolves vendor entities against.
func ActiveKeys() []string {
	keys := make([]string, 0, len(catalog))
	for _, code := range ActiveCodes() {
		keys = append(keys, catalog[code].Key)
	}
	return keys
}
