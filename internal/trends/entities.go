// Package trends serves uniform metric-over-time queries across the sparse
// observation store and the wide daily nutrition table, with optional
// temporal bucket aggregation.
package trends

import (
	"sort"

	"example.com/tessera/internal/garmin"
	"example.com/tessera/internal/withings"
)

// nutritionEntity binds a requestable entity name to its wide-table column.
type nutritionEntity struct {
	Column string
	Unit   string
}

// nutritionEntities is the curated wide-table name space. Entity names keep
// the caller-facing camelCase of the import source while columns use the
// table's snake_case.
var nutritionEntities = map[string]nutritionEntity{
	"weight":             {Column: "weight_kg", Unit: "kg"},
	"calories":           {Column: "calories_kcal", Unit: "kcal"},
	"protein":            {Column: "protein_g", Unit: "g"},
	"fat":                {Column: "fat_g", Unit: "g"},
	"carbs":              {Column: "carbs_g", Unit: "g"},
	"targetCaloriesKcal": {Column: "target_calories_kcal", Unit: "kcal"},
	"targetProtein":      {Column: "target_protein_g", Unit: "g"},
	"targetFat":          {Column: "target_fat_g", Unit: "g"},
	"targetCarbs":        {Column: "target_carbs_g", Unit: "g"},
	"steps":              {Column: "step", Unit: "step"},
	"alcohol":            {Column: "alcohol_g", Unit: "g"},
	"b12Cobalamin":       {Column: "b12_cobalamin_mcg", Unit: "mcg"},
	"b1Thiamine":         {Column: "b1_thiamine_mg", Unit: "mg"},
	"b2Riboflavin":       {Column: "b2_riboflavin_mg", Unit: "mg"},
	"b3Niacin":           {Column: "b3_niacin_mg", Unit: "mg"},
	"b5PantothenicAcid":  {Column: "b5_pantothenic_acid_mg", Unit: "mg"},
	"b6Pyridoxine":       {Column: "b6_pyridoxine_mg", Unit: "mg"},
	"caffeine":           {Column: "caffeine_mg", Unit: "mg"},
	"calcium":            {Column: "calcium_mg", Unit: "mg"},
	"cholesterol":        {Column: "cholesterol_mg", Unit: "mg"},
	"choline":            {Column: "choline_mg", Unit: "mg"},
	"copper":             {Column: "copper_mg", Unit: "mg"},
	"cysteine":           {Column: "cysteine_g", Unit: "g"},
	"monounsaturatedFat": {Column: "monounsaturated_fat_g", Unit: "g"},
	"polyunsaturatedFat": {Column: "polyunsaturated_fat_g", Unit: "g"},
	"saturatedFat":       {Column: "saturated_fat_g", Unit: "g"},
	"transFat":           {Column: "trans_fat_g", Unit: "g"},
	"fiber":              {Column: "fiber_g", Unit: "g"},
	"folate":             {Column: "folate_mcg", Unit: "mcg"},
	"histidine":          {Column: "histidine_g", Unit: "g"},
	"iron":               {Column: "iron_mg", Unit: "mg"},
	"isoleucine":         {Column: "isoleucine_g", Unit: "g"},
	"leucine":            {Column: "leucine_g", Unit: "g"},
	"lysine":             {Column: "lysine_g", Unit: "g"},
	"magnesium":          {Column: "magnesium_mg", Unit: "mg"},
	"manganese":          {Column: "manganese_mg", Unit: "mg"},
	"methionine":         {Column: "methionine_g", Unit: "g"},
	"omega3Ala":          {Column: "omega3_ala_g", Unit: "g"},
	"omega3Dha":          {Column: "omega3_dha_g", Unit: "g"},
	"omega3Epa":          {Column: "omega3_epa_g", Unit: "g"},
	"omega3":             {Column: "omega3_g", Unit: "g"},
	"omega6":             {Column: "omega6_g", Unit: "g"},
	"phenylalanine":      {Column: "phenylalanine_g", Unit: "g"},
	"phosphorus":         {Column: "phosphorus_mg", Unit: "mg"},
	"potassium":          {Column: "potassium_mg", Unit: "mg"},
	"selenium":           {Column: "selenium_mcg", Unit: "mcg"},
	"sodium":             {Column: "sodium_mg", Unit: "mg"},
	"starch":             {Column: "starch_g", Unit: "g"},
	"sugars":             {Column: "sugars_g", Unit: "g"},
	"sugarsAdded":        {Column: "sugars_added_g", Unit: "g"},
	"threonine":          {Column: "threonine_g", Unit: "g"},
	"tryptophan":         {Column: "tryptophan_g", Unit: "g"},
	"tyrosine":           {Column: "tyrosine_g", Unit: "g"},
	"valine":             {Column: "valine_g", Unit: "g"},
	"vitaminA":           {Column: "vitamin_a_mcg", Unit: "mcg"},
	"vitaminC":           {Column: "vitamin_c_mg", Unit: "mg"},
	"vitaminD":           {Column: "vitamin_d_mcg", Unit: "mcg"},
	"vitaminE":           {Column: "vitamin_e_mg", Unit: "mg"},
	"vitaminK":           {Column: "vitamin_k_mcg", Unit: "mcg"},
	"water":              {Column: "water_g", Unit: "g"},
	"zinc":               {Column: "zinc_mg", Unit: "mg"},
}

// derivedEntities are computed during ingestion and live in the sparse
// store like any vendor metric.
var derivedEntities = map[string]string{
	"muscle_mass_pct": "%",
	"bone_mass_pct":   "%",
}

var withingsUnits = func() map[string]string {
	out := make(map[string]string)
	for _, code := range withings.ActiveCodes() {
		measure, _ := withings.LookupMeasure(code)
		out[measure.Key] = measure.Unit
	}
	return out
}()

// vendorEntityUnit resolves a canonical-store type against the vendor
// catalogs and the derived-metric set.
func vendorEntityUnit(entity string) (string, bool) {
	if metric, ok := garmin.LookupMetric(entity); ok {
		return metric.Unit, true
	}
	if unit, ok := withingsUnits[entity]; ok {
		return unit, true
	}
	if unit, ok := derivedEntities[entity]; ok {
		return unit, true
	}
	return "", false
}

// Entities returns every curated entity name, sorted, for the tool-facing
// query surface. Names claimed by the wide table win over same-named vendor
// types, matching resolution order.
func Entities() []string {
	seen := make(map[string]struct{})
	add := func(name string) {
		seen[name] = struct{}{}
	}
	for name := range nutritionEntities {
		add(name)
	}
	for _, key := range garmin.Keys() {
		add(key)
	}
	for key := range withingsUnits {
		add(key)
	}
	for name := range derivedEntities {
		add(name)
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
