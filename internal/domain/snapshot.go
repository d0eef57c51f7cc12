package domain

import (
	"fmt"
	"time"
)

// SnapshotColumns is the fixed set of numeric columns on the daily nutrition
// table, one row per calendar day. Imports overwrite the whole row; there is
// no field-by-field merge against prior data.
var SnapshotColumns = []string{
	"expenditure",
	"trend_weight_kg",
	"weight_kg",
	"calories_kcal",
	"protein_g",
	"fat_g",
	"carbs_g",
	"target_calories_kcal",
	"target_protein_g",
	"target_fat_g",
	"target_carbs_g",
	"step",
	"alcohol_g",
	"b12_cobalamin_mcg",
	"b1_thiamine_mg",
	"b2_riboflavin_mg",
	"b3_niacin_mg",
	"b5_pantothenic_acid_mg",
	"b6_pyridoxine_mg",
	"caffeine_mg",
	"calcium_mg",
	"cholesterol_mg",
	"choline_mg",
	"copper_mg",
	"cysteine_g",
	"monounsaturated_fat_g",
	"polyunsaturated_fat_g",
	"saturated_fat_g",
	"trans_fat_g",
	"fiber_g",
	"folate_mcg",
	"histidine_g",
	"iron_mg",
	"isoleucine_g",
	"leucine_g",
	"lysine_g",
	"magnesium_mg",
	"manganese_mg",
	"methionine_g",
	"omega3_ala_g",
	"omega3_dha_g",
	"omega3_epa_g",
	"omega3_g",
	"omega6_g",
	"phenylalanine_g",
	"phosphorus_mg",
	"potassium_mg",
	"selenium_mcg",
	"sodium_mg",
	"starch_g",
	"sugars_g",
	"sugars_added_g",
	"threonine_g",
	"tryptophan_g",
	"tyrosine_g",
	"valine_g",
	"vitamin_a_mcg",
	"vitamin_c_mg",
	"vitamin_d_mcg",
	"vitamin_e_mg",
	"vitamin_k_mcg",
	"water_g",
	"zinc_mg",
}

var snapshotColumnSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(SnapshotColumns))
	for _, col := range SnapshotColumns {
		set[col] = struct{}{}
	}
	return set
}()

// KnownSnapshotColumn reports whether col is part of the wide-table schema.
func KnownSnapshotColumn(col string) bool {
	_, ok := snapshotColumnSet[col]
	return ok
}

// Snapshot is one imported day of nutrition data. Values holds only the
// columns present in the import; missing columns are written as NULL.
type Snapshot struct {
	ID         string
	Date       time.Time
	Values     map[string]float64
	ImportedAt time.Time
}

// Validate rejects rows with a zero date or unknown columns.
func (s Snapshot) Validate() error {
	if s.Date.IsZero() {
		return fmt.Errorf("snapshot: date is required")
	}
	for col := range s.Values {
		if !KnownSnapshotColumn(col) {
			return fmt.Errorf("snapshot: unknown column %q", col)
		}
	}
	return nil
}
