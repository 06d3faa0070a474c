package table

import (
	"fmt"
	"strconv"

	"github.com/jeremywohl/flatten"
)

// customFieldsKey is the nested per-record collection that gets pivoted
// into dynamically named columns instead of flattened positionally.
const customFieldsKey = "custom_fields"

// FlattenRecords converts one page's decoded records into rows. Nested
// objects become dotted columns ("via.channel"); a custom_fields array of
// {id, value} pairs becomes one column per field id, named by the decimal
// id string. Records without custom fields still contribute a row.
func FlattenRecords(records []map[string]any) ([]Row, error) {
	rows := make([]Row, 0, len(records))
	for i, record := range records {
		row, err := flattenRecord(record)
		if err != nil {
			return nil, fmt.Errorf("flatten record %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func flattenRecord(record map[string]any) (Row, error) {
	fields, hasFields := record[customFieldsKey].([]any)
	if hasFields {
		base := make(map[string]any, len(record)-1)
		for k, v := range record {
			if k != customFieldsKey {
				base[k] = v
			}
		}
		record = base
	}

	flat, err := flatten.Flatten(record, "", flatten.DotStyle)
	if err != nil {
		return nil, err
	}

	row := Row(flat)
	for _, field := range fields {
		pair, ok := field.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("custom field entry is %T, want object", field)
		}
		id, ok := pair["id"]
		if !ok {
			return nil, fmt.Errorf("custom field entry missing id")
		}
		row[fieldColumn(id)] = pair["value"]
	}
	return row, nil
}

// fieldColumn renders a custom field id as a column name. Decoded JSON
// numbers arrive as float64; ids are integral, so they format without a
// fraction or exponent.
func fieldColumn(id any) string {
	switch v := id.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
