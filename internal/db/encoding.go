package db

import "encoding/json"

// encodeActiveDays matches the json serializer on the model so map based
// updates store the same representation. Nil stays NULL.
func encodeActiveDays(days []int) any {
	if len(days) == 0 {
		return nil
	}
	encoded, err := json.Marshal(days)
	if err != nil {
		return nil
	}
	return string(encoded)
}
