package storage

import (
	"sort"

	"lpr-gate/internal/domain/entity"
)

// sortNewestFirst сортирует по времени по убыванию, при равенстве по ID
func sortNewestFirst(records []entity.DetectionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID > records[j].ID
	})
}
