package store

import (
	"sort"

	"pawhaven/internal/donation/models"
)

func sortByDate(ds []*models.Donation) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].DonationDate.Before(ds[j].DonationDate)
	})
}
