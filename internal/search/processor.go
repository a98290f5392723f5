package search

import "github.com/hyperjump/kbase/internal/models"

// normalizeK applies the engine default when k is not positive and caps it at models.MaxTopK.
func normalizeK(k, defaultK int) int {
	if k <= 0 {
		k = defaultK
	}
	if k <= 0 {
		k = models.DefaultTopK
	}
	if k > models.MaxTopK {
		k = models.MaxTopK
	}
	return k
}
