package cache

import (
	"strconv"

	"github.com/cube2222/octofetch/octofetch"
)

// RequestKey identifies a memoized dataset request.
// Requests for the natural order of a dataset and for a sorted view of it use distinct keys.
type RequestKey struct {
	Dataset string
	// Order is the canonical form of the requested ordering, empty for the natural order.
	Order string
}

func NewRequestKey(dataset string, ordering octofetch.Ordering) RequestKey {
	return RequestKey{
		Dataset: dataset,
		Order:   ordering.String(),
	}
}

func (k RequestKey) Sorted() bool {
	return k.Order != ""
}

// String encodes the key unambiguously, it's used as the key in the underlying store.
func (k RequestKey) String() string {
	if !k.Sorted() {
		return strconv.Quote(k.Dataset)
	}
	return strconv.Quote(k.Dataset) + " order by " + strconv.Quote(k.Order)
}
