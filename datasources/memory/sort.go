package memory

import (
	"context"

	"github.com/google/btree"
	"github.com/pkg/errors"

	"github.com/cube2222/octofetch/execution"
	"github.com/cube2222/octofetch/octofetch"
)

type sortItem struct {
	values  []octofetch.Value
	index   int
	record  *execution.Record
	compare func(a, b []octofetch.Value) int
}

func (item *sortItem) Less(than btree.Item) bool {
	other := than.(*sortItem)
	if cmp := item.compare(item.values, other.values); cmp != 0 {
		return cmp < 0
	}
	// Equal keys keep their original order.
	return item.index < other.index
}

// Sort returns the records in the requested order. The sort is stable.
func Sort(schema octofetch.Schema, records []*execution.Record, ordering octofetch.Ordering) ([]*execution.Record, error) {
	compare, err := ordering.Comparator(schema)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't resolve ordering")
	}

	tree := btree.New(16)
	for i := range records {
		tree.ReplaceOrInsert(&sortItem{
			values:  records[i].Values(),
			index:   i,
			record:  records[i],
			compare: compare,
		})
	}

	out := make([]*execution.Record, 0, len(records))
	tree.Ascend(func(item btree.Item) bool {
		out = append(out, item.(*sortItem).record)
		return true
	})
	return out, nil
}

// SortStream drains the stream and returns a stream of its records in the requested order.
// It's the fallback for sources which can't sort on their own.
func SortStream(ctx context.Context, schema octofetch.Schema, stream execution.RecordStream, ordering octofetch.Ordering) (execution.RecordStream, error) {
	records, err := execution.ReadAll(ctx, stream)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't read records to sort")
	}
	sorted, err := Sort(schema, records, ordering)
	if err != nil {
		return nil, err
	}
	return execution.NewInMemoryStream(sorted), nil
}
