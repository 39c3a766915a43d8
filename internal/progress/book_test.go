package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavelanni/caseload/internal/model"
)

func TestBook(t *testing.T) {
	b := NewBook[int64]()
	b.Put(3, NewDraft(model.MeasurementBinary))
	b.Put(1, NewDraft(model.MeasurementTrial))
	b.Put(2, NewDraft(model.MeasurementBinary))

	assert.Equal(t, []int64{3, 1, 2}, b.Keys())

	got := b.Ensure(3, NewDraft(model.MeasurementTrial))
	assert.Equal(t, model.MeasurementBinary, got.Type, "Ensure must not overwrite")

	assert.True(t, b.Update(3, func(d *Draft) { d.SetAnswer(AnswerNo) }))
	assert.False(t, b.Update(42, func(d *Draft) {}))

	assert.Equal(t, Summary{Filled: 1, Total: 3}, b.Summarize(nil))
	assert.Equal(t, Summary{Filled: 0, Total: 1}, b.Summarize(func(k int64) bool { return k == 1 }))

	clone := b.Clone()
	b.Delete(1)
	assert.Equal(t, []int64{3, 2}, b.Keys())
	assert.Equal(t, 3, clone.Len(), "clone must be independent")

	n := b.DeleteWhere(func(k int64) bool { return k > 1 })
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, b.Len())
	assert.False(t, b.Summarize(nil).Done())
}
