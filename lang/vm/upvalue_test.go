package vm

import (
	"testing"

	"github.com/mna/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCaptureUpvalueOrdersListByDescendingStackSlot exercises the
// open-upvalue list invariant directly: captures taken out of order still
// leave vm.openUpvalues sorted head-first by descending stack index.
func TestCaptureUpvalueOrdersListByDescendingStackSlot(t *testing.T) {
	m := &VM{}
	m.stack[2] = value.Number(2)
	m.stack[5] = value.Number(5)
	m.stack[8] = value.Number(8)

	low := m.captureUpvalue(&m.stack[2])
	high := m.captureUpvalue(&m.stack[8])
	mid := m.captureUpvalue(&m.stack[5])

	require.NotNil(t, m.openUpvalues)
	assert.Same(t, high, m.openUpvalues)
	assert.Same(t, mid, m.openUpvalues.Next)
	assert.Same(t, low, m.openUpvalues.Next.Next)
	assert.Nil(t, low.Next)
}

// TestCaptureUpvalueReusesExistingUpvalueForSameSlot ensures two captures of
// the same local slot return the identical upvalue object rather than
// creating a duplicate entry in the list.
func TestCaptureUpvalueReusesExistingUpvalueForSameSlot(t *testing.T) {
	m := &VM{}
	m.stack[3] = value.Number(1)

	first := m.captureUpvalue(&m.stack[3])
	second := m.captureUpvalue(&m.stack[3])

	assert.Same(t, first, second)
	assert.Nil(t, first.Next)
}

// TestCloseUpvaluesClosesAndDetachesSlotsAtOrAboveTarget verifies that
// closing copies each affected upvalue's value out of the stack and detaches
// it from vm.openUpvalues, while leaving lower slots open.
func TestCloseUpvaluesClosesAndDetachesSlotsAtOrAboveTarget(t *testing.T) {
	m := &VM{}
	m.stack[1] = value.Number(10)
	m.stack[4] = value.Number(40)
	m.stack[7] = value.Number(70)

	low := m.captureUpvalue(&m.stack[1])
	mid := m.captureUpvalue(&m.stack[4])
	high := m.captureUpvalue(&m.stack[7])

	m.closeUpvalues(&m.stack[4])

	assert.True(t, high.IsClosed())
	assert.Equal(t, value.Number(70), high.Closed)
	assert.True(t, mid.IsClosed())
	assert.Equal(t, value.Number(40), mid.Closed)

	assert.False(t, low.IsClosed())
	require.NotNil(t, m.openUpvalues)
	assert.Same(t, low, m.openUpvalues)
	assert.Nil(t, m.openUpvalues.Next)
}

// TestUpvalueReadsAfterCloseSeeLastWrittenValue confirms a closed upvalue
// still reflects the value that was live on the stack at close time, and
// that mutating it no longer touches the stack slot it used to reference.
func TestUpvalueReadsAfterCloseSeeLastWrittenValue(t *testing.T) {
	m := &VM{}
	m.stack[0] = value.Number(99)

	uv := m.captureUpvalue(&m.stack[0])
	m.stack[0] = value.Number(100)
	m.closeUpvalues(&m.stack[0])

	assert.Equal(t, value.Number(100), *uv.Location)

	*uv.Location = value.Number(101)
	assert.Equal(t, value.Number(100), m.stack[0])
}
