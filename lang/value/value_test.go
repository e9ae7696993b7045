package value_test

import (
	"testing"

	"github.com/mna/loxvm/lang/value"
	"github.com/stretchr/testify/assert"
)

func TestEqualAcrossKinds(t *testing.T) {
	assert.False(t, value.Equal(value.Nil, value.Bool(false)))
	assert.False(t, value.Equal(value.Number(0), value.Bool(false)))
	assert.True(t, value.Equal(value.Nil, value.Nil))
	assert.True(t, value.Equal(value.Number(1), value.Number(1)))
	assert.False(t, value.Equal(value.Number(1), value.Number(2)))
	assert.True(t, value.Equal(value.Bool(true), value.Bool(true)))
}

func TestEqualInternedStrings(t *testing.T) {
	in := value.NewInterner()
	a := in.Intern("hello")
	b := in.Intern("hello")
	assert.True(t, value.Equal(a, b), "interned strings with equal content must be the same reference")
}

func TestIsFalsey(t *testing.T) {
	assert.True(t, value.IsFalsey(value.Nil))
	assert.True(t, value.IsFalsey(value.Bool(false)))
	assert.False(t, value.IsFalsey(value.Bool(true)))
	assert.False(t, value.IsFalsey(value.Number(0)))
	in := value.NewInterner()
	assert.False(t, value.IsFalsey(in.Intern("")))
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "1", value.Number(1).String())
	assert.Equal(t, "1.5", value.Number(1.5).String())
}
