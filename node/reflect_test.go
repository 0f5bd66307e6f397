package node

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string
	Count   int
	Nested  *sample
	private string
}

func helperFunc(int) string { return "" }

func TestReflect_Classify(t *testing.T) {
	acc := NewReflect()
	var nilMap map[string]any
	var nilPtr *sample

	tests := []struct {
		name string
		v    any
		want Kind
	}{
		{"nil", nil, Null},
		{"nil map", nilMap, Null},
		{"nil pointer", nilPtr, Null},
		{"bool", true, Primitive},
		{"int", 42, Primitive},
		{"float", 1.5, Primitive},
		{"string", "x", String},
		{"pointer to string", ptr("x"), String},
		{"func", helperFunc, Function},
		{"map", map[string]any{}, Object},
		{"slice", []int{1}, Object},
		{"struct", sample{}, Object},
		{"pointer to struct", &sample{}, Object},
		{"chan", make(chan int), Object},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, acc.Classify(tt.v))
		})
	}
}

func TestReflect_OwnKeys(t *testing.T) {
	acc := NewReflect()

	keys, err := acc.OwnKeys(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	keys, err = acc.OwnKeys(&sample{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Count", "Nested"}, keys)

	keys, err = acc.OwnKeys([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, keys)

	keys, err = acc.OwnKeys(map[int]string{2: "b", 1: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, keys)

	keys, err = acc.OwnKeys(7)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReflect_Get(t *testing.T) {
	acc := NewReflect()
	s := &sample{Name: "n", Count: 3, private: "hidden"}

	v, err := acc.Get(s, "Name")
	require.NoError(t, err)
	assert.Equal(t, "n", v)

	_, err = acc.Get(s, "private")
	assert.ErrorIs(t, err, ErrNoSuchKey)

	v, err = acc.Get(map[int]string{1: "a"}, "1")
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = acc.Get([]int{10, 20}, "1")
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = acc.Get([]int{10, 20}, "2")
	assert.ErrorIs(t, err, ErrNoSuchKey)

	_, err = acc.Get(map[string]any{}, "missing")
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestReflect_InspectorAndSourcer(t *testing.T) {
	acc := NewReflect()

	assert.Equal(t, "*node.sample", acc.TypeName(&sample{}))
	assert.Equal(t, "null", acc.TypeName(nil))
	assert.True(t, acc.Opaque(make(chan int)))
	assert.False(t, acc.Opaque(map[string]any{}))

	src, err := acc.Source(helperFunc)
	require.NoError(t, err)
	assert.Contains(t, src, "helperFunc")
	assert.Contains(t, src, "(int) string")

	_, err = acc.Source(3)
	assert.Error(t, err)
}

type panicky struct{ Accessor }

func (panicky) Get(any, string) (any, error) { panic("boom") }
func (panicky) OwnKeys(any) ([]string, error) {
	panic("boom")
}

func TestSafeGet_RecoversPanics(t *testing.T) {
	acc := panicky{NewReflect()}

	_, err := SafeGet(acc, map[string]any{}, "k")
	var re *ReadError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "k", re.Key)

	_, err = SafeKeys(acc, map[string]any{})
	assert.Error(t, err)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "object", Object.String())
	assert.True(t, Function.Composite())
	assert.False(t, String.Composite())
}

func ptr[T any](v T) *T { return &v }
