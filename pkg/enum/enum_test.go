package enum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	type Status string

	foo := New(Status("foo"))
	bar := New(Status("bar"))
	New(Status("foo"))

	v, err := ToEnum[Status]("bar")
	require.NoError(t, err)
	require.Equal(t, bar, v)

	_, err = ToEnum[Status]("baz")
	require.Error(t, err)

	require.Equal(t, []Status{foo, bar}, Values[Status]())
}

func TestToEnum_UnknownType(t *testing.T) {
	type Unregistered string

	_, err := ToEnum[Unregistered]("x")
	require.Error(t, err)
	require.Nil(t, Values[Unregistered]())
}
