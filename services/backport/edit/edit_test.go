// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package edit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Apply(t *testing.T) {
	src := []byte("public class T {}")
	set := Set{
		{Start: 14, End: 14, NewText: " permits A"},
		{Start: 6, End: 6, NewText: " sealed"},
	}
	out, err := set.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, "public sealed class T permits A {}", string(out))
	assert.Equal(t, "public class T {}", string(src), "source is not modified")
}

func TestSet_ApplyEmpty(t *testing.T) {
	out, err := Set(nil).Apply([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(out))
}

func TestSet_InsertAtRangeBoundaries(t *testing.T) {
	src := []byte("0123456789")
	set := Set{
		{Start: 2, End: 5, NewText: ""},
		{Start: 2, End: 2, NewText: "a"},
		{Start: 5, End: 5, NewText: "b"},
	}
	out, err := set.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, "01ab56789", string(out))
}

func TestSet_InsertionsAtSamePointKeepOrder(t *testing.T) {
	set := Set{
		{Start: 1, End: 1, NewText: "x"},
		{Start: 1, End: 1, NewText: "y"},
	}
	out, err := set.Apply([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, "axyb", string(out))
}

func TestSet_Malformed(t *testing.T) {
	tests := []struct {
		name string
		set  Set
	}{
		{"overlapping ranges", Set{{Start: 0, End: 4}, {Start: 3, End: 6}}},
		{"nested ranges", Set{{Start: 0, End: 8}, {Start: 2, End: 3}}},
		{"insert inside range", Set{{Start: 1, End: 5}, {Start: 3, End: 3, NewText: "x"}}},
		{"far overlap behind inserts", Set{{Start: 0, End: 9}, {Start: 2, End: 2, NewText: "x"}, {Start: 4, End: 5}}},
		{"out of range", Set{{Start: 5, End: 20}}},
		{"inverted", Set{{Start: 5, End: 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.set.Apply([]byte("0123456789"))
			require.Error(t, err)
			var merr *MalformedEditError
			require.True(t, errors.As(err, &merr))
			assert.Contains(t, merr.Error(), "malformed edit set")
		})
	}
}
