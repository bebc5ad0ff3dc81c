// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package raid

import "testing"

func TestRmetaExtents(t *testing.T) {
	tests := []struct {
		name          string
		rimageExtents uint32
		regionSize    uint32
		extentSize    uint32
		want          uint32
	}{
		{"Empty image", 0, 1024, 8192, 1},
		{"Superblocks fit one extent", 100, 1024, 8192, 1},
		{"Bitmap spills over small extents", 1000, 8, 8, 3},
		{"Default region size", 100, 0, 8192, 1},
		{"Large bitmap", 100000, 8, 8, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RmetaExtents(tt.rimageExtents, tt.regionSize, tt.extentSize); got != tt.want {
				t.Errorf("RmetaExtents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRmetaExtentsDelta(t *testing.T) {
	tests := []struct {
		name      string
		cur, next uint32
		want      uint32
	}{
		{"New image", 0, 1000, 3},
		{"Removed image", 1000, 0, 3},
		{"Same metadata size", 1000, 2000, 0},
		{"Grow", 1000, 100000, 3},
		{"Shrink", 100000, 1000, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RmetaExtentsDelta(tt.cur, tt.next, 8, 8); got != tt.want {
				t.Errorf("RmetaExtentsDelta() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRimageExtents(t *testing.T) {
	tests := []struct {
		name                         string
		extents, stripes, dataCopies uint32
		want                         uint32
	}{
		{"Linear", 100, 1, 1, 100},
		{"Round up over stripes", 100, 3, 1, 34},
		{"Two copies over two stripes", 100, 2, 2, 100},
		{"Zero stripes and copies", 10, 0, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RimageExtents(tt.extents, tt.stripes, tt.dataCopies); got != tt.want {
				t.Errorf("RimageExtents() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedundancy(t *testing.T) {
	tests := []struct {
		t      *SegmentType
		images uint32
		want   uint32
	}{
		{Striped, 3, 0},
		{Raid0, 3, 0},
		{Raid1, 3, 2},
		{Raid1, 0, 0},
		{Raid4, 3, 1},
		{Raid5LS, 4, 1},
		{Raid6ZR, 5, 2},
		{Raid10Near, 4, 2},
		{Raid10Far, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.t.Name, func(t *testing.T) {
			if got := Redundancy(tt.t, tt.images); got != tt.want {
				t.Errorf("Redundancy(%s, %d) = %v, want %v", tt.t, tt.images, got, tt.want)
			}
		})
	}
}
