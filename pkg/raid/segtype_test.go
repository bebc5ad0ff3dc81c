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

import (
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLookupSegmentType(t *testing.T) {
	tests := []struct {
		name        string
		want        *SegmentType
		wantErrCode codes.Code
	}{
		{"striped", Striped, codes.OK},
		{"linear", Striped, codes.OK},
		{"raid1", Raid1, codes.OK},
		{"raid5", Raid5LS, codes.OK},
		{"raid6", Raid6ZR, codes.OK},
		{"raid10", Raid10Near, codes.OK},
		{"raid6_n_6", Raid6N6, codes.OK},
		{"raid7", nil, codes.InvalidArgument},
		{"", nil, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LookupSegmentType(tt.name)
			if status.Code(err) != tt.wantErrCode {
				t.Errorf("LookupSegmentType() error = %v, wantErrCode %v", err, tt.wantErrCode)
				return
			}
			if got != tt.want {
				t.Errorf("LookupSegmentType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSegtypeName(t *testing.T) {
	tests := []struct {
		t      *SegmentType
		images uint32
		want   string
	}{
		{Striped, 1, "linear"},
		{Striped, 2, "striped"},
		{nil, 0, "linear"},
		{Raid1, 1, "raid1"},
	}
	for _, tt := range tests {
		if got := segtypeName(tt.t, tt.images); got != tt.want {
			t.Errorf("segtypeName(%v, %d) = %q, want %q", tt.t, tt.images, got, tt.want)
		}
	}
}

func TestIsSameLevel(t *testing.T) {
	tests := []struct {
		t1, t2 *SegmentType
		want   bool
	}{
		{Raid5LS, Raid5N, true},
		{Raid6ZR, Raid6N6, true},
		{Raid10Near, Raid10Far, true},
		{Raid5LS, Raid6LS6, false},
		{Raid4, Raid5N, false},
	}
	for _, tt := range tests {
		if got := isSameLevel(tt.t1, tt.t2); got != tt.want {
			t.Errorf("isSameLevel(%s, %s) = %v, want %v", tt.t1, tt.t2, got, tt.want)
		}
	}
}
