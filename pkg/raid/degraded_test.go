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

func TestSupportsDegradedActivation(t *testing.T) {
	tests := []struct {
		name     string
		segType  string
		images   uint32
		partial  []uint32
		wantCode codes.Code
	}{
		{"Healthy raid1", "raid1", 3, nil, codes.OK},
		{"Raid1 with one leg left", "raid1", 3, []uint32{0, 2}, codes.OK},
		{"Raid1 with every leg failed", "raid1", 2, []uint32{0, 1}, codes.FailedPrecondition},
		{"Raid5 single failure", "raid5_ls", 3, []uint32{1}, codes.OK},
		{"Raid5 double failure", "raid5_ls", 3, []uint32{0, 1}, codes.FailedPrecondition},
		{"Raid6 double failure", "raid6_zr", 5, []uint32{0, 4}, codes.OK},
		{"Raid6 triple failure", "raid6_zr", 5, []uint32{0, 2, 4}, codes.FailedPrecondition},
		{"Raid0 failure", "raid0", 2, []uint32{1}, codes.FailedPrecondition},
		{"Raid10 near failures in distinct groups", "raid10_near", 4, []uint32{0, 2}, codes.OK},
		{"Raid10 near mirror group lost", "raid10_near", 4, []uint32{2, 3}, codes.FailedPrecondition},
		{"Raid10 far adjacent failures", "raid10_far", 4, []uint32{1, 2}, codes.FailedPrecondition},
		{"Raid10 far distant failures", "raid10_far", 4, []uint32{0, 2}, codes.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(int(tt.images), 100)
			f.raid("lv", tt.segType, tt.images, 10, 0)
			vg := f.build(t)
			lv := vg.FindLV("lv")
			markPartial(lv, tt.partial...)
			if err := SupportsDegradedActivation(lv); status.Code(err) != tt.wantCode {
				t.Errorf("SupportsDegradedActivation() error = %v, wantCode %v", err, tt.wantCode)
			}
		})
	}
}

func TestSupportsDegradedActivation_Linear(t *testing.T) {
	f := newFixture(1, 100)
	f.linear(NameDocument{Base: "lv", Index: -1}, []string{"VISIBLE", "READ", "WRITE", "PARTIAL"}, NoLV, 0, 10)
	vg := f.build(t)
	if err := SupportsDegradedActivation(vg.FindLV("lv")); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("SupportsDegradedActivation() error = %v, want FailedPrecondition", err)
	}
}

func TestRaid10CopiesLost(t *testing.T) {
	tests := []struct {
		name    string
		segType string
		images  uint32
		failed  []uint32
		want    bool
	}{
		{"Near no failure", "raid10_near", 4, nil, false},
		{"Near first group", "raid10_near", 4, []uint32{0, 1}, true},
		{"Near across groups", "raid10_near", 4, []uint32{1, 2}, false},
		{"Far wraps around", "raid10_far", 4, []uint32{0, 3}, true},
		{"Offset across devices", "raid10_offset", 4, []uint32{0, 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(int(tt.images), 100)
			f.raid("lv", tt.segType, tt.images, 10, 0)
			vg := f.build(t)
			failed := map[uint32]bool{}
			for _, s := range tt.failed {
				failed[s] = true
			}
			seg := vg.FindLV("lv").FirstSegment()
			if got := raid10CopiesLost(seg, func(s uint32) bool { return failed[s] }); got != tt.want {
				t.Errorf("raid10CopiesLost() = %v, want %v", got, tt.want)
			}
		})
	}
}
