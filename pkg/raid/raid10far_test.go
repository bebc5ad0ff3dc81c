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

	"github.com/kylelemons/godebug/pretty"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type extentRun struct {
	LE, PE, Len uint32
}

func imageRuns(lv *LogicalVolume) []extentRun {
	var out []extentRun
	for _, seg := range lv.Segments {
		out = append(out, extentRun{seg.LE, seg.Areas[0].PE, seg.Len})
	}
	return out
}

func TestEngine_ReorderRaid10FarSegments(t *testing.T) {
	tests := []struct {
		name    string
		extents uint32
		extend  bool
		want    []extentRun
	}{
		{"Extend interleaves the new zone halves", 20, true, []extentRun{{0, 1, 5}, {5, 11, 5}, {10, 6, 5}, {15, 16, 5}}},
		{"Reduce moves zone tails to the end", 8, false, []extentRun{{0, 1, 8}, {8, 11, 8}, {16, 9, 2}, {18, 19, 2}}},
		{"Extend by the whole size", 40, true, []extentRun{{0, 1, 20}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(4, 100)
			f.raid("lv", "raid10_far", 4, 20, 2)
			vg := f.build(t)
			lv := vg.FindLV("lv")
			e := NewEngine(DefaultConfig(), nil, nil, nil, nil, nil, nil)
			if err := e.ReorderRaid10FarSegments(lv, tt.extents, tt.extend); err != nil {
				t.Fatalf("ReorderRaid10FarSegments() error = %v", err)
			}
			for s := uint32(0); s < 4; s++ {
				if diff := pretty.Compare(imageRuns(lv.FirstSegment().DataLV(s)), tt.want); diff != "" {
					t.Errorf("image %d diff (-got +want):\n%s", s, diff)
				}
			}
		})
	}
}

func TestEngine_ReorderRaid10FarSegmentsErrors(t *testing.T) {
	e := NewEngine(DefaultConfig(), nil, nil, nil, nil, nil, nil)

	f := newFixture(4, 100)
	f.raid("lv", "raid10_far", 4, 20, 2)
	lv := f.build(t).FindLV("lv")
	if err := e.ReorderRaid10FarSegments(lv, 0, true); status.Code(err) != codes.Internal {
		t.Errorf("ReorderRaid10FarSegments(0) error = %v, want Internal", err)
	}

	f = newFixture(4, 100)
	f.raid("lv", "raid10_near", 4, 20, 2)
	lv = f.build(t).FindLV("lv")
	if err := e.ReorderRaid10FarSegments(lv, 4, true); status.Code(err) != codes.Internal {
		t.Errorf("ReorderRaid10FarSegments(raid10_near) error = %v, want Internal", err)
	}
}
