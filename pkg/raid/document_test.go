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

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestVolumeGroupFromDocument_RoundTrip(t *testing.T) {
	f := newFixture(3, 100)
	f.raid("lv", "raid5_ls", 3, 10, 0)
	f.linear(NameDocument{Base: "plain", Index: -1}, []string{"VISIBLE", "READ"}, NoLV, 0, 5)
	vg := f.build(t)

	lv := vg.FindLV("lv")
	if lv == nil || lv.LECount != 20 || ImageCount(lv) != 3 {
		t.Fatalf("VolumeGroupFromDocument() lv = %v", lv)
	}
	if img := lv.FirstSegment().DataLV(2); img == nil || img.Name.String() != "lv_rimage_2" || img.ParentLV() != lv {
		t.Errorf("DataLV(2) = %v, want lv_rimage_2 below lv", img)
	}
	if diff := cmp.Diff(f.doc, vg.Document(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Document() diff (-want +got):\n%s", diff)
	}
}

func TestVolumeGroupFromDocument_Errors(t *testing.T) {
	valid := func() *VGDocument {
		f := newFixture(2, 100)
		f.raid("lv", "raid1", 2, 10, 0)
		return f.doc
	}
	tests := []struct {
		name   string
		mutate func(doc *VGDocument)
	}{
		{"Missing extent size", func(doc *VGDocument) { doc.ExtentSize = 0 }},
		{"Zero id", func(doc *VGDocument) { doc.LVs[0].ID = NoLV }},
		{"Duplicate id", func(doc *VGDocument) { doc.LVs[1].ID = 1 }},
		{"Unknown role", func(doc *VGDocument) { doc.LVs[1].Name.Role = "rsnap" }},
		{"Unknown flag", func(doc *VGDocument) { doc.LVs[0].Status = append(doc.LVs[0].Status, "LOCKED") }},
		{"Unknown segment type", func(doc *VGDocument) { doc.LVs[0].Segments[0].Type = "raid7" }},
		{"Dangling area", func(doc *VGDocument) { doc.LVs[0].Segments[0].Areas[0].LV = 42 }},
		{"Dangling parent", func(doc *VGDocument) { doc.LVs[1].Parent = 42 }},
		{"Unknown device", func(doc *VGDocument) { doc.LVs[1].Segments[0].Areas[0].PV = "/dev/nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := valid()
			doc.ID = uuid.New()
			tt.mutate(doc)
			if _, err := VolumeGroupFromDocument(doc); status.Code(err) != codes.InvalidArgument {
				t.Errorf("VolumeGroupFromDocument() error = %v, want InvalidArgument", err)
			}
		})
	}
}
