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
	"fmt"
	"testing"

	"github.com/google/uuid"
)

// fixture assembles volume group documents with one growing extent cursor
// per physical volume.
type fixture struct {
	doc    *VGDocument
	cursor []uint32
}

func newFixture(pvs int, peCount uint32) *fixture {
	f := &fixture{
		doc:    &VGDocument{Name: "vg00", ID: uuid.New(), ExtentSize: 8192},
		cursor: make([]uint32, pvs),
	}
	for i := 0; i < pvs; i++ {
		f.doc.PVs = append(f.doc.PVs, PVDocument{Name: pvName(i), PECount: peCount})
	}
	return f
}

func pvName(i int) string {
	return fmt.Sprintf("/dev/sd%c", 'a'+i)
}

func (f *fixture) nextID() LVID {
	return LVID(len(f.doc.LVs) + 1)
}

func (f *fixture) alloc(pv int, extents uint32) AreaDocument {
	a := AreaDocument{PV: pvName(pv), PE: f.cursor[pv]}
	f.cursor[pv] += extents
	return a
}

// linear adds a volume of extents on pv.
func (f *fixture) linear(name NameDocument, status []string, parent LVID, pv int, extents uint32) LVID {
	id := f.nextID()
	f.doc.LVs = append(f.doc.LVs, LVDocument{
		ID:      id,
		UUID:    uuid.New(),
		Name:    name,
		Status:  status,
		LECount: extents,
		Parent:  parent,
		Segments: []SegmentDocument{{
			Type: "striped", Len: extents, AreaLen: extents,
			Areas: []AreaDocument{f.alloc(pv, extents)},
		}},
	})
	return id
}

// raid adds base with images data images of imageExtents, image i and its
// metadata living on pv i.
func (f *fixture) raid(base, typeName string, images, imageExtents, dataCopies uint32) LVID {
	t, err := LookupSegmentType(typeName)
	if err != nil {
		panic(err)
	}
	if dataCopies == 0 {
		switch {
		case t.IsRaid1():
			dataCopies = images
		case t.IsAnyRaid10():
			dataCopies = 2
		default:
			dataCopies = t.ParityDevs + 1
		}
	}
	var le uint32
	switch {
	case t.IsRaid1():
		le = imageExtents
	case t.IsAnyRaid10():
		le = images * imageExtents / dataCopies
	default:
		le = (images - t.ParityDevs) * imageExtents
	}
	seg := SegmentDocument{Type: t.Name, Len: le, AreaLen: imageExtents, DataCopies: dataCopies}
	if !t.IsRaid1() {
		seg.StripeSize = 128
	}
	if !t.IsAnyRaid0() {
		seg.RegionSize = 1024
	}
	top := f.nextID()
	f.doc.LVs = append(f.doc.LVs, LVDocument{
		ID:      top,
		UUID:    uuid.New(),
		Name:    NameDocument{Base: base, Index: -1},
		Status:  []string{"VISIBLE", "READ", "WRITE", "RAID"},
		LECount: le,
	})
	for s := uint32(0); s < images; s++ {
		if !t.IsRaid0() {
			meta := f.linear(NameDocument{Base: base, Role: "rmeta", Index: int(s)}, []string{"READ", "WRITE", "RAID", "RAID_META"}, top, int(s), 1)
			seg.MetaAreas = append(seg.MetaAreas, AreaDocument{LV: meta})
		}
		img := f.linear(NameDocument{Base: base, Role: "rimage", Index: int(s)}, []string{"READ", "WRITE", "RAID", "RAID_IMAGE"}, top, int(s), imageExtents)
		seg.Areas = append(seg.Areas, AreaDocument{LV: img})
	}
	f.doc.LVs[top-1].Segments = []SegmentDocument{seg}
	return top
}

func (f *fixture) build(t *testing.T) *VolumeGroup {
	t.Helper()
	vg, err := VolumeGroupFromDocument(f.doc)
	if err != nil {
		t.Fatalf("VolumeGroupFromDocument() error = %v", err)
	}
	return vg
}

// markPartial flags images of lv, and lv itself, as partial.
func markPartial(lv *LogicalVolume, images ...uint32) {
	seg := lv.FirstSegment()
	for _, s := range images {
		seg.DataLV(s).Status |= Partial
	}
	if len(images) > 0 {
		lv.Status |= Partial
	}
}

func typeNameList(types []*SegmentType) []string {
	var out []string
	for _, t := range types {
		out = append(out, t.Name)
	}
	return out
}
