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

package raid_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aleofreddi/lvmraid/pkg/alloc"
	"github.com/aleofreddi/lvmraid/pkg/lvmctrld"
	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/aleofreddi/lvmraid/pkg/vgstore"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// answer replies to every confirmation with reply and remembers the
// prompts.
type answer struct {
	reply bool
	asked []string
}

func (a *answer) Confirm(prompt string) bool {
	a.asked = append(a.asked, prompt)
	return a.reply
}

// layout builds vg00 with pvs devices of 100 extents. Images of raid
// layouts keep their metadata at extent 0 and their data at extent 1 of
// device i; striped layouts place stripe i at extent 0 of device i.
type layout struct {
	typeName   string
	images     uint32
	extents    uint32
	pvs        int
	stripeSize uint32
}

func (l layout) document(t *testing.T) *raid.VGDocument {
	t.Helper()
	doc := &raid.VGDocument{Name: "vg00", ID: uuid.New(), ExtentSize: 8192}
	for i := 0; i < l.pvs; i++ {
		doc.PVs = append(doc.PVs, raid.PVDocument{Name: fmt.Sprintf("/dev/sd%c", 'a'+i), PECount: 100})
	}
	stripeSize := l.stripeSize
	if stripeSize == 0 {
		stripeSize = 128
	}
	if l.typeName == "striped" {
		seg := raid.SegmentDocument{Type: "striped", Len: l.images * l.extents, AreaLen: l.extents}
		if l.images > 1 {
			seg.StripeSize = stripeSize
		}
		for i := uint32(0); i < l.images; i++ {
			seg.Areas = append(seg.Areas, raid.AreaDocument{PV: doc.PVs[i].Name})
		}
		doc.LVs = append(doc.LVs, raid.LVDocument{
			ID:       1,
			UUID:     uuid.New(),
			Name:     raid.NameDocument{Base: "lv", Index: -1},
			Status:   []string{"VISIBLE", "READ", "WRITE"},
			LECount:  seg.Len,
			Segments: []raid.SegmentDocument{seg},
		})
		return doc
	}

	st, err := raid.LookupSegmentType(l.typeName)
	if err != nil {
		t.Fatalf("LookupSegmentType(%q) error = %v", l.typeName, err)
	}
	seg := raid.SegmentDocument{Type: st.Name, AreaLen: l.extents, RegionSize: 1024}
	if st.IsRaid1() {
		seg.Len, seg.DataCopies = l.extents, l.images
	} else {
		seg.Len, seg.DataCopies = (l.images-st.ParityDevs)*l.extents, st.ParityDevs+1
		seg.StripeSize = stripeSize
	}
	doc.LVs = append(doc.LVs, raid.LVDocument{
		ID:      1,
		UUID:    uuid.New(),
		Name:    raid.NameDocument{Base: "lv", Index: -1},
		Status:  []string{"VISIBLE", "READ", "WRITE", "RAID"},
		LECount: seg.Len,
	})
	sub := func(role string, s uint32, flag string, pe, extents uint32) raid.LVID {
		id := raid.LVID(len(doc.LVs) + 1)
		doc.LVs = append(doc.LVs, raid.LVDocument{
			ID:      id,
			UUID:    uuid.New(),
			Name:    raid.NameDocument{Base: "lv", Role: role, Index: int(s)},
			Status:  []string{"READ", "WRITE", "RAID", flag},
			LECount: extents,
			Parent:  1,
			Segments: []raid.SegmentDocument{{
				Type: "striped", Len: extents, AreaLen: extents,
				Areas: []raid.AreaDocument{{PV: doc.PVs[s].Name, PE: pe}},
			}},
		})
		return id
	}
	for s := uint32(0); s < l.images; s++ {
		seg.MetaAreas = append(seg.MetaAreas, raid.AreaDocument{LV: sub("rmeta", s, "RAID_META", 0, 1)})
		seg.Areas = append(seg.Areas, raid.AreaDocument{LV: sub("rimage", s, "RAID_IMAGE", 1, l.extents)})
	}
	doc.LVs[0].Segments = []raid.SegmentDocument{seg}
	return doc
}

// scenario drives a real allocator and metadata file against simulated
// devices.
type scenario struct {
	vg     *raid.VolumeGroup
	lv     *raid.LogicalVolume
	sim    *lvmctrld.Simulator
	prompt *answer
	engine *raid.Engine
}

func newScenario(t *testing.T, l layout, reply bool) *scenario {
	t.Helper()
	vg, err := raid.VolumeGroupFromDocument(l.document(t))
	if err != nil {
		t.Fatalf("VolumeGroupFromDocument() error = %v", err)
	}
	s := &scenario{
		vg:     vg,
		lv:     vg.FindLV("lv"),
		sim:    lvmctrld.NewSimulator(vg),
		prompt: &answer{reply: reply},
	}
	store := vgstore.New(filepath.Join(t.TempDir(), "vg00.json"), "", "")
	s.engine = raid.NewEngine(raid.DefaultConfig(), store, s.sim, alloc.New(), s.sim, s.prompt, s.sim)
	return s
}

func (s *scenario) logged(want string) bool {
	for _, l := range s.sim.Log {
		if strings.Contains(l, want) {
			return true
		}
	}
	return false
}

// placement lists the slot names of lv and the device of each data image.
func placement(lv *raid.LogicalVolume) (names, pvs []string) {
	seg := lv.FirstSegment()
	for i := uint32(0); i < seg.AreaCount(); i++ {
		img := seg.DataLV(i)
		names = append(names, img.Name.String())
		pvs = append(pvs, img.FirstSegment().Areas[0].PV)
	}
	return names, pvs
}

func lvNames(vg *raid.VolumeGroup) []string {
	var out []string
	for _, lv := range vg.LVs() {
		out = append(out, lv.Name.String())
	}
	return out
}

func TestScenario_LinearToRaid1(t *testing.T) {
	s := newScenario(t, layout{typeName: "striped", images: 1, extents: 10, pvs: 3}, true)

	out, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Raid1, ImageCount: 2})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out != raid.Converted {
		t.Errorf("Convert() = %v, want %v", out, raid.Converted)
	}
	if diff := cmp.Diff([]string{"Do you really want to convert vg00/lv with type linear to raid1? [y/n]: "}, s.prompt.asked); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
	seg := s.lv.FirstSegment()
	if seg.Type != raid.Raid1 || seg.AreaCount() != 2 || seg.DataCopies != 2 || seg.RegionSize != 1024 {
		t.Errorf("segment = %v with %d areas, %d copies, region size %d; want raid1 with 2 areas, 2 copies, region size 1024",
			seg.Type, seg.AreaCount(), seg.DataCopies, seg.RegionSize)
	}
	names, pvs := placement(s.lv)
	if diff := cmp.Diff([]string{"lv_rimage_0", "lv_rimage_1"}, names); diff != "" {
		t.Errorf("image names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/dev/sda", "/dev/sdb"}, pvs); diff != "" {
		t.Errorf("image devices mismatch (-want +got):\n%s", diff)
	}
	for i := uint32(0); i < 2; i++ {
		if img := seg.DataLV(i); img.Is(raid.Rebuild) {
			t.Errorf("%s still flagged for rebuild", img.Name)
		}
	}
	if got := s.vg.FindLV("lv_rmeta_0").FirstSegment().Areas[0]; got.PV != "/dev/sda" || got.PE != 10 {
		t.Errorf("lv_rmeta_0 at %s:%d, want /dev/sda:10", got.PV, got.PE)
	}
}

func TestScenario_Raid1ToLinear(t *testing.T) {
	for _, tc := range []struct {
		name string
		run  func(*scenario) error
	}{
		{
			name: "convert",
			run: func(s *scenario) error {
				_, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Striped, ImageCount: 1})
				return err
			},
		},
		{
			name: "change image count",
			run: func(s *scenario) error {
				return s.engine.ChangeImageCount(context.Background(), s.lv, 1, nil)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newScenario(t, layout{typeName: "raid1", images: 2, extents: 10, pvs: 2}, true)

			if err := tc.run(s); err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(s.prompt.asked) == 0 || !strings.Contains(s.prompt.asked[0], "with type raid1 to linear?") {
				t.Errorf("prompts = %q, want a raid1 to linear confirmation", s.prompt.asked)
			}
			if !s.lv.IsLinear() || s.lv.IsRaid() {
				t.Errorf("lv status %v, want a linear volume", s.lv.Status)
			}
			if got := s.lv.FirstSegment().Areas[0]; got.PV != "/dev/sda" || got.PE != 1 {
				t.Errorf("lv at %s:%d, want /dev/sda:1", got.PV, got.PE)
			}
			if diff := cmp.Diff([]string{"lv"}, lvNames(s.vg)); diff != "" {
				t.Errorf("volumes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScenario_ChangeImageCount(t *testing.T) {
	s := newScenario(t, layout{typeName: "raid1", images: 4, extents: 10, pvs: 4}, true)

	if err := s.engine.ChangeImageCount(context.Background(), s.lv, 0, nil); status.Code(err) != codes.InvalidArgument {
		t.Errorf("ChangeImageCount(0) error = %v, want InvalidArgument", err)
	}
	if err := s.engine.ChangeImageCount(context.Background(), s.lv, 2, nil); err != nil {
		t.Fatalf("ChangeImageCount(2) error = %v", err)
	}
	seg := s.lv.FirstSegment()
	if seg.AreaCount() != 2 || seg.DataCopies != 2 {
		t.Errorf("segment has %d areas and %d copies, want 2 and 2", seg.AreaCount(), seg.DataCopies)
	}
	if diff := cmp.Diff([]string{"lv", "lv_rmeta_0", "lv_rimage_0", "lv_rmeta_1", "lv_rimage_1"}, lvNames(s.vg)); diff != "" {
		t.Errorf("volumes mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_ShrinkKeepsNamesDense(t *testing.T) {
	s := newScenario(t, layout{typeName: "raid1", images: 3, extents: 10, pvs: 3}, true)

	if err := s.engine.ChangeImageCount(context.Background(), s.lv, 2, []string{"/dev/sdb"}); err != nil {
		t.Fatalf("ChangeImageCount() error = %v", err)
	}
	names, pvs := placement(s.lv)
	if diff := cmp.Diff([]string{"lv_rimage_0", "lv_rimage_1"}, names); diff != "" {
		t.Errorf("image names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/dev/sda", "/dev/sdc"}, pvs); diff != "" {
		t.Errorf("image devices mismatch (-want +got):\n%s", diff)
	}
	if got := s.lv.FirstSegment().MetaLV(1).Name.String(); got != "lv_rmeta_1" {
		t.Errorf("meta of slot 1 = %s, want lv_rmeta_1", got)
	}
	if s.vg.FindLV("lv_rimage_2") != nil {
		t.Errorf("lv_rimage_2 still exists")
	}
}

func TestScenario_StripedRaid0RoundTrip(t *testing.T) {
	s := newScenario(t, layout{typeName: "striped", images: 3, extents: 10, pvs: 3}, true)
	before := s.vg.Document().LVs

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Raid0, Yes: true}); err != nil {
		t.Fatalf("Convert(raid0) error = %v", err)
	}
	if got := s.lv.FirstSegment().Type; got != raid.Raid0 {
		t.Errorf("segment type = %v, want raid0", got)
	}
	names, _ := placement(s.lv)
	if diff := cmp.Diff([]string{"lv_rimage_0", "lv_rimage_1", "lv_rimage_2"}, names); diff != "" {
		t.Errorf("image names mismatch (-want +got):\n%s", diff)
	}
	table := "load vg00-lv: 0 245760 raid raid0 1 128 3 - /dev/mapper/vg00-lv_rimage_0 - /dev/mapper/vg00-lv_rimage_1 - /dev/mapper/vg00-lv_rimage_2"
	if !s.logged(table) {
		t.Errorf("log = %q, want %q", s.sim.Log, table)
	}

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Striped, Yes: true}); err != nil {
		t.Fatalf("Convert(striped) error = %v", err)
	}
	if diff := cmp.Diff(before, s.vg.Document().LVs); diff != "" {
		t.Errorf("round trip mismatch (-before +after):\n%s", diff)
	}
}

func TestScenario_StripedToRaid10(t *testing.T) {
	s := newScenario(t, layout{typeName: "striped", images: 3, extents: 10, pvs: 6}, true)

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Raid10, Yes: true}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	seg := s.lv.FirstSegment()
	if seg.Type != raid.Raid10Near || seg.DataCopies != 2 || s.lv.LECount != 30 {
		t.Errorf("got %v with %d copies and %d extents, want raid10_near with 2 copies and 30 extents", seg.Type, seg.DataCopies, s.lv.LECount)
	}
	names, pvs := placement(s.lv)
	wantNames := []string{"lv_rimage_0", "lv_rimage_3", "lv_rimage_1", "lv_rimage_4", "lv_rimage_2", "lv_rimage_5"}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("image order mismatch (-want +got):\n%s", diff)
	}
	wantPVs := []string{"/dev/sda", "/dev/sdd", "/dev/sdb", "/dev/sde", "/dev/sdc", "/dev/sdf"}
	if diff := cmp.Diff(wantPVs, pvs); diff != "" {
		t.Errorf("image devices mismatch (-want +got):\n%s", diff)
	}
	for i := uint32(0); i < seg.AreaCount(); i++ {
		if img := seg.DataLV(i); img.Is(raid.Rebuild) {
			t.Errorf("%s still flagged for rebuild", img.Name)
		}
	}
}

func TestScenario_AddStripe(t *testing.T) {
	s := newScenario(t, layout{typeName: "raid5_n", images: 4, extents: 4, pvs: 5}, true)

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Stripes: 4, Yes: true}); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	seg := s.lv.FirstSegment()
	type shape struct{ Areas, LECount, Len, ReshapeLen uint32 }
	if diff := cmp.Diff(shape{5, 20, 20, 4}, shape{seg.AreaCount(), s.lv.LECount, seg.Len, seg.ReshapeLen}); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if seg.DataOffset != 0 {
		t.Errorf("DataOffset = %d, want 0 once the kernel took it", seg.DataOffset)
	}
	for i := uint32(0); i < seg.AreaCount(); i++ {
		img := seg.DataLV(i)
		if got := img.FirstSegment().ReshapeLen; got != 1 {
			t.Errorf("%s ReshapeLen = %d, want 1", img.Name, got)
		}
		if img.Is(raid.ReshapeDeltaPlus) {
			t.Errorf("%s still flagged as added", img.Name)
		}
	}
	if !s.logged("delta_disks 1 data_offset 8192") {
		t.Errorf("log = %q, want a table adding one disk", s.sim.Log)
	}

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Striped, Yes: true}); err != nil {
		t.Fatalf("Convert(striped) error = %v", err)
	}
	if !s.lv.FirstSegment().Type.IsStriped() || s.lv.LECount != 16 {
		t.Errorf("got %v with %d extents, want striped with 16", s.lv.FirstSegment().Type, s.lv.LECount)
	}
	var lens []uint32
	for _, seg := range s.lv.Segments {
		if seg.AreaCount() != 4 {
			t.Errorf("segment at %d has %d areas, want 4", seg.LE, seg.AreaCount())
		}
		lens = append(lens, seg.Len)
	}
	if diff := cmp.Diff([]uint32{4, 12}, lens); diff != "" {
		t.Errorf("segment lengths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"lv"}, lvNames(s.vg)); diff != "" {
		t.Errorf("volumes mismatch (-want +got):\n%s", diff)
	}
	used := map[string]uint32{}
	for _, pv := range s.vg.PVs {
		used[pv.Name] = s.vg.UsedExtents(pv.Name)
	}
	want := map[string]uint32{"/dev/sda": 4, "/dev/sdb": 4, "/dev/sdc": 4, "/dev/sdd": 4, "/dev/sde": 0}
	if diff := cmp.Diff(want, used); diff != "" {
		t.Errorf("used extents mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_RemoveStripe(t *testing.T) {
	ctx := context.Background()
	s := newScenario(t, layout{typeName: "raid5_n", images: 5, extents: 4, pvs: 5}, true)

	if _, err := s.engine.Convert(ctx, s.lv, raid.ConvertRequest{Stripes: 3, Yes: true}); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("Convert() without force error = %v, want FailedPrecondition", err)
	}

	req := raid.ConvertRequest{Stripes: 3, Yes: true, Force: true}
	if _, err := s.engine.Convert(ctx, s.lv, req); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	seg := s.lv.FirstSegment()
	type shape struct{ Areas, LECount, ReshapeLen uint32 }
	if diff := cmp.Diff(shape{5, 20, 4}, shape{seg.AreaCount(), s.lv.LECount, seg.ReshapeLen}); diff != "" {
		t.Errorf("shape after reshape mismatch (-want +got):\n%s", diff)
	}
	if s.vg.FindLV("lv_rimage_4").Is(raid.ReshapeDeltaMinus) {
		t.Errorf("lv_rimage_4 still flagged for removal")
	}
	if n, _ := s.sim.DeviceCount(ctx, s.lv); n != 4 {
		t.Errorf("DeviceCount() = %d, want 4", n)
	}
	if !s.logged("delta_disks -1 data_offset 8192") {
		t.Errorf("log = %q, want a table removing one disk", s.sim.Log)
	}

	if _, err := s.engine.Convert(ctx, s.lv, req); err != nil {
		t.Fatalf("second Convert() error = %v", err)
	}
	seg = s.lv.FirstSegment()
	if diff := cmp.Diff(shape{4, 15, 3}, shape{seg.AreaCount(), s.lv.LECount, seg.ReshapeLen}); diff != "" {
		t.Errorf("shape after removal mismatch (-want +got):\n%s", diff)
	}
	if s.vg.FindLV("lv_rimage_4") != nil {
		t.Errorf("lv_rimage_4 still exists")
	}
	if n, _ := s.sim.DeviceCount(ctx, s.lv); n != 4 {
		t.Errorf("DeviceCount() = %d, want 4", n)
	}
}

func TestScenario_DuplicateThenUnduplicate(t *testing.T) {
	s := newScenario(t, layout{typeName: "striped", images: 1, extents: 10, pvs: 3}, true)

	req := raid.ConvertRequest{Type: raid.Raid1, ImageCount: 2, Duplicate: true, Yes: true}
	if _, err := s.engine.Convert(context.Background(), s.lv, req); err != nil {
		t.Fatalf("Convert(duplicate) error = %v", err)
	}
	if !raid.IsDuplicating(s.lv) {
		t.Fatalf("lv is not duplicating")
	}
	if !s.logged("message vg00-lv 0 repair") {
		t.Errorf("log = %q, want a repair message", s.sim.Log)
	}
	dst := s.vg.FindLV("lv_ddst_0")
	if dst == nil || dst.FirstSegment().Type != raid.Raid1 {
		t.Fatalf("lv_ddst_0 = %v, want a raid1 volume", dst)
	}
	names, pvs := placement(dst)
	if diff := cmp.Diff([]string{"lv_ddst_0_rdimage_0", "lv_ddst_0_rdimage_1"}, names); diff != "" {
		t.Errorf("destination images mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/dev/sdb", "/dev/sdc"}, pvs); diff != "" {
		t.Errorf("destination devices mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.engine.Convert(context.Background(), s.lv, raid.ConvertRequest{Type: raid.Raid1, Yes: true}); err != nil {
		t.Fatalf("Convert(unduplicate) error = %v", err)
	}
	if s.lv.FirstSegment().Type != raid.Raid1 || raid.IsDuplicating(s.lv) {
		t.Errorf("lv is %v, want a plain raid1", s.lv.FirstSegment().Type)
	}
	names, pvs = placement(s.lv)
	if diff := cmp.Diff([]string{"lv_rimage_0", "lv_rimage_1"}, names); diff != "" {
		t.Errorf("image names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/dev/sdb", "/dev/sdc"}, pvs); diff != "" {
		t.Errorf("image devices mismatch (-want +got):\n%s", diff)
	}
	if got := len(s.vg.LVs()); got != 5 {
		t.Errorf("%d volumes (%q), want 5", got, lvNames(s.vg))
	}
	if got := s.vg.UsedExtents("/dev/sda"); got != 0 {
		t.Errorf("UsedExtents(/dev/sda) = %d, want 0", got)
	}
}

func TestScenario_DuplicateKeepsStripeSize(t *testing.T) {
	s := newScenario(t, layout{typeName: "striped", images: 2, extents: 10, pvs: 5, stripeSize: 64}, true)

	req := raid.ConvertRequest{Type: raid.Striped, Stripes: 3, Duplicate: true, Yes: true}
	if _, err := s.engine.Convert(context.Background(), s.lv, req); err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	dst := s.vg.FindLV("lv_ddst_0")
	if dst == nil {
		t.Fatalf("lv_ddst_0 missing, volumes %q", lvNames(s.vg))
	}
	seg := dst.FirstSegment()
	type shape struct{ StripeSize, Areas, LECount uint32 }
	if diff := cmp.Diff(shape{64, 3, 21}, shape{seg.StripeSize, seg.AreaCount(), dst.LECount}); diff != "" {
		t.Errorf("destination mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_Replace(t *testing.T) {
	s := newScenario(t, layout{typeName: "raid1", images: 3, extents: 10, pvs: 4}, true)

	if err := s.engine.Replace(context.Background(), s.lv, false, []string{"/dev/sdb"}, nil); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	names, pvs := placement(s.lv)
	if diff := cmp.Diff([]string{"lv_rimage_0", "lv_rimage_1", "lv_rimage_2"}, names); diff != "" {
		t.Errorf("image names mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/dev/sda", "/dev/sdd", "/dev/sdc"}, pvs); diff != "" {
		t.Errorf("image devices mismatch (-want +got):\n%s", diff)
	}
	if got := s.vg.UsedExtents("/dev/sdb"); got != 0 {
		t.Errorf("UsedExtents(/dev/sdb) = %d, want 0", got)
	}
	if s.vg.FindLV("lv_rimage_3") != nil {
		t.Errorf("lv_rimage_3 still exists")
	}
	if got := len(s.vg.LVs()); got != 7 {
		t.Errorf("%d volumes (%q), want 7", got, lvNames(s.vg))
	}
}

func TestScenario_Declined(t *testing.T) {
	for _, tc := range []struct {
		name   string
		layout layout
		req    raid.ConvertRequest
	}{
		{
			name:   "linear to raid1",
			layout: layout{typeName: "striped", images: 1, extents: 10, pvs: 3},
			req:    raid.ConvertRequest{Type: raid.Raid1, ImageCount: 2},
		},
		{
			name:   "raid1 to linear",
			layout: layout{typeName: "raid1", images: 2, extents: 10, pvs: 2},
			req:    raid.ConvertRequest{Type: raid.Striped, ImageCount: 1},
		},
		{
			name:   "striped to raid0",
			layout: layout{typeName: "striped", images: 3, extents: 10, pvs: 3},
			req:    raid.ConvertRequest{Type: raid.Raid0},
		},
		{
			name:   "add stripe",
			layout: layout{typeName: "raid5_n", images: 4, extents: 4, pvs: 5},
			req:    raid.ConvertRequest{Stripes: 4},
		},
		{
			name:   "duplicate",
			layout: layout{typeName: "striped", images: 1, extents: 10, pvs: 3},
			req:    raid.ConvertRequest{Type: raid.Raid1, ImageCount: 2, Duplicate: true},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := newScenario(t, tc.layout, false)
			before := s.vg.Document()

			out, err := s.engine.Convert(context.Background(), s.lv, tc.req)
			if status.Code(err) != codes.Aborted {
				t.Errorf("Convert() error = %v, want Aborted", err)
			}
			if out != raid.Unchanged {
				t.Errorf("Convert() = %v, want %v", out, raid.Unchanged)
			}
			if len(s.prompt.asked) == 0 {
				t.Errorf("no confirmation asked")
			}
			if diff := cmp.Diff(before, s.vg.Document()); diff != "" {
				t.Errorf("volume group changed (-before +after):\n%s", diff)
			}
		})
	}
}

// Without devices every table change only reaches the simulator log.
func TestScenario_DryRunLog(t *testing.T) {
	s := newScenario(t, layout{typeName: "raid1", images: 2, extents: 10, pvs: 3}, true)

	if err := s.engine.ChangeImageCount(context.Background(), s.lv, 3, nil); err != nil {
		t.Fatalf("ChangeImageCount() error = %v", err)
	}
	for _, want := range []string{"wipe vg00-lv_rmeta", "suspend vg00-lv", "load vg00-lv: 0 81920 raid raid1 ", "region_size 1024"} {
		if !s.logged(want) {
			t.Errorf("log = %q, want %q", s.sim.Log, want)
		}
	}
	if got := s.lv.FirstSegment().DataCopies; got != 3 {
		t.Errorf("DataCopies = %d, want 3", got)
	}
}
