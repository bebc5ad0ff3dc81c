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
	"testing"

	matchers "github.com/Storytel/gomock-matchers"
	"github.com/aleofreddi/lvmraid/pkg/alloc"
	"github.com/aleofreddi/lvmraid/pkg/mock"
	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mocks struct {
	store  *mock.MockStore
	act    *mock.MockActivator
	alloc  *mock.MockAllocator
	status *mock.MockStatus
	prompt *mock.MockPrompter
	wiper  *mock.MockWiper
}

func newEngine(ctrl *gomock.Controller) (*raid.Engine, *mocks) {
	m := &mocks{
		store:  mock.NewMockStore(ctrl),
		act:    mock.NewMockActivator(ctrl),
		alloc:  mock.NewMockAllocator(ctrl),
		status: mock.NewMockStatus(ctrl),
		prompt: mock.NewMockPrompter(ctrl),
		wiper:  mock.NewMockWiper(ctrl),
	}
	return raid.NewEngine(raid.Config{}, m.store, m.act, m.alloc, m.status, m.prompt, m.wiper), m
}

// raid1VG returns vg00 holding a raid1 lv with one image per device.
func raid1VG(t *testing.T, images int) *raid.VolumeGroup {
	t.Helper()
	doc := &raid.VGDocument{Name: "vg00", ID: uuid.New(), ExtentSize: 8192}
	for i := 0; i < images; i++ {
		doc.PVs = append(doc.PVs, raid.PVDocument{Name: fmt.Sprintf("/dev/sd%c", 'a'+i), PECount: 100})
	}
	seg := raid.SegmentDocument{Type: "raid1", Len: 10, AreaLen: 10, RegionSize: 1024, DataCopies: uint32(images)}
	doc.LVs = append(doc.LVs, raid.LVDocument{
		ID:      1,
		UUID:    uuid.New(),
		Name:    raid.NameDocument{Base: "lv", Index: -1},
		Status:  []string{"VISIBLE", "READ", "WRITE", "RAID"},
		LECount: 10,
	})
	sub := func(role string, s int, flag string, pe, extents uint32) raid.LVID {
		id := raid.LVID(len(doc.LVs) + 1)
		doc.LVs = append(doc.LVs, raid.LVDocument{
			ID:      id,
			UUID:    uuid.New(),
			Name:    raid.NameDocument{Base: "lv", Role: role, Index: s},
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
	for s := 0; s < images; s++ {
		seg.MetaAreas = append(seg.MetaAreas, raid.AreaDocument{LV: sub("rmeta", s, "RAID_META", 0, 1)})
		seg.Areas = append(seg.Areas, raid.AreaDocument{LV: sub("rimage", s, "RAID_IMAGE", 1, 10)})
	}
	doc.LVs[0].Segments = []raid.SegmentDocument{seg}
	vg, err := raid.VolumeGroupFromDocument(doc)
	if err != nil {
		t.Fatalf("VolumeGroupFromDocument() error = %v", err)
	}
	return vg
}

func TestEngine_ConvertInactive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	lv := raid1VG(t, 2).FindLV("lv")

	m.act.EXPECT().IsActive(gomock.Any(), lv).Return(false, nil)

	out, err := engine.Convert(context.Background(), lv, raid.ConvertRequest{Type: raid.Raid5})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("Convert() error = %v, want FailedPrecondition", err)
	}
	if out != raid.Unchanged {
		t.Errorf("Convert() = %v, want %v", out, raid.Unchanged)
	}
}

func TestEngine_ConvertSameType(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	lv := raid1VG(t, 2).FindLV("lv")

	m.act.EXPECT().IsActive(gomock.Any(), lv).Return(true, nil)

	out, err := engine.Convert(context.Background(), lv, raid.ConvertRequest{Type: raid.Raid1})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if out != raid.Unchanged {
		t.Errorf("Convert() = %v, want %v", out, raid.Unchanged)
	}
}

func TestEngine_ConvertDeclined(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	lv := raid1VG(t, 3).FindLV("lv")

	m.act.EXPECT().IsActive(gomock.Any(), lv).Return(true, nil)
	m.status.EXPECT().SyncPercent(gomock.Any(), lv).Return(100.0, nil)
	m.prompt.EXPECT().Confirm(matchers.Regexp(`non-recommended "mirror" type\?`)).Return(false)

	out, err := engine.Convert(context.Background(), lv, raid.ConvertRequest{Type: raid.Mirror})
	if status.Code(err) != codes.Aborted {
		t.Errorf("Convert() error = %v, want Aborted", err)
	}
	if out != raid.Unchanged {
		t.Errorf("Convert() = %v, want %v", out, raid.Unchanged)
	}
	if got := lv.FirstSegment().Type; got != raid.Raid1 {
		t.Errorf("segment type = %v, want %v", got, raid.Raid1)
	}
}

func TestEngine_ConvertNotInSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	lv := raid1VG(t, 3).FindLV("lv")

	m.act.EXPECT().IsActive(gomock.Any(), lv).Return(true, nil)
	m.status.EXPECT().SyncPercent(gomock.Any(), lv).Return(42.0, nil)

	_, err := engine.Convert(context.Background(), lv, raid.ConvertRequest{Type: raid.Mirror})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("Convert() error = %v, want FailedPrecondition", err)
	}
}

func TestEngine_SplitAndTrackThenMerge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	vg := raid1VG(t, 3)
	lv := vg.FindLV("lv")
	img := vg.FindLV("lv_rimage_2")
	meta := vg.FindLV("lv_rmeta_2")

	gomock.InOrder(
		m.status.EXPECT().SyncPercent(gomock.Any(), lv).Return(100.0, nil),
		m.store.EXPECT().Write(vg).Return(nil),
		m.act.EXPECT().Suspend(gomock.Any(), lv).Return(nil),
		m.store.EXPECT().Commit(vg).Return(nil),
		m.act.EXPECT().Resume(gomock.Any(), lv).Return(nil),
		m.store.EXPECT().Backup(vg).Return(nil),
		m.act.EXPECT().IsActiveExclusive(gomock.Any(), lv).Return(true, nil),
		m.act.EXPECT().ActivateExclusive(gomock.Any(), img).Return(nil),
	)
	if err := engine.SplitAndTrack(context.Background(), lv, nil); err != nil {
		t.Fatalf("SplitAndTrack() error = %v", err)
	}
	if !img.Is(raid.Visible) || img.Is(raid.Write) {
		t.Errorf("tracking image status = %v, want visible and read-only", img.Status)
	}

	gomock.InOrder(
		m.act.EXPECT().Deactivate(gomock.Any(), meta).Return(nil),
		m.act.EXPECT().Deactivate(gomock.Any(), img).Return(nil),
		m.store.EXPECT().Write(vg).Return(nil),
		m.act.EXPECT().Suspend(gomock.Any(), lv).Return(nil),
		m.store.EXPECT().Commit(vg).Return(nil),
		m.act.EXPECT().Resume(gomock.Any(), lv).Return(nil),
		m.store.EXPECT().Backup(vg).Return(nil),
	)
	if err := engine.Merge(context.Background(), img); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if img.Is(raid.Visible) || !img.Is(raid.Write) || !img.Is(raid.RaidImage) {
		t.Errorf("merged image status = %v, want hidden writable raid image", img.Status)
	}
}

func TestEngine_SplitAndTrackTwoLegs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	lv := raid1VG(t, 2).FindLV("lv")

	m.status.EXPECT().SyncPercent(gomock.Any(), lv).Return(100.0, nil)

	if err := engine.SplitAndTrack(context.Background(), lv, nil); status.Code(err) != codes.FailedPrecondition {
		t.Errorf("SplitAndTrack() error = %v, want FailedPrecondition", err)
	}
}

func TestEngine_SuspendFailureReverts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	engine, m := newEngine(ctrl)
	vg := raid1VG(t, 3)
	lv := vg.FindLV("lv")

	gomock.InOrder(
		m.status.EXPECT().SyncPercent(gomock.Any(), lv).Return(100.0, nil),
		m.store.EXPECT().Write(vg).Return(nil),
		m.act.EXPECT().Suspend(gomock.Any(), lv).Return(status.Error(codes.Unavailable, "suspend failed")),
		m.store.EXPECT().Revert(vg).Return(nil),
	)
	if err := engine.SplitAndTrack(context.Background(), lv, nil); err == nil {
		t.Errorf("SplitAndTrack() error = nil, want failure")
	}
}

func TestEngine_CreateRaid01(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	_, m := newEngine(ctrl)
	engine := raid.NewEngine(raid.DefaultConfig(), m.store, m.act, alloc.New(), m.status, m.prompt, m.wiper)

	vg := raid.NewVolumeGroup("vg00", 8192)
	for i := 0; i < 4; i++ {
		vg.AddPV(fmt.Sprintf("/dev/sd%c", 'a'+i), 100)
	}
	lv, err := vg.CreateLV(raid.PlainName("lv"), raid.Visible|raid.Read|raid.Write)
	if err != nil {
		t.Fatalf("CreateLV() error = %v", err)
	}

	m.store.EXPECT().Archive(vg).Return(nil)
	m.store.EXPECT().Write(vg).Return(nil).Times(2)
	m.store.EXPECT().Commit(vg).Return(nil).Times(2)
	m.store.EXPECT().Backup(vg).Return(nil)
	m.act.EXPECT().IsActive(gomock.Any(), gomock.Any()).Return(true, nil).Times(2)
	m.wiper.EXPECT().WipeFirstSector(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	if err := engine.CreateRaid01(context.Background(), lv, raid.Raid01, 2, 2, 128, 0, 20, nil); err != nil {
		t.Fatalf("CreateRaid01() error = %v", err)
	}
	seg := lv.FirstSegment()
	if seg.Type != raid.Raid01 || seg.AreaCount() != 2 || lv.LECount != 20 {
		t.Errorf("CreateRaid01() layout = %s with %d images of %d extents, want raid01 with 2 images of 20 extents",
			seg.Type, seg.AreaCount(), lv.LECount)
	}
	if got := len(raid.MetaImages(lv)); got != 2 {
		t.Errorf("MetaImages() = %d, want 2", got)
	}
	for s := uint32(0); s < seg.AreaCount(); s++ {
		if img := seg.DataLV(s); img == nil || img.FirstSegment().AreaCount() != 2 {
			t.Errorf("image %d is not striped over 2 devices", s)
		}
	}
}

func TestEngine_CreateRaid01Usage(t *testing.T) {
	tests := []struct {
		name       string
		segType    *raid.SegmentType
		dataCopies uint32
		stripes    uint32
		extents    uint32
	}{
		{"Not a raid01 type", raid.Raid1, 2, 2, 20},
		{"Single data copy", raid.Raid01, 1, 2, 20},
		{"Single stripe", raid.Raid01, 2, 1, 20},
		{"No extents", raid.Raid01, 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			engine, _ := newEngine(ctrl)
			vg := raid.NewVolumeGroup("vg00", 8192)
			vg.AddPV("/dev/sda", 100)
			lv, err := vg.CreateLV(raid.PlainName("lv"), raid.Visible|raid.Read|raid.Write)
			if err != nil {
				t.Fatalf("CreateLV() error = %v", err)
			}
			err = engine.CreateRaid01(context.Background(), lv, tt.segType, tt.dataCopies, tt.stripes, 128, 0, tt.extents, nil)
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("CreateRaid01() error = %v, want InvalidArgument", err)
			}
		})
	}
}
