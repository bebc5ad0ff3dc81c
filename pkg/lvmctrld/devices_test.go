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

package lvmctrld

import (
	"context"
	"testing"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func linearDoc(id raid.LVID, base string, role string, index int, parent raid.LVID, pv string, pe, extents uint32) raid.LVDocument {
	return raid.LVDocument{
		ID:      id,
		UUID:    uuid.New(),
		Name:    raid.NameDocument{Base: base, Role: role, Index: index},
		Status:  []string{"READ", "WRITE"},
		LECount: extents,
		Parent:  parent,
		Segments: []raid.SegmentDocument{{
			Type: "striped", Len: extents, AreaLen: extents,
			Areas: []raid.AreaDocument{{PV: pv, PE: pe}},
		}},
	}
}

// raid1VG holds the 2-way raid1 vg00/lv of 10 extents.
func raid1VG(t *testing.T) *raid.VolumeGroup {
	vg, err := raid.VolumeGroupFromDocument(&raid.VGDocument{
		Name:       "vg00",
		ID:         uuid.New(),
		ExtentSize: 8192,
		PVs:        []raid.PVDocument{{Name: "/dev/sda", PECount: 100}, {Name: "/dev/sdb", PECount: 100}},
		LVs: []raid.LVDocument{
			{
				ID:      1,
				UUID:    uuid.New(),
				Name:    raid.NameDocument{Base: "lv", Index: -1},
				Status:  []string{"VISIBLE", "READ", "WRITE", "RAID"},
				LECount: 10,
				Segments: []raid.SegmentDocument{{
					Type: "raid1", Len: 10, AreaLen: 10, RegionSize: 1024, DataCopies: 2,
					Areas:     []raid.AreaDocument{{LV: 3}, {LV: 5}},
					MetaAreas: []raid.AreaDocument{{LV: 2}, {LV: 4}},
				}},
			},
			linearDoc(2, "lv", "rmeta", 0, 1, "/dev/sda", 0, 1),
			linearDoc(3, "lv", "rimage", 0, 1, "/dev/sda", 1, 10),
			linearDoc(4, "lv", "rmeta", 1, 1, "/dev/sdb", 0, 1),
			linearDoc(5, "lv", "rimage", 1, 1, "/dev/sdb", 1, 10),
		},
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return vg
}

const (
	notFound  = "Device does not exist.\nCommand failed.\n"
	raidTable = "0 81920 raid raid1 3 0 region_size 1024 2 /dev/mapper/vg00-lv_rmeta_0 /dev/mapper/vg00-lv_rimage_0 /dev/mapper/vg00-lv_rmeta_1 /dev/mapper/vg00-lv_rimage_1"
)

func info(name string, rc int, stderr string) fakeCommand {
	return dm("info", "-c", "--noheadings", "-o", "name", name).fails(rc, stderr)
}

func TestTableBuilder_table(t *testing.T) {
	b := tableBuilder{mapperDir: "/dev/mapper", peStart: DefaultPEStart}
	tests := []struct {
		name    string
		lv      string
		prepare func(vg *raid.VolumeGroup)
		want    string
		wantErr bool
	}{
		{"Linear metadata image", "lv_rmeta_0", nil, "0 8192 linear /dev/sda 2048", false},
		{"Linear data image", "lv_rimage_1", nil, "0 81920 linear /dev/sdb 10240", false},
		{"Raid1 top-level", "lv", nil, raidTable, false},
		{
			"Rebuild and delta disks",
			"lv",
			func(vg *raid.VolumeGroup) {
				vg.FindLV("lv_rimage_1").Status |= raid.Rebuild | raid.ReshapeDeltaPlus
			},
			"0 81920 raid raid1 7 0 region_size 1024 rebuild 1 delta_disks 1 2 /dev/mapper/vg00-lv_rmeta_0 /dev/mapper/vg00-lv_rimage_0 /dev/mapper/vg00-lv_rmeta_1 /dev/mapper/vg00-lv_rimage_1",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vg := raid1VG(t)
			if tt.prepare != nil {
				tt.prepare(vg)
			}
			got, err := b.table(vg.FindLV(tt.lv))
			if (err != nil) != tt.wantErr {
				t.Errorf("table() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("table() got = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDevices_Activate(t *testing.T) {
	tests := []struct {
		name        string
		lv          string
		executions  []fakeCommand
		wantErr     bool
		wantErrCode codes.Code
	}{
		{
			"Create missing mapping",
			"lv_rmeta_0",
			[]fakeCommand{
				info("vg00-lv_rmeta_0", 1, notFound),
				dm("create", "vg00-lv_rmeta_0", "--table", "0 8192 linear /dev/sda 2048"),
			},
			false,
			codes.OK,
		},
		{
			"Reload and resume existing mapping",
			"lv_rmeta_0",
			[]fakeCommand{
				info("vg00-lv_rmeta_0", 0, ""),
				dm("reload", "vg00-lv_rmeta_0", "--table", "0 8192 linear /dev/sda 2048"),
				dm("resume", "vg00-lv_rmeta_0"),
			},
			false,
			codes.OK,
		},
		{
			"Activate sub volumes first",
			"lv",
			[]fakeCommand{
				info("vg00-lv_rmeta_0", 0, ""),
				dm("reload", "vg00-lv_rmeta_0", "--table", "0 8192 linear /dev/sda 2048"),
				dm("resume", "vg00-lv_rmeta_0"),
				info("vg00-lv_rmeta_1", 0, ""),
				dm("reload", "vg00-lv_rmeta_1", "--table", "0 8192 linear /dev/sdb 2048"),
				dm("resume", "vg00-lv_rmeta_1"),
				info("vg00-lv_rimage_0", 0, ""),
				dm("reload", "vg00-lv_rimage_0", "--table", "0 81920 linear /dev/sda 10240"),
				dm("resume", "vg00-lv_rimage_0"),
				info("vg00-lv_rimage_1", 0, ""),
				dm("reload", "vg00-lv_rimage_1", "--table", "0 81920 linear /dev/sdb 10240"),
				dm("resume", "vg00-lv_rimage_1"),
				info("vg00-lv", 1, notFound),
				dm("create", "vg00-lv", "--table", raidTable),
			},
			false,
			codes.OK,
		},
		{
			"Fail on rejected table",
			"lv_rmeta_0",
			[]fakeCommand{
				info("vg00-lv_rmeta_0", 0, ""),
				dm("reload", "vg00-lv_rmeta_0", "--table", "0 8192 linear /dev/sda 2048").
					fails(1, "device-mapper: reload ioctl on vg00-lv_rmeta_0  failed: Invalid argument\nCommand failed.\n"),
			},
			true,
			codes.InvalidArgument,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vg := raid1VG(t)
			runner := &fakeRunner{t: t, executions: tt.executions}
			d := &Devices{cmd: runner, table: tableBuilder{mapperDir: "/dev/mapper", peStart: DefaultPEStart}}
			err := d.Activate(context.Background(), vg.FindLV(tt.lv))
			if (err != nil) != tt.wantErr {
				t.Errorf("Activate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if (err != nil) && status.Code(err) != tt.wantErrCode {
				t.Errorf("Activate() error code = %v, wantErrCode %v", status.Code(err), tt.wantErrCode)
				return
			}
			runner.done()
		})
	}
}

func TestDevices_Deactivate(t *testing.T) {
	vg := raid1VG(t)
	runner := &fakeRunner{t: t, executions: []fakeCommand{
		info("vg00-lv", 0, ""),
		dm("remove", "vg00-lv"),
		info("vg00-lv_rimage_1", 0, ""),
		dm("remove", "vg00-lv_rimage_1"),
		info("vg00-lv_rimage_0", 1, notFound),
		info("vg00-lv_rmeta_1", 0, ""),
		dm("remove", "vg00-lv_rmeta_1"),
		info("vg00-lv_rmeta_0", 0, ""),
		dm("remove", "vg00-lv_rmeta_0"),
	}}
	d := &Devices{cmd: runner, table: tableBuilder{mapperDir: "/dev/mapper", peStart: DefaultPEStart}}
	if err := d.Deactivate(context.Background(), vg.FindLV("lv")); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	runner.done()
}

func TestDevices_Status(t *testing.T) {
	const line = "0 81920 raid raid1 2 AD 40960/81920 recover 0 2048 -\n"
	vg := raid1VG(t)
	lv := vg.FindLV("lv")
	st := dm("status", "vg00-lv").prints(line)
	runner := &fakeRunner{t: t, executions: []fakeCommand{st, st, st, st, st}}
	d := &Devices{cmd: runner}
	ctx := context.Background()

	if got, err := d.SyncPercent(ctx, lv); err != nil || got != 50 {
		t.Errorf("SyncPercent() got = %v, %v, want 50", got, err)
	}
	if got, err := d.DeviceCount(ctx, lv); err != nil || got != 2 {
		t.Errorf("DeviceCount() got = %v, %v, want 2", got, err)
	}
	if got, err := d.DeviceHealth(ctx, lv); err != nil || got != "AD" {
		t.Errorf("DeviceHealth() got = %q, %v, want AD", got, err)
	}
	if offset, size, err := d.DataOffsetAndSize(ctx, lv); err != nil || offset != 2048 || size != 81920 {
		t.Errorf("DataOffsetAndSize() got = %d, %d, %v, want 2048, 81920", offset, size, err)
	}
	if got, err := d.SyncAction(ctx, lv); err != nil || got != "recover" {
		t.Errorf("SyncAction() got = %q, %v, want recover", got, err)
	}
	runner.done()
}

func TestDevices_Message(t *testing.T) {
	vg := raid1VG(t)
	runner := &fakeRunner{t: t, executions: []fakeCommand{
		dm("message", "vg00-lv", "0", "repair"),
	}}
	d := &Devices{cmd: runner}
	if err := d.Message(context.Background(), vg.FindLV("lv"), "repair"); err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	runner.done()
}

func TestSimulator(t *testing.T) {
	vg := raid1VG(t)
	lv := vg.FindLV("lv")
	s := NewSimulator(vg)
	ctx := context.Background()
	if ok, _ := s.IsActive(ctx, lv); !ok {
		t.Errorf("IsActive() = false, want true")
	}
	if err := s.Deactivate(ctx, lv); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if ok, _ := s.IsActive(ctx, vg.FindLV("lv_rimage_0")); ok {
		t.Errorf("IsActive() of deactivated image = true, want false")
	}
	if err := s.Resume(ctx, lv); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if ok, _ := s.IsActive(ctx, lv); !ok {
		t.Errorf("IsActive() after Resume = false, want true")
	}
	if h, _ := s.DeviceHealth(ctx, lv); h != "AA" {
		t.Errorf("DeviceHealth() = %q, want AA", h)
	}
	if len(s.Log) != 6 {
		t.Errorf("Log has %d entries, want 6: %v", len(s.Log), s.Log)
	}
}

func TestSimulator_StripeRemoval(t *testing.T) {
	vg := raid1VG(t)
	lv := vg.FindLV("lv")
	s := NewSimulator(vg)
	ctx := context.Background()

	vg.FindLV("lv_rimage_1").Status |= raid.ReshapeDeltaMinus
	if err := s.Resume(ctx, lv); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if n, _ := s.DeviceCount(ctx, lv); n != 1 {
		t.Errorf("DeviceCount() after shrinking load = %d, want 1", n)
	}

	// The reduced array survives reloads without the reshape flags.
	vg.FindLV("lv_rimage_1").Status &^= raid.ReshapeDeltaMinus
	if err := s.Resume(ctx, lv); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if n, _ := s.DeviceCount(ctx, lv); n != 1 {
		t.Errorf("DeviceCount() after flag reset = %d, want 1", n)
	}
	if h, _ := s.DeviceHealth(ctx, lv); h != "A" {
		t.Errorf("DeviceHealth() = %q, want A", h)
	}
	if n, _ := s.DeviceCount(ctx, vg.FindLV("lv_rimage_0")); n != 1 {
		t.Errorf("DeviceCount() of a linear image = %d, want 1", n)
	}
}
