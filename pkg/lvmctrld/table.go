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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aleofreddi/lvmraid/pkg/raid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultPEStart is the sector of the first physical extent on a device.
const DefaultPEStart = 2048

type tableBuilder struct {
	mapperDir string
	peStart   uint64
}

func (b tableBuilder) device(seg *raid.Segment, a raid.Area) (string, error) {
	es := uint64(seg.LV().VG().ExtentSize)
	switch a.Kind {
	case raid.AreaPV:
		return fmt.Sprintf("%s %d", a.PV, b.peStart+uint64(a.PE)*es), nil
	case raid.AreaLV:
		sub := seg.LV().VG().LV(a.LV)
		if sub == nil {
			return "", status.Errorf(codes.Internal, "%s maps missing volume %d", seg.LV(), a.LV)
		}
		return fmt.Sprintf("%s %d", filepath.Join(b.mapperDir, sub.DMName()), uint64(a.PE)*es), nil
	}
	return "", status.Errorf(codes.Internal, "unassigned area in %s", seg.LV())
}

// raidDevice returns the bare device path of a raid metadata or data area,
// or "-" for an unassigned one.
func (b tableBuilder) raidDevice(seg *raid.Segment, a raid.Area) (string, error) {
	if a.Kind == raid.AreaUnassigned {
		return "-", nil
	}
	if a.Kind != raid.AreaLV {
		return "", status.Errorf(codes.Internal, "raid area of %s does not map a volume", seg.LV())
	}
	sub := seg.LV().VG().LV(a.LV)
	if sub == nil {
		return "", status.Errorf(codes.Internal, "%s maps missing volume %d", seg.LV(), a.LV)
	}
	return filepath.Join(b.mapperDir, sub.DMName()), nil
}

// dmRaidType names the dm-raid personality of t.
func dmRaidType(t *raid.SegmentType) string {
	switch {
	case t.IsAnyRaid0():
		return "raid0"
	case t.IsRaid1(), t.IsRaid01():
		return "raid1"
	case t.IsAnyRaid10():
		return "raid10"
	}
	return t.Name
}

func raid10Format(t *raid.SegmentType) string {
	switch {
	case t.IsRaid10Far():
		return "far"
	case t.IsRaid10Offset():
		return "offset"
	}
	return "near"
}

// table returns the device-mapper table of lv, one line per segment.
func (b tableBuilder) table(lv *raid.LogicalVolume) (string, error) {
	es := uint64(lv.VG().ExtentSize)
	var lines []string
	for _, seg := range lv.Segments {
		start, length := uint64(seg.LE)*es, uint64(seg.Len)*es
		var target string
		var err error
		switch t := seg.Type; {
		case t.IsError():
			target = "error"
		case t.IsStriped():
			target, err = b.striped(seg)
		case t.IsMirror():
			target, err = b.mirror(seg)
		case t.IsRaid():
			target, err = b.raid(seg)
		default:
			err = status.Errorf(codes.Unimplemented, "no device-mapper target for %s", t)
		}
		if err != nil {
			return "", err
		}
		lines = append(lines, fmt.Sprintf("%d %d %s", start, length, target))
	}
	if len(lines) == 0 {
		return "", status.Errorf(codes.Internal, "%s has no segments", lv)
	}
	return strings.Join(lines, "\n"), nil
}

func (b tableBuilder) striped(seg *raid.Segment) (string, error) {
	devs := make([]string, 0, len(seg.Areas))
	for _, a := range seg.Areas {
		d, err := b.device(seg, a)
		if err != nil {
			return "", err
		}
		devs = append(devs, d)
	}
	if len(devs) == 1 {
		return "linear " + devs[0], nil
	}
	return fmt.Sprintf("striped %d %d %s", len(devs), seg.StripeSize, strings.Join(devs, " ")), nil
}

func (b tableBuilder) mirror(seg *raid.Segment) (string, error) {
	var log string
	if l := seg.LogLV(); l != nil {
		log = fmt.Sprintf("disk 2 %s %d", filepath.Join(b.mapperDir, l.DMName()), seg.RegionSize)
	} else {
		log = fmt.Sprintf("core 1 %d", seg.RegionSize)
	}
	devs := make([]string, 0, len(seg.Areas))
	for _, a := range seg.Areas {
		d, err := b.device(seg, a)
		if err != nil {
			return "", err
		}
		devs = append(devs, d)
	}
	return fmt.Sprintf("mirror %s %d %s", log, len(devs), strings.Join(devs, " ")), nil
}

func (b tableBuilder) raid(seg *raid.Segment) (string, error) {
	t := seg.Type
	params := []string{fmt.Sprint(seg.StripeSize)}
	if !t.IsAnyRaid0() {
		params = append(params, "region_size", fmt.Sprint(seg.RegionSize))
	}
	var delta int
	for s := range seg.Areas {
		img := seg.DataLV(uint32(s))
		if img == nil {
			continue
		}
		if img.Is(raid.Rebuild) {
			params = append(params, "rebuild", fmt.Sprint(s))
		}
		switch {
		case img.Is(raid.ReshapeDeltaPlus):
			delta++
		case img.Is(raid.ReshapeDeltaMinus):
			delta--
		}
	}
	if t.IsAnyRaid10() {
		params = append(params, "raid10_copies", fmt.Sprint(seg.DataCopies), "raid10_format", raid10Format(t))
	}
	if delta != 0 {
		params = append(params, "delta_disks", fmt.Sprint(delta))
	}
	if seg.DataOffset != 0 {
		params = append(params, "data_offset", fmt.Sprint(seg.DataOffset))
	}

	devs := make([]string, 0, 2*len(seg.Areas))
	for s, a := range seg.Areas {
		meta := "-"
		if s < len(seg.MetaAreas) {
			var err error
			if meta, err = b.raidDevice(seg, seg.MetaAreas[s]); err != nil {
				return "", err
			}
		}
		data, err := b.raidDevice(seg, a)
		if err != nil {
			return "", err
		}
		devs = append(devs, meta, data)
	}
	return fmt.Sprintf("raid %s %d %s %d %s", dmRaidType(t), len(params), strings.Join(params, " "), len(seg.Areas), strings.Join(devs, " ")), nil
}
