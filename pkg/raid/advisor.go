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
	"context"
	"fmt"

	"k8s.io/klog"
)

func failures(n uint32) string {
	if n == 0 || n > 1 {
		return "s"
	}
	return ""
}

// confirmConversion reports the resilience change of converting lv and asks
// the user to confirm type, stripe and stripe size changes unless yes is
// set. On confirmation the volume group is archived.
func (e *Engine) confirmConversion(ctx context.Context, lv *LogicalVolume, newType *SegmentType, yes bool, imageCount, stripes, stripeSize uint32) error {
	seg := lv.FirstSegment()

	cur := seg.Type
	if IsDuplicating(lv) {
		if seg.DataLV(0).FirstSegment().Type == newType {
			cur = seg.DataLV(1).FirstSegment().Type
		} else {
			cur = seg.DataLV(0).FirstSegment().Type
		}
	}

	typeChange := newType != cur
	stripesChange := stripes != 0 && stripes != seg.DataImageCount()
	stripeSizeChange := stripeSize != 0 && stripeSize != seg.StripeSize
	if imageCount == 0 {
		imageCount = ImageCount(lv)
	}

	curRedundancy := Redundancy(cur, seg.AreaCount())
	newRedundancy := Redundancy(newType, imageCount)

	fromTo := ""
	if typeChange {
		fromTo = fmt.Sprintf(" from %s to %s", segtypeName(cur, seg.AreaCount()), segtypeName(newType, imageCount))
	}
	switch {
	case newRedundancy == curRedundancy:
		if stripesChange {
			klog.Infof("Converting active %s%s will keep resilience of %d disk failure%s",
				lv, fromTo, curRedundancy, failures(curRedundancy))
		}
	case newRedundancy > curRedundancy:
		klog.Infof("Converting active %s%s will enhance resilience from %d disk failure%s to %d",
			lv, fromTo, curRedundancy, failures(curRedundancy), newRedundancy)
	case newRedundancy > 0:
		klog.Warningf("WARNING: Converting active %s%s will degrade resilience from %d disk failures to just %d",
			lv, fromTo, curRedundancy, newRedundancy)
	default:
		plural := ""
		if curRedundancy > 1 {
			plural = "s"
		}
		klog.Warningf("WARNING: Converting active %s from %s to %s will degrade all resilience to %d disk failure%s",
			lv, segtypeName(cur, seg.AreaCount()), segtypeName(newType, imageCount), curRedundancy, plural)
	}

	// A linear or single image raid0 volume given only an image count
	// becomes raid1.
	shown := newType
	if cur == newType && (lv.IsLinear() || (seg.Type.IsAnyRaid0() && seg.AreaCount() == 1)) && imageCount > 1 {
		shown = Raid1
	}

	if !yes {
		if typeChange && !e.ask("Do you really want to convert %s with type %s to %s? [y/n]: ",
			lv, segtypeName(cur, seg.AreaCount()), segtypeName(shown, imageCount)) {
			return abortedErrorf("Logical volume %s NOT converted", lv)
		}
		if stripesChange && !e.ask("Do you really want to convert %s from %d stripes to %d stripes? [y/n]: ",
			lv, seg.DataImageCount(), stripes) {
			return abortedErrorf("Logical volume %s NOT converted", lv)
		}
		if stripeSizeChange && !e.ask("Do you really want to convert %s from stripesize %d to stripesize %d? [y/n]: ",
			lv, seg.StripeSize, stripeSize) {
			return abortedErrorf("Logical volume %s NOT converted", lv)
		}
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	return e.archive(lv.vg)
}

func (e *Engine) ask(format string, args ...interface{}) bool {
	if e.prompt == nil {
		return false
	}
	return e.prompt.Confirm(fmt.Sprintf(format, args...))
}

type possibleTypes struct {
	current  SegmentFlag
	possible SegmentFlag
	// multi restricts the row to segments with more than one area.
	multi bool
	// single restricts the row to segments with one area.
	single bool
}

var conversionRows = []possibleTypes{
	{current: SegStriped, single: true,
		possible: SegRaid1 | SegRaid10Near | SegRaid4 | SegRaid5LS | SegRaid5LA | SegRaid5RS | SegRaid5RA | SegRaid5N},
	{current: SegStriped, multi: true,
		possible: SegRaid0 | SegRaid0Meta | SegRaid01 | SegRaid10Near | SegRaid4 | SegRaid5N | SegRaid6N6},
	{current: SegAnyRaid0, single: true,
		possible: SegRaid1 | SegRaid10Near | SegRaid4 | SegRaid5LS | SegRaid5LA | SegRaid5RS | SegRaid5RA | SegRaid5N},
	{current: SegAnyRaid0, multi: true,
		possible: SegStriped | SegRaid10Near | SegRaid4 | SegRaid5N | SegRaid6N6},
	{current: SegRaid1,
		possible: SegRaid10Near | SegRaid4 | SegRaid5LS | SegRaid5LA | SegRaid5RS | SegRaid5RA | SegRaid5N},
	{current: SegRaid4,
		possible: SegStriped | SegRaid0 | SegRaid0Meta | SegRaid5N | SegRaid6N6},
	{current: SegRaid5LS,
		possible: SegRaid5N | SegRaid5LA | SegRaid5RS | SegRaid5RA | SegRaid6LS6},
	{current: SegRaid5LA,
		possible: SegRaid5LS | SegRaid5N | SegRaid5RS | SegRaid5RA | SegRaid6LA6},
	{current: SegRaid5RS,
		possible: SegRaid5LS | SegRaid5N | SegRaid5LA | SegRaid5RA | SegRaid6RS6},
	{current: SegRaid5RA,
		possible: SegRaid5LS | SegRaid5N | SegRaid5RS | SegRaid5LA | SegRaid6RA6},
	{current: SegRaid5N,
		possible: SegStriped | SegRaid0 | SegRaid0Meta | SegRaid4 | SegRaid5LA | SegRaid5LS | SegRaid5RS | SegRaid5RA | SegRaid6N6},
	{current: SegRaid6NC | SegRaid6NR | SegRaid6ZR,
		possible: SegRaid6NC | SegRaid6NR | SegRaid6ZR | SegRaid6N6},
	{current: SegRaid6LS6,
		possible: SegRaid6LA6 | SegRaid6RS6 | SegRaid6RA6 | SegRaid6NC | SegRaid6NR | SegRaid6ZR | SegRaid6N6 | SegRaid5LS},
	{current: SegRaid6RS6,
		possible: SegRaid6LS6 | SegRaid6LA6 | SegRaid6RA6 | SegRaid6NC | SegRaid6NR | SegRaid6ZR | SegRaid6N6 | SegRaid5RS},
	{current: SegRaid6LA6,
		possible: SegRaid6LS6 | SegRaid6RS6 | SegRaid6RA6 | SegRaid6NC | SegRaid6NR | SegRaid6ZR | SegRaid6N6 | SegRaid5LA},
	{current: SegRaid6RA6,
		possible: SegRaid6LS6 | SegRaid6LA6 | SegRaid6RS6 | SegRaid6NC | SegRaid6NR | SegRaid6ZR | SegRaid6N6 | SegRaid5RA},
	{current: SegRaid6N6,
		possible: SegRaid6LS6 | SegRaid6LA6 | SegRaid6RS6 | SegRaid6RA6 | SegRaid6NR | SegRaid6NC | SegRaid6ZR |
			SegRaid5N | SegRaid4 | SegRaid0 | SegRaid0Meta | SegStriped},
	{current: SegAnyRaid10,
		possible: SegStriped | SegRaid0 | SegRaid0Meta},
}

// PossibleConversions lists the segment types lv converts to without
// duplication, in segment type catalogue order.
func PossibleConversions(lv *LogicalVolume) []*SegmentType {
	seg := lv.FirstSegment()
	if seg == nil {
		return nil
	}
	var possible SegmentFlag
	for _, row := range conversionRows {
		if !seg.Type.has(row.current) {
			continue
		}
		if row.single && seg.AreaCount() > 1 || row.multi && seg.AreaCount() == 1 {
			continue
		}
		possible = row.possible
		break
	}
	var out []*SegmentType
	for _, t := range segmentTypes {
		if t.Flags&^(SegRaid|SegAreasMirrored)&possible != 0 {
			out = append(out, t)
		}
	}
	return out
}

// logPossibleConversions tells the user where lv may go from here.
func logPossibleConversions(lv *LogicalVolume) {
	types := PossibleConversions(lv)
	if len(types) == 0 {
		return
	}
	seg := lv.FirstSegment()
	if seg.Type.IsRaid1() && seg.AreaCount() != 2 {
		klog.Warningf("Conversions on raid1 LV %s only possible after \"lvconvert -m1 %s\"", lv, lv)
	}
	alias := ""
	if a := displayAlias(seg.Type); a != "" {
		alias = fmt.Sprintf(" (same as %s)", a)
	}
	klog.Warningf("Converting %s from %s%s without \"--duplicate\" is possible to:",
		lv, segtypeName(seg.Type, seg.AreaCount()), alias)
	for _, t := range types {
		klog.Warningf("%s", t.Name)
	}
}
