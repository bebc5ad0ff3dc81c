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
	"math"

	pmath "github.com/pkg/math"
	"k8s.io/klog"
)

// hasOneStripeZone reports whether every segment of lv has the same area
// count.
func hasOneStripeZone(lv *LogicalVolume) bool {
	n := lv.FirstSegment().AreaCount()
	for _, seg := range lv.Segments {
		if seg.AreaCount() != n {
			return false
		}
	}
	return true
}

// moveSegmentsToRaid0Images hands area s of every striped segment of lv to
// data image s. The segments of lv are dropped.
func moveSegmentsToRaid0Images(lv *LogicalVolume, datas []*LogicalVolume) {
	for s, dlv := range datas {
		var le uint32
		for _, from := range lv.Segments {
			dlv.appendSegment(&Segment{
				Type:       Striped,
				LE:         le,
				Len:        from.AreaLen,
				AreaLen:    from.AreaLen,
				StripeSize: from.StripeSize,
				Areas:      []Area{from.Areas[s]},
			})
			from.Areas[s] = unassigned
			le += from.AreaLen
		}
		dlv.LECount = le
	}
	lv.Segments = nil
}

// convertStripedToRaid0 puts a hidden linear image below every stripe of
// lv, optionally adding metadata images.
func (e *Engine) convertStripedToRaid0(ctx context.Context, lv *LogicalVolume, allocMeta, update bool) (*Segment, error) {
	seg := lv.FirstSegment()
	if !seg.Type.IsStriped() {
		return nil, internalErrorf("Cannot convert non-striped LV %s to raid0", lv)
	}
	if !hasOneStripeZone(lv) {
		return nil, unsupportedErrorf("Cannot convert striped LV %s with varying stripe count to raid0", lv)
	}
	n := seg.AreaCount()
	stripeSize := seg.StripeSize

	datas := make([]*LogicalVolume, 0, n)
	for s := uint32(0); s < n; s++ {
		d, err := e.newImageComponent(lv.vg, lv.Name.String(), RoleRImage, nil)
		if err != nil {
			return nil, wrapErrorf(err, "Failed to allocate empty image components for raid0 LV %s.", lv)
		}
		datas = append(datas, d)
	}
	moveSegmentsToRaid0Images(lv, datas)

	raid0 := &Segment{
		Type:       Raid0,
		Len:        lv.LECount,
		AreaLen:    datas[0].LECount,
		StripeSize: stripeSize,
		Areas:      make([]Area, n),
	}
	lv.appendSegment(raid0)
	addImageComponentList(raid0, datas, 0, 0)
	lv.Status |= Raid

	if allocMeta {
		if err := e.raid0AddOrRemoveMetadata(ctx, lv, false, nil); err != nil {
			return nil, err
		}
	}
	if update {
		if err := e.updateAndReload(ctx, lv); err != nil {
			return nil, err
		}
	}
	return raid0, nil
}

// smallestImageArea returns the shortest image segment starting at areaLE.
func smallestImageArea(seg *Segment, areaLE uint32) uint32 {
	r := uint32(math.MaxUint32)
	for s := range seg.Areas {
		if ds := seg.DataLV(uint32(s)).findSegment(areaLE); ds != nil {
			r = pmath.MinUint32(r, ds.Len-(areaLE-ds.LE))
		}
	}
	return r
}

// convertRaid0ToStriped maps the image extents of a raid0 lv back onto
// striped segments of lv. The emptied images are returned for elimination.
func (e *Engine) convertRaid0ToStriped(ctx context.Context, lv *LogicalVolume, update bool, removal []*LogicalVolume) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	if !seg.Type.IsAnyRaid0() {
		return nil, internalErrorf("Cannot convert non-raid0 LV %s to striped", lv)
	}
	n := seg.AreaCount()
	imageLen := seg.DataLV(0).LECount

	var segs []*Segment
	var areaLE, le uint32
	for areaLE < imageLen {
		areaLen := smallestImageArea(seg, areaLE)
		if areaLen == 0 || areaLen == math.MaxUint32 {
			return nil, internalErrorf("Failed to retrieve raid0 segments from %s.", lv)
		}
		areaLE += areaLen
		for s := uint32(0); s < n; s++ {
			if dlv := seg.DataLV(s); areaLE < dlv.LECount {
				if err := dlv.splitSegment(areaLE); err != nil {
					return nil, internalErrorf("splitting data lv segment")
				}
			}
		}
		segs = append(segs, &Segment{
			Type:       Striped,
			LE:         le,
			Len:        areaLen * n,
			AreaLen:    areaLen,
			StripeSize: seg.StripeSize,
			Areas:      make([]Area, n),
		})
		le += areaLen * n
	}

	areaLE = 0
	for _, to := range segs {
		for s := uint32(0); s < n; s++ {
			ds := seg.DataLV(s).findSegment(areaLE)
			to.Areas[s] = ds.Areas[0]
			ds.Areas[0] = unassigned
		}
		areaLE += to.AreaLen
	}

	if seg.MetaAreas != nil {
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return nil, err
		}
		removal = append(removal, metas...)
	}
	datas, err := extractList(seg, dataComponent, 0)
	if err != nil {
		return nil, err
	}
	for _, d := range datas {
		d.replaceWithError()
	}
	removal = append(removal, datas...)

	lv.setSegments(segs)
	lv.Status &^= Raid
	klog.V(4).Infof("Converted %s to %d striped segment(s)", lv, len(segs))

	if !update {
		return removal, nil
	}
	if err := e.updateAndReload(ctx, lv); err != nil {
		return nil, err
	}
	return nil, e.eliminateExtracted(ctx, lv.vg, removal)
}
