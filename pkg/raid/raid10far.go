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
	"k8s.io/klog"
)

func imagesDivisibleByDataCopies(seg *Segment) error {
	first := seg.DataLV(0)
	if first == nil {
		return internalErrorf("raid10_far segment of LV %s missing image LV!", seg.lv)
	}
	for s := uint32(0); s < seg.AreaCount(); s++ {
		img := seg.DataLV(s)
		switch {
		case img == nil:
			return internalErrorf("raid10_far segment of LV %s missing image LV!", seg.lv)
		case img.LECount != first.LECount:
			return internalErrorf("raid10_far image length of LV %s differ in size!", seg.lv)
		case img.LECount%seg.DataCopies != 0:
			return internalErrorf("raid10_far image length of LV %s not divisible by #data_copies!", seg.lv)
		}
	}
	return nil
}

// splitDataImages puts a segment boundary every step extents in [start, end)
// of each image of lv.
func splitDataImages(lv *LogicalVolume, start, end, step uint32) error {
	if step == 0 {
		return internalErrorf("Zero split length for %s", lv)
	}
	seg := lv.FirstSegment()
	for s := uint32(0); s < seg.AreaCount(); s++ {
		img := seg.DataLV(s)
		for le := start; le < end; le += step {
			if err := img.splitSegment(le); err != nil {
				return err
			}
		}
	}
	return nil
}

// segmentsIn returns the segments of lv in [start, end). Boundaries must
// already exist at both ends.
func segmentsIn(lv *LogicalVolume, start, end uint32) []*Segment {
	var out []*Segment
	for _, seg := range lv.Segments {
		if seg.LE >= start && seg.LE < end {
			out = append(out, seg)
		}
	}
	return out
}

// ReorderRaid10FarSegments rearranges the image segments of a raid10_far lv
// that grew or is about to shrink by extents. Each image holds one zone per
// data copy, so added extents have to move into every zone and removed
// ones out of every zone.
func (e *Engine) ReorderRaid10FarSegments(lv *LogicalVolume, extents uint32, extend bool) error {
	if extents == 0 {
		return internalErrorf("Called on LV %s for 0 extents!", lv)
	}
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid10Far() {
		return internalErrorf("Called on non-raid10_far LV %s with type %s!", lv, seg.Type)
	}
	if err := imagesDivisibleByDataCopies(seg); err != nil {
		return err
	}
	dc := seg.DataCopies
	imageLen := seg.DataLV(0).LECount

	if extend {
		if extents == lv.LECount {
			return nil
		}
		// P1 P2 .. Pn N1 N2 .. Nn becomes P1 N1 P2 N2 .. Pn Nn.
		prev := RimageExtents(lv.LECount-extents, seg.AreaCount(), dc)
		prevSplit := prev / dc
		newSplit := (imageLen - prev) / dc
		if err := splitDataImages(lv, prevSplit, prev, prevSplit); err != nil {
			return err
		}
		if err := splitDataImages(lv, prev, imageLen, newSplit); err != nil {
			return err
		}
		for s := uint32(0); s < seg.AreaCount(); s++ {
			img := seg.DataLV(s)
			var segs []*Segment
			for z := uint32(0); z < dc; z++ {
				segs = append(segs, segmentsIn(img, z*prevSplit, (z+1)*prevSplit)...)
				segs = append(segs, segmentsIn(img, prev+z*newSplit, prev+(z+1)*newSplit)...)
			}
			img.setSegments(segs)
		}
	} else {
		if extents >= seg.Len {
			return nil
		}
		// Move the last reduction extents of every zone to the end of the
		// image, where the shrink truncates them.
		reduction := extents / seg.AreaCount()
		split := imageLen / dc
		if reduction > split {
			return internalErrorf("Reduction by %d extents exceeds the zones of %s", extents, lv)
		}
		if reduction == 0 {
			return nil
		}
		if err := splitDataImages(lv, split-reduction, imageLen, split); err != nil {
			return err
		}
		if err := splitDataImages(lv, split, imageLen, split); err != nil {
			return err
		}
		for s := uint32(0); s < seg.AreaCount(); s++ {
			img := seg.DataLV(s)
			var keep, tail []*Segment
			for z := uint32(0); z < dc; z++ {
				keep = append(keep, segmentsIn(img, z*split, (z+1)*split-reduction)...)
				tail = append(tail, segmentsIn(img, (z+1)*split-reduction, (z+1)*split)...)
			}
			img.setSegments(append(keep, tail...))
		}
	}

	setImageLVsStartLEs(lv)
	klog.V(4).Infof("Reordered raid10_far image segments of %s", lv)
	return nil
}
