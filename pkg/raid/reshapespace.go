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

	"k8s.io/klog"
)

// ReshapeSpace selects where out-of-place reshape space must sit.
type ReshapeSpace int

const (
	// ReshapeSpaceBegin serves forward reshapes adding disks.
	ReshapeSpaceBegin ReshapeSpace = iota
	// ReshapeSpaceEnd serves backward reshapes removing disks.
	ReshapeSpaceEnd
	// ReshapeSpaceAnywhere serves layout changes keeping the disk count.
	ReshapeSpaceAnywhere
)

func (w ReshapeSpace) String() string {
	switch w {
	case ReshapeSpaceBegin:
		return "begin"
	case ReshapeSpaceEnd:
		return "end"
	case ReshapeSpaceAnywhere:
		return "anywhere"
	}
	return "unknown"
}

// reshapeLEsPerDev returns the reshape space of each data image.
func reshapeLEsPerDev(seg *Segment) uint32 {
	data := seg.DataImageCount()
	if data == 0 {
		return 0
	}
	return seg.ReshapeLen / data
}

// relocateReshapeSpace moves the reshape window of every data image to
// the other end of its segment list. No data is copied.
func relocateReshapeSpace(lv *LogicalVolume, toEnd bool) error {
	seg := lv.FirstSegment()
	perDLV := reshapeLEsPerDev(seg)
	if seg.ReshapeLen == 0 || perDLV == 0 {
		return internalErrorf("No reshape space to relocate")
	}
	perDev := seg.DataLV(0).FirstSegment().ReshapeLen

	for s := range seg.Areas {
		dlv := seg.DataLV(uint32(s))
		var le, end uint32
		if toEnd {
			le, end = 0, perDLV
		} else {
			le, end = dlv.LECount-perDLV, dlv.LECount
		}
		split := le
		if toEnd {
			split = end
		}
		if err := dlv.splitSegment(split); err != nil {
			return err
		}

		var window, rest []*Segment
		for _, ds := range dlv.Segments {
			if ds.LE >= le && ds.LE < end {
				window = append(window, ds)
			} else {
				rest = append(rest, ds)
			}
		}
		if toEnd {
			dlv.setSegments(append(rest, window...))
		} else {
			dlv.setSegments(append(window, rest...))
		}

		var next uint32
		for _, ds := range dlv.Segments {
			if next == 0 {
				ds.ReshapeLen = perDev
			} else {
				ds.ReshapeLen = 0
			}
			ds.LE = next
			next += ds.Len
		}
	}
	return nil
}

// extendImages grows every image of lv by extents, preferring the devices
// each image already maps.
func (e *Engine) extendImages(lv *LogicalVolume, extents uint32, pvs []string) error {
	seg := lv.FirstSegment()
	for s := range seg.Areas {
		img := seg.DataLV(uint32(s))
		a, err := e.alloc.Allocate(lv.vg, AllocationRequest{
			Areas:       1,
			AreaExtents: extents,
			PVs:         img.pvNames(),
		})
		if err != nil {
			var avoid []string
			for o := range seg.Areas {
				if o != s {
					avoid = append(avoid, seg.DataLV(uint32(o)).pvNames()...)
				}
			}
			a, err = e.alloc.Allocate(lv.vg, AllocationRequest{
				Areas:       1,
				AreaExtents: extents,
				PVs:         pvs,
				Avoid:       avoid,
			})
			if err != nil {
				return err
			}
		}
		img.extend(a.Data[0])
	}
	return nil
}

// allocReshapeSpace ensures reshape space exists on the data images of lv
// and moves it where the reshape direction needs it.
func (e *Engine) allocReshapeSpace(ctx context.Context, lv *LogicalVolume, where ReshapeSpace, pvs []string) error {
	seg := lv.FirstSegment()
	out := e.reshapeExtentsPerDevice(lv.vg)

	dataOffset, _, err := e.status.DataOffsetAndSize(ctx, lv)
	if err != nil {
		return transactionErrorf(err, "Can't get data offset and dev size for %s from kernel", lv)
	}

	if seg.ReshapeLen == 0 {
		data := seg.DataImageCount()
		reshapeLen := out * data
		if err := e.extendImages(lv, out, pvs); err != nil {
			return wrapErrorf(err, "Failed to allocate out-of-place reshape space for %s.", lv)
		}
		lv.LECount += reshapeLen
		seg.Len += reshapeLen
		seg.AreaLen += out
		seg.ReshapeLen = reshapeLen
		for s := range seg.Areas {
			seg.DataLV(uint32(s)).FirstSegment().ReshapeLen = out
		}
	}

	seg.DataOffset = 0
	klog.V(4).Infof("Reshape space of %s requested at %s, kernel data offset %d", lv, where, dataOffset)
	switch where {
	case ReshapeSpaceBegin:
		if dataOffset == 0 {
			if err := relocateReshapeSpace(lv, false); err != nil {
				return err
			}
		}
	case ReshapeSpaceEnd:
		if dataOffset != 0 {
			if err := relocateReshapeSpace(lv, true); err != nil {
				return err
			}
		}
	case ReshapeSpaceAnywhere:
	default:
		return internalErrorf("Bogus reshape space allocation request")
	}

	seg.DataOffset = uint64(out) * uint64(lv.vg.ExtentSize)
	for s := range seg.Areas {
		seg.DataLV(uint32(s)).mergeSegments()
	}
	return nil
}

// freeReshapeSpace drops the reshape space of lv, moving it to the end
// first.
func (e *Engine) freeReshapeSpace(ctx context.Context, lv *LogicalVolume) error {
	seg := lv.FirstSegment()
	if seg.ReshapeLen == 0 {
		return nil
	}
	if err := e.allocReshapeSpace(ctx, lv, ReshapeSpaceEnd, nil); err != nil {
		return err
	}
	perDev := reshapeLEsPerDev(seg)
	for s := range seg.Areas {
		img := seg.DataLV(uint32(s))
		img.FirstSegment().ReshapeLen = 0
		if err := img.reduce(perDev); err != nil {
			return err
		}
	}
	lv.LECount -= seg.ReshapeLen
	seg.Len -= seg.ReshapeLen
	seg.AreaLen -= perDev
	seg.ReshapeLen = 0
	seg.DataOffset = 0
	return nil
}
