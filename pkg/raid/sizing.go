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
	"math"

	pmath "github.com/pkg/math"
	"k8s.io/klog"
)

const superblockBytes = 2 * 4096

func divUp(n, d uint64) uint64 {
	return (n + d - 1) / d
}

// RmetaExtents returns the size of the metadata image of a data image of
// rimageExtents extents: the raid and bitmap superblocks followed by one
// bit per region.
func RmetaExtents(rimageExtents, regionSize, extentSize uint32) uint32 {
	if regionSize == 0 {
		regionSize = DefaultConfig().RegionSize
	}
	regions := uint64(rimageExtents) * uint64(extentSize) / uint64(regionSize)
	bytes := superblockBytes + divUp(regions, 8)
	sectors := divUp(bytes, 512)
	return uint32(divUp(sectors, uint64(extentSize)))
}

// RmetaExtentsDelta returns the metadata extents to add or drop when a data
// image changes from cur to next extents.
func RmetaExtentsDelta(cur, next, regionSize, extentSize uint32) uint32 {
	metaCur := RmetaExtents(cur, regionSize, extentSize)
	metaNext := RmetaExtents(next, regionSize, extentSize)
	switch {
	case cur == 0:
		return metaNext
	case next == 0:
		return metaCur
	case metaCur == metaNext:
		return 0
	case metaNext > metaCur:
		return metaNext - metaCur
	}
	return metaCur - metaNext
}

// RimageExtents returns the extents of each image of a layout spreading
// extents with dataCopies over stripes.
func RimageExtents(extents, stripes, dataCopies uint32) uint32 {
	r := uint64(extents) * uint64(pmath.MaxUint32(dataCopies, 1))
	r = divUp(r, uint64(pmath.MaxUint32(stripes, 1)))
	if r > math.MaxUint32 {
		return 0
	}
	return uint32(r)
}

// Redundancy returns the number of image failures a layout survives.
func Redundancy(t *SegmentType, images uint32) uint32 {
	switch {
	case t.IsRaid10Near():
		return images / 2
	case t.IsAnyRaid10():
		// Holds only with one failure per stripe.
		return 1
	case t.IsRaid1():
		if images == 0 {
			return 0
		}
		return images - 1
	case t.IsParityRaid():
		return t.ParityDevs
	}
	return 0
}

// checkAndInitRegionSize applies the default region size and the kernel
// limit on the number of bitmap regions.
func (e *Engine) checkAndInitRegionSize(lv *LogicalVolume) {
	seg := lv.FirstSegment()
	if seg.RegionSize == 0 {
		seg.RegionSize = e.cfg.RegionSize
	}
	e.ensureMinRegionSize(lv)
}

func (e *Engine) ensureMinRegionSize(lv *LogicalVolume) {
	seg := lv.FirstSegment()
	size := uint64(lv.LECount) * uint64(lv.vg.ExtentSize)
	minRegion := size / e.cfg.MaxRegions
	region := uint64(seg.RegionSize)
	if region == 0 {
		region = uint64(e.cfg.RegionSize)
	}
	for region < minRegion {
		region *= 2
	}
	if uint64(seg.RegionSize) != region {
		klog.V(2).Infof("Setting region_size to %d for %s", region, lv)
		seg.RegionSize = uint32(region)
	}
}

// checkMaxDevices enforces the kernel image count ceilings.
func (e *Engine) checkMaxRaidDevices(count uint32) error {
	if count > e.cfg.MaxRaidDevices {
		return usageErrorf("Unable to handle arrays with more than %d devices", e.cfg.MaxRaidDevices)
	}
	return nil
}

func (e *Engine) checkMaxMirrorDevices(count uint32) error {
	if count > e.cfg.MaxMirrors {
		return usageErrorf("Unable to handle data_copies with more than %d devices", e.cfg.MaxMirrors)
	}
	return nil
}

// reshapeExtentsPerDevice returns the out-of-place reshape space per image.
func (e *Engine) reshapeExtentsPerDevice(vg *VolumeGroup) uint32 {
	return pmath.MaxUint32(e.cfg.MinReshapeSpace/vg.ExtentSize, 1)
}
