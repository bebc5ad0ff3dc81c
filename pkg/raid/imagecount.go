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

// reshapeChangeSize grows or shrinks lv by extents after a stripe count
// change from oldCount to newCount images.
func (e *Engine) reshapeChangeSize(lv *LogicalVolume, extents, oldCount, newCount uint32) {
	seg := lv.FirstSegment()
	if newCount > oldCount {
		lv.LECount += extents
		seg.Len += extents
		seg.AreaLen += extents
	} else {
		lv.LECount -= extents
		seg.Len -= extents
		seg.AreaLen -= extents
	}
	var perDev uint32
	if img := seg.DataLV(0); img != nil {
		perDev = img.FirstSegment().ReshapeLen
	}
	seg.ReshapeLen = perDev * (newCount - seg.Type.ParityDevs)

	if newCount > oldCount && oldCount == 2 && seg.StripeSize == 0 {
		seg.StripeSize = e.cfg.StripeSize
	} else if newCount == 2 {
		seg.StripeSize = 0
	}
}

// changeImageCount adds or removes image pairs of lv. Removed pairs are
// returned for elimination after the reload.
func (e *Engine) changeImageCount(ctx context.Context, lv *LogicalVolume, newType *SegmentType, newCount uint32, pvs []string) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	reshapeDisks := (seg.Type.IsRaid10Near() || seg.Type.IsRaid10Offset() || seg.Type.IsStripedRaid()) &&
		!seg.Type.IsAnyRaid0() && isSameLevel(seg.Type, newType)
	oldCount := seg.AreaCount()

	if oldCount == newCount {
		klog.Warningf("%s already has image count of %d.", lv, newCount)
		return nil, nil
	}
	if err := e.checkMaxRaidDevices(newCount); err != nil {
		return nil, err
	}

	if oldCount < newCount {
		klog.V(4).Infof("Allocating additional data and metadata LV pair for %s", lv)
		metas, datas, err := e.allocImageComponents(lv, pvs, newCount-oldCount, true, true)
		if err != nil {
			return nil, wrapErrorf(err, "Failed to allocate additional data and metadata LV pair for %s", lv)
		}
		klog.V(4).Infof("Clearing newly allocated metadata LVs of %s", lv)
		if err := e.clearLVs(ctx, metas); err != nil {
			return nil, wrapErrorf(err, "Failed to clear newly allocated metadata LVs of %s", lv)
		}
		klog.V(4).Infof("Realocating areas arrays of %s", lv)
		seg.reallocAreas(newCount)
		addImageComponentList(seg, metas, 0, oldCount)
		addImageComponentList(seg, datas, Rebuild, oldCount)

		if reshapeDisks {
			e.reshapeChangeSize(lv, (newCount-oldCount)*(lv.LECount/(oldCount-seg.Type.ParityDevs)), oldCount, newCount)
			klog.V(4).Infof("Setting delta disk flag on new data LVs of %s", lv)
			for s := oldCount; s < newCount; s++ {
				img := seg.DataLV(s)
				img.Status &^= Rebuild
				img.Status |= ReshapeDeltaPlus
			}
		}
		return nil, nil
	}

	klog.V(4).Infof("Extracting data and metadata LVs from %s", lv)
	metas, datas, err := e.extractImages(ctx, lv, newCount, pvs, true)
	if err != nil {
		return nil, wrapErrorf(err, "Failed to extract data and metadata LVs from %s", lv)
	}
	if reshapeDisks {
		e.reshapeChangeSize(lv, (oldCount-newCount)*(lv.LECount/(oldCount-seg.Type.ParityDevs)), oldCount, newCount)
	}
	return append(metas, datas...), nil
}

// ChangeImageCount sets the number of images of a raid1 or reshapable lv,
// allocating from pvs.
func (e *Engine) ChangeImageCount(ctx context.Context, lv *LogicalVolume, count uint32, pvs []string) error {
	e.begin(lv.vg)
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid() {
		return unsupportedErrorf("Unable to change the image count of non-raid LV %s", lv)
	}
	if count == 0 {
		return usageErrorf("Unable to set the image count of %s to 0", lv)
	}
	if seg.Type.IsRaid1() && count == 1 && seg.AreaCount() > 1 {
		// A single leg raid1 is a linear volume.
		_, err := e.Convert(ctx, lv, ConvertRequest{Type: Striped, ImageCount: 1, PVs: pvs})
		return err
	}
	if seg.AreaCount() == count {
		klog.Warningf("%s already has image count of %d.", lv, count)
		return nil
	}
	if !e.inSync(ctx, lv) {
		return preconditionErrorf("Unable to convert %s while it is not in-sync", lv)
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	removal, err := e.changeImageCount(ctx, lv, seg.Type, count, pvs)
	if err != nil {
		return err
	}
	if seg.Type.IsRaid1() {
		seg.DataCopies = count
	}
	return e.updateAndReloadEliminate(ctx, lv, removal)
}
