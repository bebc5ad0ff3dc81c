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

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog"
)

// Split detaches images of the raid1 lv until count remain. A single image
// becomes the linear volume splitName, more images a new raid1 of that
// name.
func (e *Engine) Split(ctx context.Context, lv *LogicalVolume, splitName string, count uint32, pvs []string) error {
	vg := lv.vg
	e.begin(vg)
	seg := lv.FirstSegment()
	if count == 0 {
		return usageErrorf("Unable to split all images from %s", lv)
	}
	if !seg.Type.IsRaid1() {
		return unsupportedErrorf("Unable to split logical volume of segment type, %s", segtypeName(seg.Type, seg.AreaCount()))
	}
	if count >= seg.AreaCount() {
		return usageErrorf("Unable to split %d images from %s with %d images", seg.AreaCount()-count, lv, seg.AreaCount())
	}
	if vg.FindLV(splitName) != nil {
		return status.Errorf(codes.AlreadyExists, "Logical Volume \"%s\" already exists in %s", splitName, vg.Name)
	}
	if !validName(splitName) {
		return usageErrorf("New logical volume name %q is not valid.", splitName)
	}
	if !e.inSync(ctx, lv) {
		return preconditionErrorf("Unable to split %s while it is not in-sync.", lv)
	}

	// Only the tracking image may leave while changes are tracked.
	if tracking := trackingImage(lv); tracking != nil {
		if !tracking.onPVs(allPVs(vg, pvs)) {
			return preconditionErrorf("Unable to split additional image from %s while tracking changes for %s", lv, tracking)
		}
		pvs = tracking.pvNames()
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	if err := e.archive(vg); err != nil {
		return err
	}

	splitCount := seg.AreaCount() - count
	metas, datas, err := e.extractImages(ctx, lv, count, pvs, true)
	if err != nil {
		return wrapErrorf(err, "Failed to extract images from %s", lv)
	}

	var removal []*LogicalVolume
	var split *LogicalVolume
	if splitCount > 1 {
		klog.Warningf("Splitting off %d images into new raid1 LV %s/%s", splitCount, vg.Name, splitName)
		flags := Raid | Read | Write
		if split, err = vg.CreateLV(PlainName(splitName), flags|Visible); err != nil {
			return wrapErrorf(err, "Failed to create new raid1 LV %s/%s.", vg.Name, splitName)
		}
		split.appendSegment(&Segment{
			Type:       seg.Type,
			Len:        seg.Len,
			AreaLen:    seg.AreaLen,
			StripeSize: seg.StripeSize,
			RegionSize: seg.RegionSize,
			DataCopies: splitCount,
			Areas:      make([]Area, splitCount),
		})
		split.LECount = seg.Len
		if err := setAreasFromDataLVs(split, datas, flags|RaidImage); err != nil {
			return err
		}
		if err := setAreasFromDataLVs(split, metas, flags|RaidMeta); err != nil {
			return err
		}
	} else {
		removal = metas
		if err := rename(datas[0], PlainName(splitName)); err != nil {
			return err
		}
		split = datas[0]
	}

	if count == 1 {
		if removal, err = convertRaidToLinear(lv, removal); err != nil {
			return wrapErrorf(err, "Failed to remove RAID layer after linear conversion")
		}
	} else {
		seg.DataCopies = count
	}

	if err := e.writeSuspendCommit(ctx, lv); err != nil {
		return err
	}
	for _, sub := range append(append([]*LogicalVolume{}, datas...), metas...) {
		if err := e.act.ActivateExclusive(ctx, sub); err != nil {
			return transactionErrorf(err, "Failed to activate %s", sub)
		}
	}
	if err := e.act.Resume(ctx, lv); err != nil {
		return transactionErrorf(err, "Failed to resume %s after committing changes", lv)
	}
	e.backup(vg)
	if err := e.eliminateExtracted(ctx, vg, removal); err != nil {
		return err
	}
	if err := e.act.ActivateExclusive(ctx, split); err != nil {
		return transactionErrorf(err, "Failed to activate %s", split)
	}
	klog.V(2).Infof("Split %s from %s", split, lv)
	return nil
}

// SplitAndTrack exposes one image of a raid1 lv read-only while the array
// keeps tracking the changes for a later Merge.
func (e *Engine) SplitAndTrack(ctx context.Context, lv *LogicalVolume, pvs []string) error {
	e.begin(lv.vg)
	seg := lv.FirstSegment()
	if !seg.Type.IsMirrored() {
		return unsupportedErrorf("Unable to split images from non-mirrored RAID")
	}
	if !e.inSync(ctx, lv) {
		return preconditionErrorf("Unable to split image from %s while not in-sync", lv)
	}
	if trackingImage(lv) != nil {
		return preconditionErrorf("Cannot track more than one split image at a time")
	}
	if seg.AreaCount() < 3 {
		klog.Errorf("Run \"lvconvert -m2 %s\" to have 3 legs and redo", lv)
		return preconditionErrorf("Tracking an image in 2-way raid1 LV %s would cause loosing redundancy!", lv)
	}

	candidates := allPVs(lv.vg, pvs)
	var img *LogicalVolume
	for s := int(seg.AreaCount()) - 1; s >= 0; s-- {
		if d := seg.DataLV(uint32(s)); d != nil && d.onPVs(candidates) {
			img = d
			break
		}
	}
	if img == nil {
		return exhaustedErrorf("Unable to find image to satisfy request")
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	img.setVisible(true)
	img.Status &^= Write

	if err := e.updateAndReload(ctx, lv); err != nil {
		return err
	}
	klog.Infof("%s split from %s for read-only purposes.", img, lv)
	if err := e.activateSubPreservingExclusive(ctx, lv, img); err != nil {
		return err
	}
	klog.Infof("Use 'lvconvert --merge %s' to merge back into %s", img, lv)
	return nil
}

// Merge returns the tracking image img to its raid1 array.
func (e *Engine) Merge(ctx context.Context, img *LogicalVolume) error {
	vg := img.vg
	e.begin(vg)
	if img.Name.Role != RoleRImage {
		return usageErrorf("Unable to merge non-mirror image %s.", img)
	}
	lv := vg.FindLV(img.Name.Base)
	if lv == nil {
		return status.Errorf(codes.NotFound, "Unable to find containing RAID array for %s.", img)
	}
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid1() {
		return unsupportedErrorf("%s is no RAID1 array - refusing to merge.", lv)
	}
	tracking := trackingImage(lv)
	if tracking == nil {
		return preconditionErrorf("%s is not a tracking LV.", lv)
	}
	if tracking != img {
		return usageErrorf("%s is not the tracking LV of %s but %s is.", img, lv, tracking)
	}
	if seg.Len != img.LECount {
		return internalErrorf("The image LV %s of %s has different size!", img, lv)
	}
	if img.Is(Write) {
		return preconditionErrorf("%s is not read-only - refusing to merge.", img)
	}

	var meta *LogicalVolume
	for s := range seg.Areas {
		if seg.DataLV(uint32(s)) == img {
			meta = seg.MetaLV(uint32(s))
			break
		}
	}
	if meta == nil {
		return internalErrorf("Failed to find meta for %s in RAID array %s.", img, lv)
	}
	if err := e.act.Deactivate(ctx, meta); err != nil {
		return transactionErrorf(err, "Failed to deactivate %s before merging.", meta)
	}
	if err := e.act.Deactivate(ctx, img); err != nil {
		return transactionErrorf(err, "Failed to deactivate %s before merging.", img)
	}

	img.Status |= lv.Status&Write | RaidImage
	img.setVisible(false)
	if err := e.updateAndReload(ctx, lv); err != nil {
		return err
	}
	klog.Infof("%s successfully merged back into %s", img, lv)
	return nil
}
