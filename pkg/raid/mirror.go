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

type mirrorConversion int

const (
	mirrorToRaid1 mirrorConversion = iota
	raid1ToMirror
)

// mirrorLogExtents is the size of a disk based mirror log.
const mirrorLogExtents = 1

// adjustDataLVs flips the role and status of every data image between
// mirror and raid1.
func adjustDataLVs(lv *LogicalVolume, dir mirrorConversion) error {
	seg := lv.FirstSegment()
	for s := range seg.Areas {
		dlv := seg.DataLV(uint32(s))
		if dlv == nil || (dlv.Name.Role != RoleMImage && dlv.Name.Role != RoleRImage) {
			return internalErrorf("name lags image part")
		}
		n := dlv.Name
		switch dir {
		case mirrorToRaid1:
			n.Role = RoleRImage
			dlv.Status &^= MirrorImage
			dlv.Status |= RaidImage
		case raid1ToMirror:
			n.Role = RoleMImage
			dlv.Status &^= RaidImage
			dlv.Status |= MirrorImage
		}
		if err := rename(dlv, n); err != nil {
			return err
		}
		klog.V(4).Infof("data lv renamed to %s", dlv.Name)
	}
	return nil
}

// removeMirrorLog detaches the log of a mirror segment for elimination.
func removeMirrorLog(lv *LogicalVolume, removal []*LogicalVolume) []*LogicalVolume {
	seg := lv.FirstSegment()
	log := seg.LogLV()
	if log == nil {
		return removal
	}
	klog.V(4).Infof("Removing mirror log, %s", log.Name)
	seg.Log = NoLV
	log.Parent = NoLV
	log.Status &^= MirrorLog
	log.setVisible(true)
	return append(removal, log)
}

// addMirrorLog allocates a disk log for a mirror segment away from its
// legs.
func (e *Engine) addMirrorLog(ctx context.Context, lv *LogicalVolume, pvs []string) error {
	seg := lv.FirstSegment()
	a, err := e.alloc.Allocate(lv.vg, AllocationRequest{
		Areas:       1,
		AreaExtents: mirrorLogExtents,
		PVs:         pvs,
		Avoid:       lv.pvNames(),
	})
	if err != nil {
		return wrapErrorf(err, "Unable to add mirror log to %s", lv)
	}
	name := Name{Base: lv.Name.String(), Role: RoleMLog}
	log, err := lv.vg.CreateLV(name, MirrorLog|Read|Write|Visible)
	if err != nil {
		return wrapErrorf(err, "Unable to add mirror log to %s", lv)
	}
	log.extend(a.Data[0])
	if err := e.clearLVs(ctx, []*LogicalVolume{log}); err != nil {
		return wrapErrorf(err, "Failed to initialize mirror log of %s", lv)
	}
	log.setVisible(false)
	seg.Log = log.ID
	log.Parent = lv.ID
	return nil
}

// convertMirrorToRaid1 replaces the log of a mirror with per-image
// metadata and retypes it, then adjusts the image count.
func (e *Engine) convertMirrorToRaid1(ctx context.Context, lv *LogicalVolume, newType *SegmentType, imageCount uint32, pvs []string, update bool, removal []*LogicalVolume) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	if !seg.Type.IsMirror() {
		return nil, internalErrorf("mirror conversion supported only")
	}
	if imageCount == 0 {
		imageCount = seg.AreaCount()
	}
	if imageCount < 2 {
		return nil, usageErrorf("can't reduce to less than 2 data_copies")
	}

	removal = removeMirrorLog(lv, removal)
	if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
		return nil, err
	}
	klog.V(4).Infof("Adjust data LVs of %s", lv)
	if err := adjustDataLVs(lv, mirrorToRaid1); err != nil {
		return nil, err
	}
	// The legs of an in-sync mirror need no resynchronization.
	for s := range seg.Areas {
		seg.DataLV(uint32(s)).Status &^= Rebuild
	}

	seg.Type = newType
	lv.Status &^= MirrorTop | Mirrored
	lv.Status |= Raid

	if imageCount != seg.AreaCount() {
		klog.V(4).Infof("Changing image count to %d on %s", imageCount, lv)
		r, err := e.changeImageCount(ctx, lv, newType, imageCount, pvs)
		if err != nil {
			return nil, err
		}
		removal = append(removal, r...)
	}
	if newType.IsRaid1() {
		seg.DataCopies = seg.AreaCount()
	}
	if !update {
		return removal, nil
	}
	return nil, e.updateAndReloadEliminate(ctx, lv, removal)
}

// convertRaid1ToMirror drops the metadata images of a raid1 and gives it a
// mirror log.
func (e *Engine) convertRaid1ToMirror(ctx context.Context, lv *LogicalVolume, newType *SegmentType, imageCount uint32, pvs []string, update bool, removal []*LogicalVolume) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	if !seg.Type.IsRaid1() {
		return nil, internalErrorf("raid1 conversion supported only")
	}
	if imageCount == 0 {
		imageCount = seg.AreaCount()
	}
	if imageCount < 2 {
		return nil, usageErrorf("can't reduce to less than 2 data_copies")
	}
	if err := e.checkMaxMirrorDevices(imageCount); err != nil {
		klog.Errorf("Please, at least reduce to the maximum of %d images with \"lvconvert -m%d %s\"",
			e.cfg.MaxMirrors, e.cfg.MaxMirrors-1, lv)
		return nil, wrapErrorf(err, "Unable to convert raid1 LV %s with %d images to mirror", lv, imageCount)
	}

	if imageCount != seg.AreaCount() {
		klog.V(4).Infof("Changing image count to %d on %s", imageCount, lv)
		r, err := e.changeImageCount(ctx, lv, newType, imageCount, pvs)
		if err != nil {
			return nil, err
		}
		removal = append(removal, r...)
	}

	klog.V(4).Infof("Extracting and renaming metadata LVs")
	metas, err := extractList(seg, metaComponent, 0)
	if err != nil {
		return nil, err
	}
	removal = append(removal, metas...)
	seg.MetaAreas = nil

	klog.V(4).Infof("Adjust data LVs of %s", lv)
	if err := adjustDataLVs(lv, raid1ToMirror); err != nil {
		return nil, err
	}
	seg.Type = newType
	lv.Status &^= Raid
	lv.Status |= MirrorTop | Mirrored

	if err := e.addMirrorLog(ctx, lv, pvs); err != nil {
		return nil, err
	}
	if !update {
		return removal, nil
	}
	return nil, e.updateAndReloadEliminate(ctx, lv, removal)
}
