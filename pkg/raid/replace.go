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

// componentFailed reports whether the image pair at s maps no storage or
// maps any of pvs.
func componentFailed(seg *Segment, s uint32, pvs []string) bool {
	for _, sub := range []*LogicalVolume{seg.DataLV(s), seg.MetaLV(s)} {
		if sub != nil && (sub.IsVirtual() || sub.onPVs(pvs)) {
			return true
		}
	}
	return false
}

// raid10CopiesLost reports whether every copy of some chunk of the raid10
// segment lives on a failed image.
func raid10CopiesLost(seg *Segment, failed func(s uint32) bool) bool {
	n := seg.AreaCount()
	copies := seg.DataCopies
	if copies < 2 {
		copies = 2
	}
	for k := uint32(0); k < n; k++ {
		lost := uint32(0)
		for j := uint32(0); j < copies; j++ {
			var s uint32
			if seg.Type.IsRaid10Near() {
				s = (k*copies + j) % n
			} else {
				// far and offset put the next copy on the next device.
				s = (k + j) % n
			}
			if failed(s) {
				lost++
			}
		}
		if lost >= copies {
			return true
		}
	}
	return false
}

// removePartialMultiSegmentImage maps a partial multi segment image to the
// error target when one of its healthy devices can hold the whole image
// anew.
func removePartialMultiSegmentImage(lv *LogicalVolume, removePVs []string) error {
	if !lv.Is(Partial) {
		return internalErrorf("Called with non-partial LV %s.", lv)
	}
	vg := lv.vg
	seg := lv.FirstSegment()
	for s := uint32(0); s < seg.AreaCount(); s++ {
		img := seg.DataLV(s)
		if img == nil || !img.Is(Partial) || !img.onPVs(removePVs) || len(img.Segments) < 2 {
			continue
		}
		var needed uint32
		if meta := seg.MetaLV(s); meta != nil && meta.Is(Partial) {
			needed += meta.LECount
		}
		for _, is := range img.Segments {
			if a := is.Areas[0]; a.Kind == AreaPV {
				if pv := vg.PV(a.PV); pv != nil && pv.Missing {
					needed += is.Len
				}
			}
		}
		klog.V(4).Infof("%d extents needed to repair %s", needed, img.Name)

		for _, is := range img.Segments {
			a := is.Areas[0]
			if a.Kind != AreaPV {
				continue
			}
			if pv := vg.PV(a.PV); pv == nil || pv.Missing {
				continue
			}
			if vg.FreeExtents(a.PV) > needed {
				klog.V(4).Infof("%s has enough space for %s", a.PV, img.Name)
				img.replaceWithError()
				return nil
			}
			klog.V(4).Infof("Not enough space on %s for %s", a.PV, img.Name)
		}
	}
	return exhaustedErrorf("No partial multi segment image of %s can be reallocated", lv)
}

// Replace moves the image pairs of lv off removePVs onto new components
// allocated from allocPVs. A partial lv gets as many images replaced as
// space allows.
func (e *Engine) Replace(ctx context.Context, lv *LogicalVolume, force bool, removePVs, allocPVs []string) error {
	vg := lv.vg
	e.begin(vg)
	seg := lv.FirstSegment()
	if seg.Type.IsAnyRaid0() {
		return preconditionErrorf("Replacement of devices in %s %s LV prohibited.", lv, seg.Type)
	}
	if !seg.Type.IsRaid() {
		return unsupportedErrorf("Unable to replace devices in %s LV %s", segtypeName(seg.Type, seg.AreaCount()), lv)
	}
	if lv.Is(Partial) {
		klog.V(2).Infof("Replacing devices of partial LV %s", lv)
	}
	if !e.isActiveExclusive(ctx, lv) {
		return preconditionErrorf("%s must be active to perform this operation.", lv)
	}
	if !e.inSync(ctx, lv) {
		if !force {
			return preconditionErrorf("Unable to replace devices in %s while it is not in-sync.", lv)
		}
		klog.Warningf("WARNING: Replacing devices in not in-sync LV %s", lv)
	}
	if seg.MetaAreas == nil {
		return internalErrorf("Raid LV %s has no metadata images", lv)
	}

	var matches uint32
	for s := uint32(0); s < seg.AreaCount(); s++ {
		if seg.Areas[s].Kind == AreaUnassigned || seg.MetaAreas[s].Kind == AreaUnassigned {
			return preconditionErrorf("Unable to replace RAID images while the array has unassigned areas")
		}
		if componentFailed(seg, s, removePVs) {
			matches++
		}
	}
	switch {
	case matches == 0:
		klog.V(2).Infof("%s does not contain devices specified for replacement", lv)
		return nil
	case matches == seg.AreaCount():
		return usageErrorf("Unable to remove all PVs from %s at once.", lv)
	case seg.Type.ParityDevs > 0 && matches > seg.Type.ParityDevs:
		return usageErrorf("Unable to replace more than %d PVs from (%s) %s", seg.Type.ParityDevs, seg.Type, lv)
	case seg.Type.IsAnyRaid10():
		if raid10CopiesLost(seg, func(s uint32) bool { return componentFailed(seg, s, removePVs) }) {
			return usageErrorf("Unable to replace all the devices in a RAID10 mirror group.")
		}
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	if err := e.archive(vg); err != nil {
		return err
	}

	avoidPVsOfOtherImages(lv, allocPVs)

	// Allocate before extracting so the replaced devices are avoided.
	var newMetas, newDatas []*LogicalVolume
	partialRemoved := false
	for {
		var err error
		if newMetas, newDatas, err = e.allocImageComponents(lv, allocPVs, matches, true, true); err == nil {
			break
		}
		if !lv.Is(Partial) {
			return wrapErrorf(err, "LV %s in not partial.", lv)
		}
		switch {
		case matches > 1 && !partialRemoved:
			klog.Errorf("Failed to replace %d devices.", matches)
			matches--
			klog.Errorf("Attempting to replace %d instead.", matches)
		case !partialRemoved:
			if err := removePartialMultiSegmentImage(lv, removePVs); err != nil {
				return wrapErrorf(err, "Failed to allocate replacement images for %s", lv)
			}
			matches = 1
			partialRemoved = true
		default:
			return wrapErrorf(err, "Failed to allocate replacement images for %s", lv)
		}
	}

	targets := removePVs
	if partialRemoved {
		targets = allPVs(vg, nil)
	}
	oldMetas, oldDatas, err := e.extractImages(ctx, lv, seg.AreaCount()-matches, targets, false)
	if err != nil {
		return wrapErrorf(err, "Failed to remove the specified images from %s", lv)
	}
	old := append(oldMetas, oldDatas...)
	for _, o := range old {
		if err := e.act.ActivateExclusive(ctx, o); err != nil {
			return transactionErrorf(err, "Failed to activate %s", o)
		}
	}

	// The new components keep their allocation names until the old ones
	// are gone.
	type slot struct {
		idx        uint32
		meta, data *LogicalVolume
	}
	var slots []slot
	for s := uint32(0); s < seg.AreaCount() && len(newDatas) > 0; s++ {
		if seg.Areas[s].Kind != AreaUnassigned || seg.MetaAreas[s].Kind != AreaUnassigned {
			continue
		}
		m, d := newMetas[0], newDatas[0]
		newMetas, newDatas = newMetas[1:], newDatas[1:]
		seg.setMetaLV(s, m, m.Status)
		seg.setDataLV(s, d, d.Status)
		m.setVisible(false)
		d.setVisible(false)
		slots = append(slots, slot{s, m, d})
	}

	if err := e.updateAndReloadEliminate(ctx, lv, old); err != nil {
		return err
	}

	base := lv.Name.String()
	for _, sl := range slots {
		if err := rename(sl.meta, componentName(base, RoleRMeta, int(sl.idx))); err != nil {
			return err
		}
		if err := rename(sl.data, componentName(base, RoleRImage, int(sl.idx))); err != nil {
			return err
		}
	}
	if err := e.updateAndReload(ctx, lv); err != nil {
		return err
	}
	return e.condRepair(ctx, lv)
}

// RemoveMissing maps every partial component of lv to the error target.
func (e *Engine) RemoveMissing(ctx context.Context, lv *LogicalVolume) error {
	e.begin(lv.vg)
	if !lv.Is(Partial) {
		return internalErrorf("%s is not a partial LV", lv)
	}
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	seg := lv.FirstSegment()
	klog.V(4).Infof("Attempting to remove missing devices from %s LV, %s", segtypeName(seg.Type, seg.AreaCount()), lv.Name)
	for s := uint32(0); s < seg.AreaCount(); s++ {
		replaceWithErrorIfPartial(seg.DataLV(s))
		replaceWithErrorIfPartial(seg.MetaLV(s))
	}
	return e.updateAndReload(ctx, lv)
}
