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

type reshapedState int

const (
	kernelDevsEqual reshapedState = iota + 1
	kernelDevsFewer
	kernelDevsMore
)

// reshapedStateOf compares the device count of the live array with
// devCount, also counting the healthy and in-sync devices.
func (e *Engine) reshapedStateOf(ctx context.Context, lv *LogicalVolume, devCount uint32) (state reshapedState, health, inSync uint32, err error) {
	kernelDevs, err := e.status.DeviceCount(ctx, lv)
	if err != nil {
		return 0, 0, 0, transactionErrorf(err, "Failed to get device count")
	}
	h, err := e.status.DeviceHealth(ctx, lv)
	if err != nil {
		return 0, 0, 0, transactionErrorf(err, "Failed to get device health")
	}
	for _, c := range h {
		health++
		if c == 'A' {
			inSync++
		}
	}
	switch {
	case kernelDevs == devCount:
		state = kernelDevsEqual
	case kernelDevs < devCount:
		state = kernelDevsFewer
	default:
		state = kernelDevsMore
	}
	return state, health, inSync, nil
}

// displaySize formats a sector count the way volume sizes are shown.
func displaySize(sectors uint64) string {
	units := []string{"KiB", "MiB", "GiB", "TiB", "PiB"}
	v := float64(sectors) / 2
	u := 0
	for v >= 1024 && u < len(units)-1 {
		v /= 1024
		u++
	}
	return fmt.Sprintf("%.2f %s", v, units[u])
}

type reshapeRequest int

const (
	noReshape reshapeRequest = iota
	reshapeWanted
	reshapeRefused
)

// reshapeRequested classifies a request on lv as a reshape. A refused
// reshape carries the reason.
func reshapeRequested(lv *LogicalVolume, t *SegmentType, stripes, stripeSize uint32) (reshapeRequest, error) {
	seg := lv.FirstSegment()
	if !seg.Type.IsReshapable() || !isSameLevel(seg.Type, t) {
		return noReshape, nil
	}
	if (seg.Type.IsRaid10Near() && t.IsRaid10Offset()) || (seg.Type.IsRaid10Offset() && t.IsRaid10Near()) {
		return reshapeWanted, nil
	}
	if seg.Type.IsRaid10Far() {
		klog.Errorf("Use \"lvconvert --duplicate ... %s", lv)
		return reshapeRefused, unsupportedErrorf("Can't reshape raid10_far LV %s.", lv)
	}
	if stripes != 0 && stripes == seg.DataImageCount() {
		return reshapeRefused, usageErrorf("LV %s already has that amount of stripes.", lv)
	}
	if stripeSize != 0 && stripeSize == seg.StripeSize {
		return reshapeRefused, usageErrorf("LV %s already has that stripe size.", lv)
	}
	if stripes == 0 && stripeSize == 0 {
		return noReshape, nil
	}
	return reshapeWanted, nil
}

// reshape adds or removes stripes of lv, or changes its layout or stripe
// size, using out-of-place reshape space.
func (e *Engine) reshape(ctx context.Context, lv *LogicalVolume, newType *SegmentType, yes, force bool, stripes, stripeSize uint32, pvs []string) error {
	seg := lv.FirstSegment()
	oldCount := seg.AreaCount()
	newCount := stripes + seg.Type.ParityDevs
	var removal []*LogicalVolume

	if seg.Type == newType && oldCount == newCount && seg.StripeSize == stripeSize {
		return usageErrorf("Nothing to do")
	}
	if !seg.Type.IsParityRaid() && !seg.Type.IsRaid10Near() && !seg.Type.IsRaid10Offset() &&
		(oldCount != newCount || seg.StripeSize != stripeSize) {
		klog.Errorf("You may want to convert to raid4/5/6/10_far/10_offset first")
		return unsupportedErrorf("Can't reshape %s LV %s", seg.Type, lv)
	}
	if seg.Type.IsAnyRaid10() {
		if seg.Type.IsRaid10Far() || newType.IsRaid10Far() {
			klog.Errorf("You may want to use the \"--duplicate\" option")
			return unsupportedErrorf("Can't reshape any raid10_far LV %s", lv)
		}
		if ((seg.Type.IsRaid10Near() && newType.IsRaid10Offset()) ||
			(seg.Type.IsRaid10Offset() && newType.IsRaid10Near())) && newCount != oldCount {
			klog.Errorf("You may want to use the \"--duplicate\" option")
			return unsupportedErrorf("Can't reshape raid10 LV %s to different layout and change number of disks at the same time", lv)
		}
		if newCount < seg.DataCopies {
			return usageErrorf("Can't remove disks from raid10 LV %s and have less disks than data copies", lv)
		}
	}

	if seg.Type.IsRaid4() || seg.Type.IsAnyRaid5() {
		if stripes < 1 {
			return usageErrorf("Too few stripes requested")
		}
	} else if stripes < 2 {
		return usageErrorf("Too few stripes requested")
	}

	state, health, inSync, err := e.reshapedStateOf(ctx, lv, oldCount)
	if err != nil {
		return err
	}
	switch state {
	case kernelDevsEqual:
		if inSync < health {
			return preconditionErrorf("Can't reshape out of sync LV %s", lv)
		}
	case kernelDevsFewer:
		if inSync != newCount {
			return preconditionErrorf("Device count is incorrect. Forgotten \"lvconvert --stripes %d %s\" to remove %d images after reshape?",
				inSync-seg.Type.ParityDevs, lv, oldCount-inSync)
		}
	default:
		return internalErrorf("Bad return=%d provided to reshape.", state)
	}

	switch {
	case oldCount < newCount:
		// A two device raid4/5 keeps its raid1 compatible layout.
		if oldCount == 2 {
			newType = seg.Type
		}
		newLen := (newCount - seg.Type.ParityDevs) * (seg.Len / (oldCount - seg.Type.ParityDevs))
		klog.Warningf("WARNING: Adding stripes to active logical volume %s will grow it from %d to %d extents!", lv, seg.Len, newLen)
		klog.Warningf("You may want to run \"lvresize -l%d %s\" to shrink it after", seg.Len, lv)
		klog.Warningf("the conversion has finished or make use of the gained capacity")

		if err := e.confirmConversion(ctx, lv, newType, yes, newCount, stripes, stripeSize); err != nil {
			return err
		}
		seg.StripeSize = stripeSize
		if err := e.allocReshapeSpace(ctx, lv, ReshapeSpaceBegin, pvs); err != nil {
			return err
		}
		plural := ""
		if newCount-oldCount > 1 {
			plural = "s"
		}
		klog.V(4).Infof("Adding %d data and metadata image LV pair%s to %s", newCount-oldCount, plural, lv)
		if _, err := e.changeImageCount(ctx, lv, newType, newCount, pvs); err != nil {
			return err
		}
		if seg.Type != newType {
			klog.Warningf("Ignoring layout change on device adding reshape")
		}

	case oldCount > newCount:
		state, _, _, err := e.reshapedStateOf(ctx, lv, newCount)
		if err != nil {
			return err
		}
		switch state {
		case kernelDevsMore:
			// Step one flags the images to drop; the kernel moves the data
			// off them.
			newLen := (newCount - seg.Type.ParityDevs) * (seg.Len / (oldCount - seg.Type.ParityDevs))
			es := uint64(lv.vg.ExtentSize)
			klog.Warningf("WARNING: Removing stripes from active logical volume %s will shrink it from %s to %s!",
				lv, displaySize(uint64(seg.Len)*es), displaySize(uint64(newLen)*es))
			klog.Warningf("THIS MAY DESTROY (PARTS OF) YOUR DATA!")
			klog.Warningf("You may want to interrupt the conversion and run \"lvresize -y -l%d %s\" ",
				uint64(seg.Len)*uint64(seg.Len)/uint64(newLen), lv)
			klog.Warningf("to keep the current size if you haven't done it already")
			klog.Warningf("If that leaves the logical volume larger than %d extents due to stripe rounding,", newLen)
			klog.Warningf("you may want to grow the content afterwards (filesystem etc.)")
			klog.Warningf("WARNING: You have to run \"lvconvert --stripes %d %s\" again after the reshape has finished", stripes, lv)
			klog.Warningf("in order to remove the freed up stripes from the raid set")

			if err := e.confirmConversion(ctx, lv, newType, yes, newCount, stripes, stripeSize); err != nil {
				return err
			}
			if !force {
				return preconditionErrorf("WARNING: Can't remove stripes without --force option")
			}
			seg.StripeSize = stripeSize
			if err := e.allocReshapeSpace(ctx, lv, ReshapeSpaceEnd, pvs); err != nil {
				return err
			}
			for s := newCount; s < oldCount; s++ {
				seg.DataLV(s).Status |= ReshapeDeltaMinus
			}
			if seg.Type != newType {
				klog.Warningf("Ignoring layout change on device removing reshape")
			}

		case kernelDevsEqual:
			// Step two drops the freed images once the kernel is done.
			plural := ""
			if oldCount-newCount > 1 {
				plural = "s"
			}
			klog.V(4).Infof("Removing %d data and metadata image LV pair%s from %s", oldCount-newCount, plural, lv)
			if err := e.archive(lv.vg); err != nil {
				return err
			}
			if removal, err = e.changeImageCount(ctx, lv, newType, newCount, pvs); err != nil {
				return err
			}

		default:
			return internalErrorf("Bad return provided to reshape.")
		}

	default:
		if err := e.confirmConversion(ctx, lv, newType, yes, newCount, stripes, stripeSize); err != nil {
			return err
		}
		// The kernel picks forward or backward reshape from wherever the
		// space already is.
		if err := e.allocReshapeSpace(ctx, lv, ReshapeSpaceAnywhere, pvs); err != nil {
			return err
		}
		seg.Type = newType
		seg.StripeSize = stripeSize
	}

	return e.updateAndReloadEliminate(ctx, lv, removal)
}
