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

// createRaid01Images creates the striped images [start, end) of the raid01
// lv, each kept off the devices of the images before it.
func (e *Engine) createRaid01Images(ctx context.Context, lv *LogicalVolume, stripes, stripeSize, extents, start, end uint32, pvs []string) error {
	seg := lv.FirstSegment()
	if end > seg.AreaCount() || start > end {
		return internalErrorf("Bad image range [%d, %d) for %s", start, end, lv)
	}
	klog.V(4).Infof("Creating %d striped images for %s", end-start, lv)
	for s := start; s < end; s++ {
		for ss := uint32(0); ss < s; ss++ {
			avoidPVsOfOtherImages(seg.DataLV(ss), pvs)
		}
		name := componentName(lv.Name.String(), RoleRImage, int(s))
		img, err := e.createLV(ctx, lv.vg, name, Striped, 1, stripes, 0, stripeSize, extents, pvs, NeedsFullResync)
		if err != nil {
			return wrapErrorf(err, "Failed to create striped image lv %s/%s", lv.vg.Name, name)
		}
		img.setVisible(false)
		flags := Raid | RaidImage
		if start > 0 {
			flags |= Rebuild
		}
		seg.setDataLV(s, img, flags)
	}
	releaseAvoidedPVs(lv.vg)
	return nil
}

// stripedToRaid01 mirrors a striped lv onto new striped images.
func (e *Engine) stripedToRaid01(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	striped := lv.FirstSegment()
	dc := a.dataCopies
	if dc < 2 {
		return usageErrorf("Converting %s to %s needs at least 2 data copies", lv, a.newType)
	}
	if !hasOneStripeZone(lv) {
		return unsupportedErrorf("Cannot convert striped LV %s with varying stripe count to %s", lv, a.newType)
	}
	stripes, stripeSize, extents := striped.AreaCount(), striped.StripeSize, lv.LECount
	if err := e.checkMaxRaidDevices(dc); err != nil {
		return err
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, dc, stripes, stripeSize); err != nil {
		return err
	}

	klog.V(4).Infof("Converting lv %s to raid1", lv)
	seg, err := e.convertLVToRaid1(lv, componentName(lv.Name.String(), RoleRImage, 0))
	if err != nil {
		return err
	}
	seg.Type = a.newType
	seg.reallocAreas(dc)
	if err := e.createRaid01Images(ctx, lv, stripes, stripeSize, extents, 1, dc, a.pvs); err != nil {
		return err
	}
	seg.DataCopies = dc
	lv.LECount = seg.Len

	klog.V(4).Infof("Allocating %d metadata images for %s", dc, lv)
	seg.MetaAreas = nil
	if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
		return err
	}
	return e.updateAndReloadEliminate(ctx, lv, nil)
}

// raid01ToStriped keeps the first in-sync striped image of a raid01 lv
// and drops the raid layer.
func (e *Engine) raid01ToStriped(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	health, err := e.status.DeviceHealth(ctx, lv)
	if err != nil {
		return transactionErrorf(err, "Failed to get device health of %s", lv)
	}
	keep := -1
	for s := range seg.Areas {
		if s < len(health) && health[s] == 'A' && seg.DataLV(uint32(s)) != nil {
			keep = s
			break
		}
	}
	if keep < 0 {
		return preconditionErrorf("No mirror in sync!")
	}
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, 1, 0, 0); err != nil {
		return err
	}

	img := seg.DataLV(uint32(keep))
	var removal []*LogicalVolume
	if seg.MetaAreas != nil {
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return err
		}
		removal = append(removal, metas...)
	}
	for s := range seg.Areas {
		if s == keep {
			continue
		}
		d, err := extractComponent(seg, dataComponent, uint32(s), false)
		if err != nil {
			return err
		}
		d.replaceWithError()
		removal = append(removal, d)
	}
	seg.Areas = []Area{lvArea(img.ID)}
	seg.DataCopies = 1

	lv.removeLayer(img)
	lv.Status &^= Raid
	img.Status &^= Raid | RaidImage
	img.setVisible(true)
	removal = append(removal, img)
	return e.updateAndReloadEliminate(ctx, lv, removal)
}

// CreateRaid01 maps the empty lv as a raid01 of dataCopies striped images
// of extents each and commits it.
func (e *Engine) CreateRaid01(ctx context.Context, lv *LogicalVolume, t *SegmentType, dataCopies, stripes, stripeSize, regionSize, extents uint32, pvs []string) error {
	vg := lv.vg
	e.begin(vg)
	if !t.IsRaid01() {
		return usageErrorf("Unable to create %s LV %s as raid01", t, lv)
	}
	if dataCopies < 2 || stripes < 2 {
		return usageErrorf("raid01 LV %s needs at least 2 data copies and 2 stripes", lv)
	}
	if extents == 0 {
		return usageErrorf("Unable to create empty raid01 LV %s", lv)
	}
	if err := e.checkMaxRaidDevices(dataCopies); err != nil {
		return err
	}
	if err := e.archive(vg); err != nil {
		return err
	}

	lv.releaseSubLVs()
	lv.Segments = nil
	lv.appendSegment(&Segment{
		Type:       t,
		Len:        extents,
		AreaLen:    extents,
		RegionSize: regionSize,
		DataCopies: dataCopies,
		Areas:      make([]Area, dataCopies),
	})
	lv.LECount = extents
	lv.Status |= Raid | Read | Write
	e.checkAndInitRegionSize(lv)

	if err := e.createRaid01Images(ctx, lv, stripes, stripeSize, extents, 0, dataCopies, pvs); err != nil {
		return err
	}
	seg := lv.FirstSegment()
	// Striped images round up to full stripes.
	size := seg.DataLV(0).LECount
	seg.Len, seg.AreaLen, lv.LECount = size, size, size

	seg.MetaAreas = nil
	if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
		return err
	}
	if err := e.writeCommit(vg); err != nil {
		return err
	}
	e.backup(vg)
	klog.V(2).Infof("Created %s LV %s with %d data copies of %d stripes", t, lv, dataCopies, stripes)
	return nil
}
