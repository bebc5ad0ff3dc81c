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

	pmath "github.com/pkg/math"
	"k8s.io/klog"
)

// InitialSync selects whether the images of a new volume start out
// resynchronizing.
type InitialSync int

const (
	NeedsFullResync InitialSync = iota
	AlreadyInSync
)

// stripedSegmentsFromExtents maps parallel extent lists onto striped
// segments, cutting wherever any of the areas changes extent.
func stripedSegmentsFromExtents(areas [][]Extent, stripeSize uint32) []*Segment {
	n := uint32(len(areas))
	if n == 1 {
		stripeSize = 0
	}
	idx := make([]int, n)
	off := make([]uint32, n)
	var segs []*Segment
	var le uint32
	for {
		length := uint32(0)
		for s := range areas {
			if idx[s] >= len(areas[s]) {
				return segs
			}
			left := areas[s][idx[s]].Len - off[s]
			if length == 0 {
				length = left
			} else {
				length = pmath.MinUint32(length, left)
			}
		}
		seg := &Segment{
			Type:       Striped,
			LE:         le,
			Len:        length * n,
			AreaLen:    length,
			StripeSize: stripeSize,
			Areas:      make([]Area, n),
		}
		for s := range areas {
			x := areas[s][idx[s]]
			seg.Areas[s] = Area{Kind: AreaPV, PV: x.PV, PE: x.PE + off[s]}
			off[s] += length
			if off[s] == x.Len {
				idx[s]++
				off[s] = 0
			}
		}
		segs = append(segs, seg)
		le += length * n
	}
}

// createLV allocates a new visible top-level volume of type t holding at
// least extents.
func (e *Engine) createLV(ctx context.Context, vg *VolumeGroup, name Name, t *SegmentType,
	dataCopies, stripes, regionSize, stripeSize, extents uint32, pvs []string, sync InitialSync) (*LogicalVolume, error) {
	if t.IsStripedRaid() && stripes < 2 {
		klog.Warningf("Adjusting stripes to the minimum of 2")
		stripes = 2
	}
	switch {
	case t.IsAnyRaid10():
		if dataCopies < 2 {
			dataCopies = 2
		}
		if dataCopies > stripes {
			return nil, usageErrorf("raid10 data_copies may not be more than stripes (i.e. -mN with N <= #stripes)")
		}
	case t.IsMirror(), t.IsRaid1():
		if dataCopies < 2 {
			dataCopies = 2
		}
		stripes = 1
		stripeSize = 0
	case t.IsStriped():
		if stripes == 0 {
			stripes = 1
		}
	}
	if stripes > 1 && stripeSize == 0 {
		stripeSize = e.cfg.StripeSize
	}
	if stripes == 1 {
		stripeSize = 0
	}

	var areas, perImage, size, copies uint32
	switch {
	case t.IsStriped(), t.IsAnyRaid0():
		areas = stripes
		perImage = uint32(divUp(uint64(extents), uint64(stripes)))
		size = perImage * stripes
		copies = 1
	case t.IsMirror(), t.IsRaid1():
		areas = dataCopies
		perImage = extents
		size = extents
		copies = dataCopies
	case t.IsParityRaid():
		areas = stripes + t.ParityDevs
		perImage = uint32(divUp(uint64(extents), uint64(stripes)))
		size = perImage * stripes
		copies = 1
	case t.IsAnyRaid10():
		areas = stripes
		perImage = RimageExtents(extents, stripes, dataCopies)
		size = perImage * stripes / dataCopies
		copies = dataCopies
	default:
		return nil, unsupportedErrorf("Unable to create logical volume %s of type %s", name, t)
	}
	if t.IsMirror() {
		if err := e.checkMaxMirrorDevices(areas); err != nil {
			return nil, err
		}
	} else if err := e.checkMaxRaidDevices(areas); err != nil {
		return nil, err
	}

	flags := Read | Write | Visible
	switch {
	case t.IsRaid():
		flags |= Raid
	case t.IsMirror():
		flags |= MirrorTop | Mirrored
	}
	lv, err := vg.CreateLV(name, flags)
	if err != nil {
		return nil, err
	}
	lv.LECount = size
	seg := &Segment{
		Type:       t,
		Len:        size,
		AreaLen:    perImage,
		StripeSize: stripeSize,
		DataCopies: copies,
		Areas:      make([]Area, areas),
	}
	lv.appendSegment(seg)
	if !t.IsStriped() && !t.IsRaid0() {
		seg.RegionSize = regionSize
		e.checkAndInitRegionSize(lv)
	}

	req := AllocationRequest{Areas: areas, AreaExtents: perImage, PVs: pvs}
	if t.IsRaid() && !t.IsRaid0() {
		req.MetaExtents = RmetaExtents(perImage, seg.RegionSize, vg.ExtentSize)
	}
	klog.V(2).Infof("Allocating %d area(s) of %d extents for %s", areas, perImage, lv)
	a, err := e.alloc.Allocate(vg, req)
	if err != nil {
		vg.RemoveLV(lv)
		return nil, wrapErrorf(err, "Failed to allocate %s LV %s", t, lv)
	}

	base := name.String()
	switch {
	case t.IsStriped():
		lv.setSegments(stripedSegmentsFromExtents(a.Data, stripeSize))
		lv.mergeSegments()

	case t.IsMirror():
		legs := make([]*LogicalVolume, 0, areas)
		for s := uint32(0); s < areas; s++ {
			leg, err := e.newImageComponent(vg, base, RoleMImage, a.Data[s])
			if err != nil {
				return nil, err
			}
			legs = append(legs, leg)
		}
		addImageComponentList(seg, legs, 0, 0)
		if err := e.addMirrorLog(ctx, lv, pvs); err != nil {
			return nil, err
		}
		if sync == AlreadyInSync {
			lv.Status |= NotSynced
		}

	default:
		var metas, datas []*LogicalVolume
		for s := uint32(0); s < areas; s++ {
			if req.MetaExtents > 0 {
				m, err := e.newImageComponent(vg, base, RoleRMeta, a.Meta[s])
				if err != nil {
					return nil, err
				}
				metas = append(metas, m)
			}
			d, err := e.newImageComponent(vg, base, RoleRImage, a.Data[s])
			if err != nil {
				return nil, err
			}
			datas = append(datas, d)
		}
		if err := e.clearLVs(ctx, metas); err != nil {
			return nil, wrapErrorf(err, "Failed to initialize metadata LVs of %s", lv)
		}
		addImageComponentList(seg, metas, 0, 0)
		var dflags StatusFlag
		if sync == NeedsFullResync {
			dflags = Rebuild
		}
		addImageComponentList(seg, datas, dflags, 0)
	}
	klog.V(2).Infof("Created %s LV %s with %d extents", t, lv, lv.LECount)
	return lv, nil
}

func dupRole(r Role, toDup bool) Role {
	switch {
	case toDup && r == RoleRImage:
		return RoleRDImage
	case toDup && r == RoleRMeta:
		return RoleRDMeta
	case !toDup && r == RoleRDImage:
		return RoleRImage
	case !toDup && r == RoleRDMeta:
		return RoleRMeta
	}
	return r
}

// renameSubLVs moves the raid components of lv into or out of the
// duplication namespace.
func renameSubLVs(lv *LogicalVolume, toDup bool) error {
	seg := lv.FirstSegment()
	if seg == nil {
		return nil
	}
	for s := range seg.Areas {
		subs := []*LogicalVolume{seg.DataLV(uint32(s)), seg.MetaLV(uint32(s))}
		for _, sub := range subs {
			if sub == nil {
				continue
			}
			n := sub.Name
			n.Role = dupRole(n.Role, toDup)
			if err := rename(sub, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// rebaseSubLVNames names the components of lv after lv, out of the
// duplication namespace.
func rebaseSubLVNames(lv *LogicalVolume) error {
	seg := lv.FirstSegment()
	subs := make([]*LogicalVolume, 0, 2*len(seg.Areas)+1)
	for s := range seg.Areas {
		subs = append(subs, seg.DataLV(uint32(s)), seg.MetaLV(uint32(s)))
	}
	subs = append(subs, seg.LogLV())
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		n := sub.Name
		n.Base = lv.Name.String()
		n.Role = dupRole(n.Role, false)
		if err := rename(sub, n); err != nil {
			return err
		}
	}
	return nil
}

// duplicate puts lv as source leg under a new raid1 layer and adds a
// destination leg of the requested layout to be synchronized from it. On
// an already duplicating lv the layer is removed again instead.
func (e *Engine) duplicate(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	if IsDuplicating(lv) {
		return e.unduplicate(ctx, lv, a)
	}
	vg := lv.vg
	seg := lv.FirstSegment()
	stripeSize := a.stripeSize
	if a.newType == seg.Type && a.stripes == seg.AreaCount() && a.dataCopies == seg.DataCopies && stripeSize == seg.StripeSize {
		return usageErrorf("No change on duplicating conversion of LV %s", lv)
	}
	if a.newType.IsStriped() && a.stripes <= 1 && a.dataCopies > 1 {
		return usageErrorf("No stripes/mirrors with %s", segtypeName(a.newType, 1))
	}

	newName := segtypeName(a.newType, a.imageCount)
	klog.Warningf("This is a conversion by duplication request for source LV %s!", lv)
	klog.Warningf("A new %s destination LV will be allocated and %s will be synced to it.", newName, lv)
	klog.Warningf("You can either remove the source LV via 'lvconvert --type %s %s' after the synchronization finished",
		segtypeName(seg.Type, seg.AreaCount()), lv)
	klog.Warningf("or the destination LV via 'lvconvert --type %s %s' at any point in time (even during synchronization).", newName, lv)
	if err := e.confirmConversion(ctx, lv, a.newType, a.yes, a.imageCount, 0, 0); err != nil {
		return err
	}

	count := a.imageCount
	if count <= a.newType.ParityDevs {
		count = 2 + a.newType.ParityDevs
	}
	if stripeSize == 0 {
		stripeSize = e.cfg.StripeSize
	}
	dataCopies := a.dataCopies
	if (a.newType.IsRaid1() || a.newType.IsMirror()) && dataCopies < 2 {
		dataCopies = count
	}
	regionSize := seg.RegionSize
	if regionSize == 0 {
		regionSize = e.cfg.RegionSize
	}
	extents := lv.LECount - seg.ReshapeLen

	if !a.force {
		klog.V(4).Infof("Avoiding coallocation on source LV %s PVs", lv)
		avoidPVsOfOtherImages(lv, a.pvs)
	}

	srcName, err := generateName(vg, lv.Name.Base, RoleDSrc)
	if err != nil {
		return err
	}
	klog.V(4).Infof("Inserting layer lv on top of source LV %s", lv)
	if seg, err = e.convertLVToRaid1(lv, srcName); err != nil {
		return err
	}
	src := seg.DataLV(0)
	klog.V(4).Infof("Renaming source LV %s sub LVs", src)
	if err := renameSubLVs(src, true); err != nil {
		return err
	}

	dstName, err := generateName(vg, lv.Name.Base, RoleDDst)
	if err != nil {
		return err
	}
	klog.V(4).Infof("Creating destination sub LV %s", dstName)
	dst, err := e.createLV(ctx, vg, dstName, a.newType, dataCopies, a.stripes, regionSize, stripeSize, extents, a.pvs, AlreadyInSync)
	if err != nil {
		return wrapErrorf(err, "Failed to create destination lv %s/%s", vg.Name, dstName)
	}
	releaseAvoidedPVs(vg)
	dst.setVisible(false)
	if dst.LECount != lv.LECount {
		klog.Warningf("Destination LV with %d extents is larger than source with %d due to stripe boundary rounding", dst.LECount, lv.LECount)
		klog.Warningf("You may want to resize your LV content after the duplication conversion (e.g. resize fs)")
	}
	if err := renameSubLVs(dst, true); err != nil {
		return err
	}

	klog.V(4).Infof("Add destination LV %s to top-level LV %s as second raid1 leg", dst, lv)
	seg.reallocAreas(2)
	seg.setDataLV(1, dst, RaidImage)
	seg.MetaAreas = nil
	if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
		return err
	}

	// Only the destination gets resynchronized.
	src.Status &^= Rebuild
	dst.Status |= Rebuild
	seg.DataCopies = 2
	lv.Status |= Raid
	lv.Status &^= NotSynced
	lv.setVisible(true)

	if err := e.updateAndReloadEliminate(ctx, lv, nil); err != nil {
		return err
	}
	return e.condRepair(ctx, lv)
}

// unduplicate removes the raid1 layer of a duplicating lv, keeping the
// leg whose layout is requested.
func (e *Engine) unduplicate(ctx context.Context, lv *LogicalVolume, a *takeoverArgs) error {
	seg := lv.FirstSegment()
	seg0 := seg.DataLV(0).FirstSegment()
	seg1 := seg.DataLV(1).FirstSegment()

	// idx is the leg to drop.
	var idx uint32
	switch {
	case seg0.Type == seg1.Type:
		if seg0.AreaCount() == seg1.AreaCount() {
			if seg1.DataCopies == a.dataCopies {
				idx = 1
			}
		} else if seg1.AreaCount() != a.imageCount {
			idx = 1
		}
	case seg0.Type == a.newType:
		idx = 1
	case seg1.Type == a.newType:
		idx = 0
	default:
		klog.Errorf("Possible are either %s to keep the source or %s for the destination",
			segtypeName(seg0.Type, a.imageCount), segtypeName(seg1.Type, a.imageCount))
		return usageErrorf("Wrong raid type %s requested to remove duplicating conversion", a.newType)
	}

	if idx == 0 && !e.inSync(ctx, lv) {
		return preconditionErrorf("Can't convert to destination when LV %s is not in sync", lv)
	}
	leg := "source"
	if idx == 1 {
		leg = "destination"
	}
	klog.Warningf("This is a request to remove the %s of a duplicating conversion of LV %s!", leg, lv)
	if !a.yes && !e.ask("Do you want to convert %s with type %s to %s? [y/n]: ",
		lv, segtypeName(seg0.Type, seg0.AreaCount()), segtypeName(seg1.Type, a.imageCount)) {
		return abortedErrorf("Logical volume %s NOT converted", lv)
	}
	if err := ctx.Err(); err != nil {
		return abortedErrorf("Interrupted: %v", err)
	}
	if err := e.archive(lv.vg); err != nil {
		return err
	}
	if idx == 1 {
		klog.Warningf("Keeping source lv %s", seg.DataLV(0))
	}

	removal, err := extractSublist(seg, metaComponent, 0, 2, true)
	if err != nil {
		return internalErrorf("Failed to extract top-level %s LVs %s images: %v", leg, seg.DataLV(idx), err)
	}
	dropped, err := extractComponent(seg, dataComponent, idx, false)
	if err != nil {
		return internalErrorf("Failed to extract top-level %s LVs %s images: %v", leg, seg.DataLV(idx), err)
	}
	removal = append(removal, dropped)
	removal = append(removal, dropped.subLVs()...)

	if idx == 0 {
		seg.Areas[0] = seg.Areas[1]
	}
	seg.Areas = seg.Areas[:1]

	kept := seg.DataLV(0)
	removal = resetRaidAddToList(kept, removal)
	lv.removeLayer(kept)
	if err := rebaseSubLVNames(lv); err != nil {
		return err
	}

	lv.Status &^= Raid | MirrorTop | Mirrored
	switch t := lv.FirstSegment().Type; {
	case t.IsRaid():
		lv.Status |= Raid
	case t.IsMirror():
		lv.Status |= MirrorTop | Mirrored
	}
	lv.setVisible(true)
	return e.updateAndReloadEliminate(ctx, lv, removal)
}
