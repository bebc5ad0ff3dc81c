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

// ImageCount returns the number of images of a raid lv, 1 otherwise.
func ImageCount(lv *LogicalVolume) uint32 {
	seg := lv.FirstSegment()
	if seg.Type.IsRaid() {
		return seg.AreaCount()
	}
	return 1
}

// MetaImages returns the metadata images of a raid lv in image order.
func MetaImages(lv *LogicalVolume) []*LogicalVolume {
	seg := lv.FirstSegment()
	if seg == nil {
		return nil
	}
	var out []*LogicalVolume
	for s := range seg.MetaAreas {
		if m := seg.MetaLV(uint32(s)); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// trackingImage returns the visible read-only image split off for
// tracking, if any.
func trackingImage(lv *LogicalVolume) *LogicalVolume {
	if !lv.IsRaid() {
		return nil
	}
	seg := lv.FirstSegment()
	for s := range seg.Areas {
		img := seg.DataLV(uint32(s))
		if img != nil && img.Is(Visible) && !img.Is(Write) {
			return img
		}
	}
	return nil
}

// IsDuplicating reports a raid1 layer synchronizing a source leg into a
// destination leg.
func IsDuplicating(lv *LogicalVolume) bool {
	seg := lv.FirstSegment()
	if seg == nil || !seg.Type.IsRaid1() || seg.AreaCount() != 2 {
		return false
	}
	src, dst := seg.DataLV(0), seg.DataLV(1)
	return src != nil && dst != nil && src.Name.Role == RoleDSrc && dst.Name.Role == RoleDDst
}

// setImageLVsStartLEs renumbers the segments of every image of lv.
func setImageLVsStartLEs(lv *LogicalVolume) {
	seg := lv.FirstSegment()
	for s := range seg.Areas {
		if img := seg.DataLV(uint32(s)); img != nil {
			img.renumberSegments()
		}
	}
}

// resetRaidAddToList turns a former image into a plain, visible removal
// candidate.
func resetRaidAddToList(lv *LogicalVolume, removal []*LogicalVolume) []*LogicalVolume {
	lv.Status &^= Raid | RaidImage
	lv.setVisible(true)
	return append(removal, lv)
}

// convertLVToRaid1 maps lv onto a new raid1 segment whose only image holds
// the former mapping.
func (e *Engine) convertLVToRaid1(lv *LogicalVolume, image Name) (*Segment, error) {
	flags := Raid | Read | (lv.Status & Write)
	klog.V(4).Infof("Inserting layer lv on top of %s", lv)
	layer, err := lv.insertLayer(image, flags, Raid1)
	if err != nil {
		return nil, err
	}
	seg := lv.FirstSegment()
	layer.Status |= RaidImage | flags
	layer.Status &^= Rebuild
	layer.setVisible(false)
	lv.Status |= Raid
	e.checkAndInitRegionSize(lv)
	return seg, nil
}

// convertRaidToLinear removes the raid layer of a single image lv. The
// metadata and the former image are returned for elimination.
func convertRaidToLinear(lv *LogicalVolume, removal []*LogicalVolume) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	t := seg.Type
	if !t.IsAnyRaid0() && !t.IsMirror() && !t.IsRaid1() && !t.IsRaid4() && !t.IsAnyRaid5() {
		return nil, internalErrorf("Unable to remove RAID layer from segment type %s", t)
	}
	if seg.AreaCount() != 1 {
		return nil, internalErrorf("Unable to remove RAID layer when there is more than one sub-lv")
	}
	if seg.MetaAreas != nil {
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return nil, err
		}
		removal = append(removal, metas...)
	}
	img := seg.DataLV(0)
	removal = resetRaidAddToList(img, removal)

	// The emptied image stays in the arena until it is eliminated.
	segs := img.Segments
	img.Segments = nil
	lv.releaseSubLVs()
	lv.setSegments(segs)
	for _, s := range lv.Segments {
		reparent(s, lv.ID)
	}
	lv.FirstSegment().Type = Striped
	lv.Status &^= Mirrored | Raid
	return removal, nil
}

type raid10Reorder int

const (
	reorderToRaid10 raid10Reorder = iota
	reorderFromRaid10
)

// raid10ReorderAreas permutes the areas of seg between raid0 stripe order
// and raid10 near mirror group order. Data and metadata areas move
// together.
//
// With 6 areas and 2 data copies raid0 order 012345 becomes 031425; the
// reverse permutation restores it.
func raid10ReorderAreas(seg *Segment, conv raid10Reorder) error {
	if seg.DataCopies < 2 {
		seg.DataCopies = 2
	}
	n := seg.AreaCount()
	dc := seg.DataCopies
	if n%dc != 0 {
		return internalErrorf("Can't reorder raid10 near with odd number of devices")
	}
	stripes := n / dc

	idx := make([]uint32, n)
	switch conv {
	case reorderToRaid10:
		ss := uint32(1)
		for s := uint32(0); s < n; s++ {
			if s < stripes {
				idx[s] = s * dc
			} else {
				idx[s] = ss*dc - 1
				ss++
			}
		}
	case reorderFromRaid10:
		idx1, idx2 := stripes, uint32(0)
		for s := uint32(0); s < n; s++ {
			if s%dc != 0 {
				idx[s] = idx1
				idx1++
			} else {
				idx[s] = idx2
				idx2++
			}
		}
	}

	hasMeta := seg.MetaAreas != nil
	for {
		xchg := n
		for s := uint32(0); s < n; s++ {
			if idx[s] == s {
				xchg--
				continue
			}
			t := idx[s]
			seg.Areas[s], seg.Areas[t] = seg.Areas[t], seg.Areas[s]
			if hasMeta {
				seg.MetaAreas[s], seg.MetaAreas[t] = seg.MetaAreas[t], seg.MetaAreas[s]
			}
			idx[s], idx[t] = idx[t], t
		}
		if xchg == 0 {
			break
		}
	}
	return nil
}

// raid0AddOrRemoveMetadata toggles between raid0 and raid0_meta.
func (e *Engine) raid0AddOrRemoveMetadata(ctx context.Context, lv *LogicalVolume, updateAndReload bool, removal *[]*LogicalVolume) error {
	seg := lv.FirstSegment()
	if seg.MetaAreas != nil {
		klog.V(4).Infof("Extracting metadata LVs")
		if removal == nil {
			return internalErrorf("Called with NULL removal LVs list")
		}
		metas, err := extractList(seg, metaComponent, 0)
		if err != nil {
			return internalErrorf("Failed to extract metadata LVs")
		}
		*removal = append(*removal, metas...)
		seg.Type = Raid0
	} else {
		if err := e.allocAndAddRmetaDevsForLV(ctx, lv); err != nil {
			return err
		}
		seg.Type = Raid0Meta
	}

	if !updateAndReload {
		return nil
	}
	if err := e.updateAndReload(ctx, lv); err != nil {
		return err
	}
	var stage []*LogicalVolume
	if removal != nil {
		stage = *removal
		*removal = nil
	}
	return e.eliminateExtracted(ctx, lv.vg, stage)
}

// setAreasFromDataLVs links lvs as hidden images of lv, naming them after
// their new index.
func setAreasFromDataLVs(lv *LogicalVolume, lvs []*LogicalVolume, flags StatusFlag) error {
	seg := lv.FirstSegment()
	role := RoleRMeta
	if flags&RaidImage != 0 {
		role = RoleRImage
	}
	for s, sub := range lvs {
		sub.setVisible(false)
		if role == RoleRImage {
			seg.setDataLV(uint32(s), sub, flags|RaidImage)
		} else {
			if seg.MetaAreas == nil {
				seg.MetaAreas = make([]Area, len(seg.Areas))
			}
			seg.setMetaLV(uint32(s), sub, flags|RaidMeta)
		}
		n := componentName(lv.Name.String(), role, s)
		if !validName(n.String()) {
			return usageErrorf("New logical volume name %q is not valid.", n)
		}
		if err := rename(sub, n); err != nil {
			return wrapErrorf(err, "Failed to allocate new data image lv name for %s", lv)
		}
	}
	return nil
}

// avoidPVsOfOtherImages keeps allocation off the devices the healthy
// components of lv map.
func avoidPVsOfOtherImages(lv *LogicalVolume, pvs []string) {
	seg := lv.FirstSegment()
	var holders []*LogicalVolume
	if len(seg.Areas) > 0 && seg.Areas[0].Kind == AreaPV {
		holders = []*LogicalVolume{lv}
	} else {
		holders = lv.subLVs()
	}
	candidates := allPVs(lv.vg, pvs)
	for _, h := range holders {
		if h.Is(Partial) {
			continue
		}
		for _, name := range h.pvNames() {
			for _, c := range candidates {
				if c == name {
					if pv := lv.vg.PV(name); pv != nil {
						pv.NoAlloc = true
					}
				}
			}
		}
	}
}
