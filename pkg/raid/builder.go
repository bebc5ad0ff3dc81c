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

// newImageComponent creates a visible raid or mirror component of lv
// mapping extents. Without extents the component is left empty.
func (e *Engine) newImageComponent(vg *VolumeGroup, base string, role Role, extents []Extent) (*LogicalVolume, error) {
	flags := Read | Write
	switch role {
	case RoleRMeta:
		flags |= Raid | RaidMeta
	case RoleRImage:
		flags |= Raid | RaidImage | Rebuild
	case RoleMImage:
		flags |= MirrorImage
	default:
		return nil, internalErrorf("Bad type provided to newImageComponent.")
	}
	name, err := generateName(vg, base, role)
	if err != nil {
		return nil, err
	}
	sub, err := vg.CreateLV(name, flags)
	if err != nil {
		return nil, wrapErrorf(err, "Failed to allocate new raid component, %s.", name)
	}
	sub.extend(extents)
	sub.setVisible(true)
	return sub, nil
}

// imageExtents returns the size of one new image of lv.
func imageExtents(lv *LogicalVolume) uint32 {
	seg := lv.FirstSegment()
	switch {
	case seg.Type.IsAnyRaid10():
		return RimageExtents(lv.LECount, seg.AreaCount(), seg.DataCopies)
	case seg.Type.IsStripedRaid():
		return lv.LECount / seg.DataImageCount()
	}
	return lv.LECount
}

// allocImageComponents allocates count new image pairs for lv on pvs,
// away from the devices lv already maps.
func (e *Engine) allocImageComponents(lv *LogicalVolume, pvs []string, count uint32, wantMeta, wantData bool) (metas, datas []*LogicalVolume, err error) {
	if !wantMeta && !wantData {
		return nil, nil, internalErrorf("Called without image components to allocate")
	}
	seg := lv.FirstSegment()
	e.checkAndInitRegionSize(lv)

	var reshapePerDev uint32
	if img := seg.DataLV(0); img != nil && img.FirstSegment() != nil {
		reshapePerDev = img.FirstSegment().ReshapeLen
	}
	extents := imageExtents(lv)
	req := AllocationRequest{
		Areas:       count,
		AreaExtents: extents,
		PVs:         pvs,
		Avoid:       lv.pvNames(),
	}
	if wantMeta {
		req.MetaExtents = RmetaExtents(extents, seg.RegionSize, lv.vg.ExtentSize)
	}
	a, err := e.alloc.Allocate(lv.vg, req)
	if err != nil {
		return nil, nil, wrapErrorf(err, "Failed to allocate %d image pair(s) of %d extents for %s", count, extents, lv)
	}

	base := lv.Name.String()
	for s := uint32(0); s < count; s++ {
		if wantMeta {
			m, err := e.newImageComponent(lv.vg, base, RoleRMeta, a.Meta[s])
			if err != nil {
				return nil, nil, err
			}
			metas = append(metas, m)
		}
		if wantData {
			d, err := e.newImageComponent(lv.vg, base, RoleRImage, a.Data[s])
			if err != nil {
				return nil, nil, err
			}
			if d.LECount > 0 {
				d.FirstSegment().ReshapeLen = reshapePerDev
			}
			datas = append(datas, d)
		}
	}
	return metas, datas, nil
}

// allocRmetaForLV allocates a metadata image on the devices of dataLV.
func (e *Engine) allocRmetaForLV(top, dataLV *LogicalVolume) (*LogicalVolume, error) {
	seg := top.FirstSegment()
	e.checkAndInitRegionSize(top)
	a, err := e.alloc.Allocate(dataLV.vg, AllocationRequest{
		Areas:       1,
		AreaExtents: RmetaExtents(dataLV.LECount, seg.RegionSize, dataLV.vg.ExtentSize),
		PVs:         dataLV.pvNames(),
	})
	if err != nil {
		return nil, wrapErrorf(err, "Failed to allocate metadata LV for %s in %s", dataLV.Name, dataLV.vg.Name)
	}
	return e.newImageComponent(dataLV.vg, dataLV.Name.Base, RoleRMeta, a.Data[0])
}

// allocRmetaDevsForLV allocates one metadata image per data image of lv.
func (e *Engine) allocRmetaDevsForLV(lv *LogicalVolume) ([]*LogicalVolume, error) {
	seg := lv.FirstSegment()
	if seg.MetaAreas != nil {
		return nil, internalErrorf("Metadata LVs exist in %s", lv)
	}
	seg.MetaAreas = make([]Area, len(seg.Areas))
	var metas []*LogicalVolume
	for s := range seg.Areas {
		data := seg.DataLV(uint32(s))
		klog.V(4).Infof("Allocating new metadata LV for %s", data.Name)
		m, err := e.allocRmetaForLV(lv, data)
		if err != nil {
			return nil, wrapErrorf(err, "Failed to allocate metadata LVs for %s", lv.Name)
		}
		metas = append(metas, m)
	}
	return metas, nil
}

// allocAndAddRmetaDevsForLV gives every data image of lv a cleared
// metadata image.
func (e *Engine) allocAndAddRmetaDevsForLV(ctx context.Context, lv *LogicalVolume) error {
	metas, err := e.allocRmetaDevsForLV(lv)
	if err != nil {
		return wrapErrorf(err, "Failed to allocate metadata LVs for %s", lv)
	}
	klog.V(4).Infof("Clearing newly allocated metadata LVs")
	if err := e.clearLVs(ctx, metas); err != nil {
		return wrapErrorf(err, "Failed to initialize metadata LVs")
	}
	addImageComponentList(lv.FirstSegment(), metas, 0, 0)
	return nil
}

// addImageComponentList links lvs into seg starting at offset. Metadata
// images go to the metadata areas.
func addImageComponentList(seg *Segment, lvs []*LogicalVolume, flags StatusFlag, offset uint32) {
	s := offset
	for _, lv := range lvs {
		lv.setVisible(flags&Visible != 0)
		if flags&Rebuild != 0 {
			lv.Status |= Rebuild
		} else {
			lv.Status &^= Rebuild
		}
		if lv.Is(RaidMeta) {
			if seg.MetaAreas == nil {
				seg.MetaAreas = make([]Area, len(seg.Areas))
			}
			seg.setMetaLV(s, lv, 0)
		} else {
			seg.setDataLV(s, lv, 0)
		}
		s++
	}
}

// reallocAreas resizes the data and metadata areas keeping common slots.
func (s *Segment) reallocAreas(n uint32) {
	areas := make([]Area, n)
	copy(areas, s.Areas)
	s.Areas = areas
	metas := make([]Area, n)
	copy(metas, s.MetaAreas)
	s.MetaAreas = metas
}
