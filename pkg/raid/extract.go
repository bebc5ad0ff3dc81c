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

type componentKind int

const (
	dataComponent componentKind = iota
	metaComponent
)

// replaceWithErrorIfPartial maps a partial lv to the error target.
func replaceWithErrorIfPartial(lv *LogicalVolume) {
	if lv != nil && lv.Is(Partial) {
		klog.V(4).Infof("Replacing %s segments with error target", lv.Name)
		lv.replaceWithError()
	}
}

// extractComponent detaches the component at idx, leaving the slot
// unassigned. Neither the area count nor the other indices change.
func extractComponent(seg *Segment, kind componentKind, idx uint32, setError bool) (*LogicalVolume, error) {
	var lv *LogicalVolume
	var flag StatusFlag
	switch kind {
	case metaComponent:
		lv = seg.MetaLV(idx)
		flag = RaidMeta
	case dataComponent:
		lv = seg.DataLV(idx)
		flag = RaidImage
	}
	if lv == nil {
		return nil, internalErrorf("No component #%d to extract from %s", idx, seg.lv)
	}
	name := lv.Name
	name.Extracted = true
	if err := checkFreeName(lv.vg, name); err != nil {
		return nil, err
	}

	klog.V(2).Infof("Extracting image component %s from %s", lv.Name, seg.lv)
	if kind == metaComponent {
		seg.MetaAreas[idx] = unassigned
	} else {
		seg.Areas[idx] = unassigned
	}
	lv.Status &^= flag | Raid
	lv.setVisible(true)
	lv.Parent = NoLV
	lv.Name = name
	if setError {
		replaceWithErrorIfPartial(lv)
	}
	return lv, nil
}

// extractPair detaches the metadata then the data component at idx.
func extractPair(seg *Segment, idx uint32, setError bool) (meta, data *LogicalVolume, err error) {
	if idx >= seg.AreaCount() {
		return nil, nil, internalErrorf("area index too large for segment")
	}
	if seg.MetaLV(idx) != nil {
		if meta, err = extractComponent(seg, metaComponent, idx, setError); err != nil {
			return nil, nil, err
		}
	}
	if data, err = extractComponent(seg, dataComponent, idx, setError); err != nil {
		return nil, nil, err
	}
	return meta, data, nil
}

// extractSublist detaches the components of kind in [idx, end).
func extractSublist(seg *Segment, kind componentKind, idx, end uint32, setError bool) ([]*LogicalVolume, error) {
	if idx >= seg.AreaCount() || end > seg.AreaCount() || end <= idx {
		return nil, internalErrorf("area index wrong for segment")
	}
	var out []*LogicalVolume
	for s := idx; s < end; s++ {
		lv, err := extractComponent(seg, kind, s, setError)
		if err != nil {
			return nil, err
		}
		out = append(out, lv)
	}
	if idx == 0 && end == seg.AreaCount() && kind == metaComponent {
		seg.MetaAreas = nil
	}
	return out, nil
}

// extractList detaches every component of kind from idx on, replacing
// partial ones with the error target.
func extractList(seg *Segment, kind componentKind, idx uint32) ([]*LogicalVolume, error) {
	return extractSublist(seg, kind, idx, seg.AreaCount(), true)
}

// shiftImageComponents closes the gaps left by extraction, renaming the
// moved components to their lower index.
func (e *Engine) shiftImageComponents(seg *Segment) error {
	if !seg.Type.IsRaid() {
		return internalErrorf("Unable to shift images of non-raid segment %s", seg.lv)
	}
	if err := e.checkMaxRaidDevices(seg.AreaCount()); err != nil {
		return err
	}
	klog.V(2).Infof("Shifting images in %s", seg.lv)

	var missing uint32
	for s := uint32(0); s < seg.AreaCount(); s++ {
		if seg.Areas[s].Kind == AreaUnassigned {
			if seg.MetaAreas != nil && seg.MetaAreas[s].Kind != AreaUnassigned {
				return internalErrorf("Metadata segment area #%d should be AREA_UNASSIGNED", s)
			}
			missing++
			continue
		}
		if missing == 0 {
			continue
		}
		to := s - missing
		seg.Areas[to] = seg.Areas[s]
		seg.Areas[s] = unassigned
		if err := shiftImageName(seg.DataLV(to), to); err != nil {
			return err
		}
		if seg.MetaAreas != nil {
			seg.MetaAreas[to] = seg.MetaAreas[s]
			seg.MetaAreas[s] = unassigned
			if err := shiftImageName(seg.MetaLV(to), to); err != nil {
				return err
			}
		}
	}
	n := seg.AreaCount() - missing
	seg.Areas = seg.Areas[:n]
	if seg.MetaAreas != nil {
		seg.MetaAreas = seg.MetaAreas[:n]
	}
	return nil
}

func shiftImageName(lv *LogicalVolume, idx uint32) error {
	if lv == nil {
		return nil
	}
	if !lv.Name.Role.indexed() {
		return internalErrorf("Malformatted image name %s", lv.Name)
	}
	klog.V(2).Infof("Shifting %s to index %d", lv.Name, idx)
	n := lv.Name
	n.Index = int(idx)
	return rename(lv, n)
}

// allPVs returns pvs, or every device of vg when pvs is empty.
func allPVs(vg *VolumeGroup, pvs []string) []string {
	if len(pvs) > 0 {
		return pvs
	}
	names := make([]string, len(vg.PVs))
	for i, pv := range vg.PVs {
		names[i] = pv.Name
	}
	return names
}

func segmentIsError(lv *LogicalVolume) bool {
	return lv != nil && lv.IsVirtual()
}

// extractImages detaches image pairs until newCount remain. Pairs mapped
// to the error target go first, then pairs on targetPVs, scanning from the
// last index.
func (e *Engine) extractImages(ctx context.Context, lv *LogicalVolume, newCount uint32, targetPVs []string, shift bool) (metas, datas []*LogicalVolume, err error) {
	seg := lv.FirstSegment()
	extract := seg.AreaCount() - newCount
	candidates := allPVs(lv.vg, targetPVs)
	if n := uint32(len(candidates)); n < extract {
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return nil, nil, usageErrorf("Unable to remove %d images:  Only %d device%s given.", extract, n, plural)
	}
	plural := ""
	if extract > 1 {
		plural = "s"
	}
	klog.V(2).Infof("Extracting %d image%s from %s", extract, plural, lv)

	collect := func(idx uint32) error {
		m, d, err := extractPair(seg, idx, false)
		if err != nil {
			return err
		}
		if m != nil {
			metas = append(metas, m)
		}
		datas = append(datas, d)
		extract--
		return nil
	}

	for s := int(seg.AreaCount()) - 1; s >= 0 && extract > 0; s-- {
		idx := uint32(s)
		data := seg.DataLV(idx)
		if data == nil || (!segmentIsError(seg.MetaLV(idx)) && !segmentIsError(data)) {
			continue
		}
		if len(targetPVs) > 0 {
			return nil, nil, preconditionErrorf("%s has components with error targets that must be removed first: %s. Try removing the PV list and rerun the command.", lv, data)
		}
		klog.V(4).Infof("LVs with error segments to be removed: %s", data)
		if err := collect(idx); err != nil {
			return nil, nil, err
		}
	}

	for s := int(seg.AreaCount()) - 1; s >= 0 && extract > 0; s-- {
		idx := uint32(s)
		data := seg.DataLV(idx)
		if data == nil || !data.onPVs(candidates) {
			continue
		}
		if meta := seg.MetaLV(idx); meta != nil && !meta.onPVs(candidates) {
			continue
		}
		if !e.inSync(ctx, lv) && (!seg.Type.IsMirrored() || idx == 0) {
			primary := ""
			if seg.Type.IsMirrored() {
				primary = "primary "
			}
			return nil, nil, preconditionErrorf("Unable to extract %sRAID image while RAID array is not in-sync", primary)
		}
		if err := collect(idx); err != nil {
			return nil, nil, err
		}
	}

	if extract > 0 {
		return nil, nil, exhaustedErrorf("Unable to extract enough images to satisfy request")
	}
	if shift {
		if err := e.shiftImageComponents(seg); err != nil {
			return nil, nil, wrapErrorf(err, "Failed to shift and rename image components")
		}
	}
	return metas, datas, nil
}
